// Package pipeline executes one scan job: it acquires the shared browser
// session, runs the requested probe steps concurrently, and writes every
// step's outcome through the persistence sink.
//
// Each probe is a Step. Steps never stop their siblings; a failed step
// records its failure for its result kinds while the others still store
// their results, and Execute reports the failures joined together.
package pipeline
