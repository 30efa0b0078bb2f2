// Package queue runs scan jobs one at a time in submission order.
//
// The queue is in memory; the job store is the durable record. On Start
// the queue reloads every non-terminal job from the store, so jobs
// submitted before a crash or restart are executed again.
//
// Several processes may share one store. They coordinate through a worker
// lease kept in the store: only the holder runs jobs or recovers jobs
// left running, and the others wait in standby until the lease is
// released or expires.
package queue
