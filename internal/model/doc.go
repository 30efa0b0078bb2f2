// Package model defines the core data structures shared by hybridscan.
//
// This package contains the following main types:
//   - Target: A validated, normalized scan target URL
//   - Job: A submitted scan with its lifecycle state
//   - Record: The latest stored result of one kind for one target
//   - PerformanceResult, NetworkResult, SecurityResult: Probe outputs
//
// Design decision: The coordinator, queue, probes, database and API all
// exchange these types, so they live in a leaf package to avoid import
// cycles. Everything here is serializable to JSON because results are
// stored as JSON payloads and served verbatim by the API.
package model
