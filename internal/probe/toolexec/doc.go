// Package toolexec runs the external programs the probes depend on
// (lighthouse, ping, traceroute) and expands their configurable command
// templates.
package toolexec
