// Package probe holds what the three probes share: the retry policy that
// bounds their attempts. The probes themselves live in the performance,
// network and security subpackages; external commands are run through
// toolexec.
package probe
