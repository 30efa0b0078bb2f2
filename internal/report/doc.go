// Package report renders the latest stored results of a target.
//
// A Summary gathers the performance, network and security results for
// one target. Writers render it as plain text for terminals, JSON for
// tools, or Markdown for sharing.
package report
