// Package tlsinfo reads the TLS certificate a target serves.
package tlsinfo
