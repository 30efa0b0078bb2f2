// Package network measures reachability of a target host with the system
// ping and traceroute tools. The two measurements are independent: one
// failing never prevents the other from being stored.
package network
