package model

import "time"

// PingMetrics summarizes repeated ICMP echo attempts.
// Time, Min, Max and Avg are nil when no attempt succeeded.
type PingMetrics struct {
	Host       string    `json:"host"`
	Alive      bool      `json:"alive"`
	Time       *float64  `json:"time"`
	Min        *float64  `json:"min"`
	Max        *float64  `json:"max"`
	Avg        *float64  `json:"avg"`
	PacketLoss string    `json:"packetLoss"`
	Attempts   int       `json:"attempts"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Hop is one traceroute line that matched the hop pattern.
type Hop struct {
	HopNumber int     `json:"hopNumber"`
	IPAddress string  `json:"ipAddress"`
	Latency   float64 `json:"latency"`
}

// TracerouteResult is the payload stored under ResultTraceroute.
type TracerouteResult struct {
	Host       string    `json:"host"`
	Hops       []Hop     `json:"hops"`
	CapturedAt time.Time `json:"capturedAt"`
}

// NetworkResult carries both independent network measurements.
// A nil sub-result has its failure text in the matching error field.
type NetworkResult struct {
	Status          ProbeStatus       `json:"status"`
	Ping            *PingMetrics      `json:"ping,omitempty"`
	PingError       string            `json:"pingError,omitempty"`
	Traceroute      *TracerouteResult `json:"traceroute,omitempty"`
	TracerouteError string            `json:"tracerouteError,omitempty"`
}

// Coordinates is a latitude/longitude pair.
// Both are nil for private or unresolvable addresses.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// GeoHop is a traceroute hop with its location.
type GeoHop struct {
	Hop
	Coordinates
}
