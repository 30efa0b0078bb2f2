package model

import "time"

// AlertTags carries the OWASP Top 10 classifications ZAP attaches to alerts.
type AlertTags struct {
	OWASP2021A05 string `json:"OWASP_2021_A05,omitempty"` //nolint:tagliatelle // ZAP tag name
	OWASP2017A06 string `json:"OWASP_2017_A06,omitempty"` //nolint:tagliatelle // ZAP tag name
}

// Alert is one de-duplicated ZAP finding.
type Alert struct {
	AlertRef    string     `json:"alertRef"`
	Name        string     `json:"name"`
	Risk        string     `json:"risk"`
	Description string     `json:"description"`
	Confidence  string     `json:"confidence"`
	Evidence    string     `json:"evidence"`
	Solution    string     `json:"solution"`
	Reference   string     `json:"reference"`
	Attacks     string     `json:"attacks"`
	CWEID       int        `json:"cweid"`
	WASCID      int        `json:"wascid"`
	Tags        AlertTags  `json:"tags"`
	FirstSeen   *time.Time `json:"firstSeen,omitempty"`
}

// SecurityResult is the payload stored under ResultSecurity.
type SecurityResult struct {
	Target string  `json:"target"`
	Alerts []Alert `json:"alerts"`
	// NewAlertRefs lists refs not present in the previously stored set.
	NewAlertRefs []string  `json:"newAlertRefs,omitempty"`
	Digest       string    `json:"digest"`
	CapturedAt   time.Time `json:"capturedAt"`
	// Changed is false when the alert set equals the stored one,
	// in which case the result is not persisted again.
	Changed bool `json:"-"`
}
