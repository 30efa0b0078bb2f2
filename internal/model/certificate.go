package model

// CertificateInfo summarizes the leaf TLS certificate served by a target.
type CertificateInfo struct {
	Host               string   `json:"host"`
	TLSVersion         string   `json:"tlsVersion"`
	Version            int      `json:"version"`
	SerialNumber       string   `json:"serialNumber"`
	SignatureAlgorithm string   `json:"signatureAlgorithm"`
	Issuer             string   `json:"issuer"`
	Subject            string   `json:"subject"`
	DNSNames           []string `json:"dnsNames,omitempty"`
	PublicKeyAlgorithm string   `json:"publicKeyAlgorithm"`
	PublicKeyBits      int      `json:"publicKeyBits"`
	NotBefore          string   `json:"notBefore"`
	NotAfter           string   `json:"notAfter"`
	DaysRemaining      int      `json:"daysRemaining"`
	Validity           string   `json:"validity"`
	// Trusted is false when the chain does not verify against the system
	// roots; VerifyError then holds the reason.
	Trusted     bool   `json:"trusted"`
	VerifyError string `json:"verifyError,omitempty"`
}
