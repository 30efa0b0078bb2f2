package tlsinfo

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
)

// DefaultTimeout bounds the TLS handshake.
const DefaultTimeout = 10 * time.Second

// ErrNoCertificate is returned when the peer sent no certificate.
var ErrNoCertificate = errors.New("no peer certificate")

// Inspector dials a target and reports its leaf certificate.
type Inspector struct {
	timeout time.Duration
	roots   *x509.CertPool
	now     func() time.Time
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithTimeout bounds the handshake.
func WithTimeout(d time.Duration) Option {
	return func(i *Inspector) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithRoots verifies chains against pool instead of the system roots.
func WithRoots(pool *x509.CertPool) Option {
	return func(i *Inspector) {
		i.roots = pool
	}
}

// WithClock overrides the time source used for DaysRemaining.
func WithClock(now func() time.Time) Option {
	return func(i *Inspector) {
		i.now = now
	}
}

// NewInspector creates an Inspector.
func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{timeout: DefaultTimeout, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect connects to the target's host on its port (443 unless the URL
// names another) and summarizes the certificate. Untrusted certificates
// are reported, not rejected.
func (i *Inspector) Inspect(ctx context.Context, target model.Target) (*model.CertificateInfo, error) {
	addr := net.JoinHostPort(target.Host(), "443")
	if u, err := url.Parse(target.String()); err == nil && u.Port() != "" {
		addr = net.JoinHostPort(target.Host(), u.Port())
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	dialer := &tls.Dialer{Config: &tls.Config{
		ServerName: target.Host(),
		// Verification happens in verify so that broken chains are still described.
		InsecureSkipVerify: true, //nolint:gosec // certificate is verified manually below
		MinVersion:         tls.VersionTLS10,
	}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tls handshake with %s failed: %w", addr, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCertificate, addr)
	}

	info := Describe(state.PeerCertificates[0], i.now())
	info.Host = target.Host()
	info.TLSVersion = versionName(state.Version)
	if err := i.verify(target.Host(), state.PeerCertificates); err != nil {
		info.VerifyError = err.Error()
	} else {
		info.Trusted = true
	}
	return info, nil
}

func (i *Inspector) verify(host string, chain []*x509.Certificate) error {
	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}
	_, err := chain[0].Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         i.roots,
		Intermediates: intermediates,
		CurrentTime:   i.now(),
	})
	return err
}

// Describe summarizes a certificate as of now.
func Describe(cert *x509.Certificate, now time.Time) *model.CertificateInfo {
	days := 0
	if remaining := cert.NotAfter.Sub(now); remaining > 0 {
		days = int(math.Ceil(remaining.Hours() / 24))
	}
	validity := "Expired"
	if days > 0 {
		validity = fmt.Sprintf("%d days remaining", days)
	}

	return &model.CertificateInfo{
		Version:            cert.Version,
		SerialNumber:       fmt.Sprintf("%X", cert.SerialNumber),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		Issuer:             cert.Issuer.String(),
		Subject:            cert.Subject.String(),
		DNSNames:           cert.DNSNames,
		PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
		PublicKeyBits:      keyBits(cert.PublicKey),
		NotBefore:          cert.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:           cert.NotAfter.UTC().Format(time.RFC3339),
		DaysRemaining:      days,
		Validity:           validity,
	}
}

func keyBits(pub any) int {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k.N.BitLen()
	case *ecdsa.PublicKey:
		return k.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	default:
		return 0
	}
}

func versionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "Unknown"
	}
}
