package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"
)

// CertificateResult is the TLS certificate payload of the web probe.
type CertificateResult struct {
	Subject       string    `json:"subject,omitempty"`
	Issuer        string    `json:"issuer,omitempty"`
	NotBefore     time.Time `json:"not_before,omitempty"`
	NotAfter      time.Time `json:"not_after,omitempty"`
	DaysRemaining int       `json:"days_remaining"`
	Expired       bool      `json:"expired"`
	DNSNames      []string  `json:"dns_names,omitempty"`
	TLSVersion    string    `json:"tls_version,omitempty"`
	CipherSuite   string    `json:"cipher_suite,omitempty"`
	Severity      Severity  `json:"severity"`
	Error         string    `json:"error,omitempty"`
}

// InspectCertificate connects to host:443 and inspects the leaf certificate
// and negotiated protocol. Verification is skipped so expired or mismatched
// certificates can still be reported rather than failing the handshake.
func InspectCertificate(ctx context.Context, host string, timeout time.Duration) *CertificateResult {
	return inspectCertificateAddr(ctx, host, net.JoinHostPort(host, "443"), timeout)
}

func inspectCertificateAddr(ctx context.Context, serverName, addr string, timeout time.Duration) *CertificateResult {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS10,
		},
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return &CertificateResult{
			Severity: SeverityHigh,
			Error:    fmt.Sprintf("TLS handshake failed: %v", err),
		}
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	result := &CertificateResult{
		TLSVersion:  tlsVersionString(state.Version),
		CipherSuite: tls.CipherSuiteName(state.CipherSuite),
	}
	if len(state.PeerCertificates) > 0 {
		readLeafCertificate(state.PeerCertificates[0], result)
	}
	result.Severity = classifyCertificate(result, state.Version, time.Now())
	return result
}

func readLeafCertificate(cert *x509.Certificate, result *CertificateResult) {
	result.Subject = cert.Subject.CommonName
	result.Issuer = cert.Issuer.CommonName
	result.NotBefore = cert.NotBefore
	result.NotAfter = cert.NotAfter
	result.DNSNames = cert.DNSNames
}

// classifyCertificate ranks certificate health. An expired certificate is
// Critical, one expiring within 30 days is High, a pre-1.2 protocol is
// Medium, anything else is Low.
func classifyCertificate(result *CertificateResult, tlsVersion uint16, now time.Time) Severity {
	if !result.NotAfter.IsZero() {
		remaining := result.NotAfter.Sub(now)
		result.DaysRemaining = int(remaining.Hours() / 24)
		if remaining <= 0 {
			result.Expired = true
			return SeverityCritical
		}
		if result.DaysRemaining < 30 {
			return SeverityHigh
		}
	}
	if tlsVersion < tls.VersionTLS12 {
		return SeverityMedium
	}
	return SeverityLow
}

func tlsVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}
