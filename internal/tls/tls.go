// Package tls builds client-side TLS configurations for the STARTTLS upgrade
// of outbound SMTP sessions.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientConfig returns a tls.Config for connecting to serverName. When caFile
// is non-empty, the pool is restricted to the certificates in that file;
// otherwise the system roots are used. insecureSkipVerify disables
// certificate verification entirely and is intended for lab relays only.
func ClientConfig(serverName, caFile string, insecureSkipVerify bool) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         serverName,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecureSkipVerify,
	}

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", caFile)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
