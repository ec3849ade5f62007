package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// buildTLSConfig assembles the TLS configuration for a server from the CA
// and client certificate settings.
func buildTLSConfig(config *ConnectionConfig, serverName string) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         serverName,
		InsecureSkipVerify: config.SkipTLSVerify, //nolint:gosec // operator opt-in
	}

	if config.TLSCACertFile != "" || config.TLSCACert != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}

		if config.TLSCACertFile != "" {
			pem, err := os.ReadFile(config.TLSCACertFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA certificate file %s: %w", config.TLSCACertFile, err)
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in CA certificate file %s", config.TLSCACertFile)
			}
		}

		if config.TLSCACert != "" && !pool.AppendCertsFromPEM([]byte(config.TLSCACert)) {
			return nil, fmt.Errorf("no certificates found in CA certificate content")
		}

		tlsConfig.RootCAs = pool
	}

	if config.TLSClientCertFile != "" || config.TLSClientKeyFile != "" {
		if config.TLSClientCertFile == "" || config.TLSClientKeyFile == "" {
			return nil, fmt.Errorf("client certificate and key must be configured together")
		}
		cert, err := tls.LoadX509KeyPair(config.TLSClientCertFile, config.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
