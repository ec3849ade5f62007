package ldap

import (
	"cmp"
	"context"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// SRVResolver is the part of *net.Resolver used for domain controller discovery.
type SRVResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// SRVDiscovery handles DNS SRV record discovery for domain controllers.
type SRVDiscovery struct {
	logger   hclog.Logger
	resolver SRVResolver
}

// NewSRVDiscovery creates a new SRV discovery instance.
func NewSRVDiscovery(logger hclog.Logger) *SRVDiscovery {
	return &SRVDiscovery{
		logger:   subsystem(logger, SubsystemDiscovery),
		resolver: net.DefaultResolver,
	}
}

// DiscoverServers discovers LDAP servers for a domain using SRV records.
// LDAPS records are preferred; plain LDAP (upgraded with StartTLS) and the
// global catalog are consulted only when no LDAPS record exists. With no
// records at all the domain name itself is tried on 636 and then 389.
func (d *SRVDiscovery) DiscoverServers(ctx context.Context, domain string) ([]*ServerInfo, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain cannot be empty")
	}

	start := time.Now()
	d.logger.Debug("Starting server discovery for domain", "domain", domain)

	var allServers []*ServerInfo

	srvRecords := []struct {
		service string
		useTLS  bool
	}{
		{"_ldaps._tcp." + domain, true},
		{"_ldap._tcp." + domain, false},
		{"_gc._tcp." + domain, false},
	}

	for _, record := range srvRecords {
		servers, err := d.lookupSRV(ctx, record.service, record.useTLS)
		if err != nil {
			d.logger.Debug("SRV lookup failed, continuing to next service", "service", record.service, "error", err)
			continue
		}
		allServers = append(allServers, servers...)

		if record.useTLS {
			break
		}
	}

	if len(allServers) == 0 {
		d.logger.Debug("No SRV records found, using fallback servers", "domain", domain)
		return createFallbackServers(domain), nil
	}

	sortServersByPriority(allServers)

	d.logger.Debug("Server discovery completed",
		"duration", time.Since(start).String(),
		"server_count", len(allServers))
	return allServers, nil
}

// lookupSRV performs SRV record lookup for a specific service.
func (d *SRVDiscovery) lookupSRV(ctx context.Context, service string, useTLS bool) ([]*ServerInfo, error) {
	_, srvRecords, err := d.resolver.LookupSRV(ctx, "", "", service)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup failed for %s: %w", service, err)
	}

	if len(srvRecords) == 0 {
		return nil, fmt.Errorf("no SRV records found for %s", service)
	}

	servers := make([]*ServerInfo, 0, len(srvRecords))
	for _, srv := range srvRecords {
		servers = append(servers, &ServerInfo{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     int(srv.Port),
			UseTLS:   useTLS,
			Priority: int(srv.Priority),
			Weight:   int(srv.Weight),
			Source:   "srv",
		})
	}

	return servers, nil
}

// createFallbackServers creates fallback servers when SRV discovery fails.
func createFallbackServers(domain string) []*ServerInfo {
	return []*ServerInfo{
		{Host: domain, Port: 636, UseTLS: true, Priority: 0, Weight: 100, Source: "fallback"},
		{Host: domain, Port: 389, UseTLS: false, Priority: 1, Weight: 100, Source: "fallback"},
	}
}

// sortServersByPriority orders servers by ascending priority, then descending weight (RFC 2782).
func sortServersByPriority(servers []*ServerInfo) {
	slices.SortStableFunc(servers, func(a, b *ServerInfo) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(b.Weight, a.Weight)
	})
}

// ValidateServerInfo validates server information.
func ValidateServerInfo(server *ServerInfo) error {
	if server == nil {
		return fmt.Errorf("server info cannot be nil")
	}

	if server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if server.Port <= 0 || server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", server.Port)
	}

	if server.Priority < 0 {
		return fmt.Errorf("priority cannot be negative: %d", server.Priority)
	}

	if server.Weight < 0 {
		return fmt.Errorf("weight cannot be negative: %d", server.Weight)
	}

	return nil
}

// ServerInfoToURL converts ServerInfo to LDAP URL.
func ServerInfoToURL(server *ServerInfo) string {
	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}

	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(server.Host, strconv.Itoa(server.Port)))
}

// ParseLDAPURL parses an LDAP URL into ServerInfo. The scheme is matched
// case-insensitively so ADSI-style "LDAP://host" paths are accepted; any DN
// path component is ignored.
func ParseLDAPURL(rawURL string) (*ServerInfo, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid LDAP URL %q: %w", rawURL, err)
	}

	server := &ServerInfo{
		Host:   parsed.Hostname(),
		Weight: 100,
		Source: "config",
	}

	switch parsed.Scheme {
	case "ldaps":
		server.UseTLS = true
		server.Port = 636
	case "ldap":
		server.Port = 389
	default:
		return nil, fmt.Errorf("unsupported scheme %q, must be ldap:// or ldaps://", parsed.Scheme)
	}

	if portStr := parsed.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", portStr)
		}
		server.Port = port
	}

	return server, ValidateServerInfo(server)
}
