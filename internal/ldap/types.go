package ldap

import (
	"context"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig holds configuration for LDAP connections.
type ConnectionConfig struct {
	// Connection settings
	Domain   string        // Domain for SRV discovery
	LDAPURLs []string      // Direct LDAP URLs (overrides domain)
	BaseDN   string        // Base DN for searches
	Timeout  time.Duration `default:"30s"`  // Connection and operation timeout
	PageSize uint32        `default:"1000"` // Paged search size, within AD's MaxPageSize

	// Authentication settings
	Username       string // Username for authentication (DN, UPN, or SAM format)
	Password       string // Password for simple bind authentication
	KerberosRealm  string // Kerberos realm for GSSAPI authentication
	KerberosKeytab string // Path to Kerberos keytab file
	KerberosConfig string // Path to Kerberos config file (krb5.conf)
	KerberosCCache string // Path to Kerberos credential cache
	KerberosSPN    string // Service principal override (defaults to ldap/<host>)

	// TLS settings
	UseTLS            bool   `default:"true"` // Prefer LDAPS, else StartTLS on plain LDAP
	SkipTLSVerify     bool   // Disable certificate validation (not recommended)
	TLSCACertFile     string // Path to CA certificate file
	TLSCACert         string // CA certificate content
	TLSClientCertFile string // Path to client certificate file
	TLSClientKeyFile  string // Path to client private key file
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() *ConnectionConfig {
	config := &ConnectionConfig{}
	if err := defaults.Set(config); err != nil {
		// Only reachable if the struct tags above are malformed.
		panic(fmt.Sprintf("ldap: invalid connection defaults: %v", err))
	}
	return config
}

// Validate checks that the configuration can reach and authenticate to a server.
func (c *ConnectionConfig) Validate() error {
	if c.Domain == "" && len(c.LDAPURLs) == 0 {
		return fmt.Errorf("either a domain or at least one LDAP URL must be configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PageSize == 0 {
		return fmt.Errorf("page size must be positive")
	}
	return nil
}

// ServerInfo contains information about an LDAP server.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
	Source   string // "srv", "config", "fallback"
}

// Client provides the LDAP operations the renamer needs.
type Client interface {
	// Connect dials and authenticates once to verify the configuration.
	Connect(ctx context.Context) error
	Close() error

	SearchWithPaging(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	Modify(ctx context.Context, req *ModifyRequest) error
	ModifyDN(ctx context.Context, req *ModifyDNRequest) error
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string
	TimeLimit  time.Duration
}

// SearchResult contains search results and metadata.
type SearchResult struct {
	Entries []*ldap.Entry
	Total   int
}

// ModifyRequest encapsulates LDAP modify parameters.
type ModifyRequest struct {
	DN                string
	ReplaceAttributes map[string][]string
}

// ModifyDNRequest renames an entry within its parent container.
type ModifyDNRequest struct {
	DN           string
	NewRDN       string
	DeleteOldRDN bool
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodExternal                     // External/certificate authentication
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	// Kerberos authentication takes precedence
	if c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.Username != "") {
		return AuthMethodKerberos
	}

	if c.Username != "" && c.Password != "" {
		return AuthMethodSimpleBind
	}

	if c.TLSClientCertFile != "" && c.TLSClientKeyFile != "" {
		return AuthMethodExternal
	}

	return AuthMethodSimpleBind
}

// HasAuthentication checks if any authentication method is configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	hasPassword := c.Username != "" && c.Password != ""
	hasKerberos := c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.Username != "")
	hasExternal := c.TLSClientCertFile != "" && c.TLSClientKeyFile != ""

	return hasPassword || hasKerberos || hasExternal
}

func (s SearchScope) toLDAP() int {
	switch s {
	case ScopeBaseObject:
		return ldap.ScopeBaseObject
	case ScopeSingleLevel:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}
