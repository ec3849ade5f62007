package ldap

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net"
	"slices"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
)

// client implements the Client interface. Every operation dials, binds and
// closes its own connection; call volume is bounded by the roster size.
type client struct {
	config  *ConnectionConfig
	servers []*ServerInfo
	logger  hclog.Logger
}

// NewClient resolves the servers for config and returns a client. No
// connection is made until the first operation or Connect.
func NewClient(ctx context.Context, config *ConnectionConfig, logger hclog.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection configuration: %w", err)
	}

	c := &client{
		config: config,
		logger: subsystem(logger, SubsystemLDAP),
	}

	servers, err := c.resolveServers(ctx, logger)
	if err != nil {
		return nil, err
	}
	c.servers = servers

	c.logger.Debug("Created LDAP client",
		"domain", config.Domain,
		"server_count", len(servers),
		"auth_method", config.GetAuthMethod().String(),
		"use_tls", config.UseTLS)

	return c, nil
}

// resolveServers turns configured URLs into servers, falling back to SRV discovery.
func (c *client) resolveServers(ctx context.Context, logger hclog.Logger) ([]*ServerInfo, error) {
	if len(c.config.LDAPURLs) > 0 {
		servers := make([]*ServerInfo, 0, len(c.config.LDAPURLs))
		for _, rawURL := range c.config.LDAPURLs {
			server, err := ParseLDAPURL(rawURL)
			if err != nil {
				return nil, err
			}
			servers = append(servers, server)
		}
		return servers, nil
	}

	servers, err := NewSRVDiscovery(logger).DiscoverServers(ctx, c.config.Domain)
	if err != nil {
		return nil, fmt.Errorf("failed to discover servers for %s: %w", c.config.Domain, err)
	}
	return servers, nil
}

// Connect dials and authenticates, reporting the bound identity.
func (c *client) Connect(ctx context.Context) error {
	return LogOperation(c.logger, "connection_test", map[string]any{"domain": c.config.Domain}, func() error {
		conn, server, err := c.open(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		result, err := conn.WhoAmI(nil)
		if err != nil {
			// Some servers refuse the extended operation; the bind already succeeded.
			c.logger.Debug("WhoAmI unavailable", "error", err)
			return nil
		}
		c.logger.Info("Connected to directory", "server", ServerInfoToURL(server), "identity", result.AuthzID)
		return nil
	})
}

// Close is a no-op: connections do not outlive a single operation.
func (c *client) Close() error {
	return nil
}

// open dials the servers in order and returns the first authenticated connection.
func (c *client) open(ctx context.Context) (*ldap.Conn, *ServerInfo, error) {
	var errs []error
	for _, server := range c.servers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		conn, err := c.dial(ctx, server)
		if err != nil {
			c.logger.Warn("Failed to connect to server", "server", ServerInfoToURL(server), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ServerInfoToURL(server), err))
			continue
		}

		return conn, server, nil
	}

	return nil, nil, NewLDAPError("connect", fmt.Errorf("no server reachable: %w", errors.Join(errs...)))
}

// withConn runs fn on a fresh connection and closes it afterwards.
func (c *client) withConn(ctx context.Context, fn func(*ldap.Conn) error) error {
	conn, _, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

func (c *client) dial(ctx context.Context, server *ServerInfo) (*ldap.Conn, error) {
	tlsConfig, err := buildTLSConfig(c.config, server.Host)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: c.config.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	url := ServerInfoToURL(server)
	var conn *ldap.Conn
	if server.UseTLS {
		conn, err = ldap.DialURL(url, ldap.DialWithDialer(dialer), ldap.DialWithTLSConfig(tlsConfig))
	} else {
		conn, err = ldap.DialURL(url, ldap.DialWithDialer(dialer))
		if err == nil && c.config.UseTLS {
			if err = conn.StartTLS(tlsConfig); err != nil {
				conn.Close()
				return nil, fmt.Errorf("StartTLS failed: %w", err)
			}
		}
	}
	if err != nil {
		return nil, err
	}

	conn.SetTimeout(c.config.Timeout)

	if err := c.authenticate(conn, server); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// authenticate performs authentication based on the configured method.
func (c *client) authenticate(conn *ldap.Conn, server *ServerInfo) error {
	authMethod := c.config.GetAuthMethod()
	start := time.Now()

	var err error
	switch authMethod {
	case AuthMethodKerberos:
		err = performKerberosAuth(conn, c.config, server, c.logger)
	case AuthMethodExternal:
		err = conn.ExternalBind()
	default:
		if c.config.Username == "" {
			err = fmt.Errorf("username is required for simple bind authentication")
		} else {
			err = conn.Bind(c.config.Username, c.config.Password)
		}
	}

	if err != nil {
		LogLDAPError(c.logger, "bind", err, map[string]any{
			"auth_method": authMethod.String(),
			"username":    c.config.Username,
		})
		return NewLDAPError("bind", err)
	}

	c.logger.Debug("Authentication successful",
		"auth_method", authMethod.String(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *client) newSearchRequest(req *SearchRequest) *ldap.SearchRequest {
	baseDN := req.BaseDN
	if baseDN == "" && req.Scope != ScopeBaseObject {
		baseDN = c.config.BaseDN
	}

	return ldap.NewSearchRequest(
		baseDN,
		req.Scope.toLDAP(),
		ldap.NeverDerefAliases,
		0,
		int(req.TimeLimit.Seconds()),
		false,
		req.Filter,
		req.Attributes,
		nil,
	)
}

// SearchWithPaging performs an LDAP search with the simple paged results control.
func (c *client) SearchWithPaging(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("search request cannot be nil")
	}

	var result *SearchResult
	err := LogOperation(c.logger, "paged_search", map[string]any{
		"base_dn":   req.BaseDN,
		"filter":    req.Filter,
		"page_size": c.config.PageSize,
	}, func() error {
		return c.withConn(ctx, func(conn *ldap.Conn) error {
			res, err := conn.SearchWithPaging(c.newSearchRequest(req), c.config.PageSize)
			if err != nil {
				return WrapErrorWithDN("paged search", req.BaseDN, err)
			}

			result = &SearchResult{
				Entries: res.Entries,
				Total:   len(res.Entries),
			}
			return nil
		})
	})

	return result, err
}

// Modify modifies an existing LDAP entry. Attributes are applied in name order.
func (c *client) Modify(ctx context.Context, req *ModifyRequest) error {
	if req == nil {
		return fmt.Errorf("modify request cannot be nil")
	}
	if req.DN == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	ldapReq := ldap.NewModifyRequest(req.DN, nil)
	for _, attr := range slices.Sorted(maps.Keys(req.ReplaceAttributes)) {
		ldapReq.Replace(attr, req.ReplaceAttributes[attr])
	}

	return LogOperation(c.logger, "modify", map[string]any{
		"dn":         req.DN,
		"attributes": slices.Sorted(maps.Keys(req.ReplaceAttributes)),
	}, func() error {
		return c.withConn(ctx, func(conn *ldap.Conn) error {
			return WrapErrorWithDN("modify", req.DN, conn.Modify(ldapReq))
		})
	})
}

// ModifyDN renames an LDAP entry in place.
func (c *client) ModifyDN(ctx context.Context, req *ModifyDNRequest) error {
	if req == nil {
		return fmt.Errorf("modify DN request cannot be nil")
	}
	if req.DN == "" {
		return fmt.Errorf("DN cannot be empty")
	}
	if req.NewRDN == "" {
		return fmt.Errorf("new RDN cannot be empty")
	}

	return LogOperation(c.logger, "modify_dn", map[string]any{
		"dn":      req.DN,
		"new_rdn": req.NewRDN,
	}, func() error {
		ldapReq := ldap.NewModifyDNRequest(req.DN, req.NewRDN, req.DeleteOldRDN, "")
		return c.withConn(ctx, func(conn *ldap.Conn) error {
			return WrapErrorWithDN("modify DN", req.DN, conn.ModifyDN(ldapReq))
		})
	})
}
