package ldap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
)

// Directory scopes a Client to one search root and exposes the query,
// update and rename operations of a user directory.
type Directory struct {
	client  Client
	baseDN  string
	timeout time.Duration
	logger  hclog.Logger
}

// NewDirectory returns a Directory rooted at baseDN.
func NewDirectory(client Client, baseDN string, timeout time.Duration, logger hclog.Logger) *Directory {
	return &Directory{
		client:  client,
		baseDN:  baseDN,
		timeout: timeout,
		logger:  subsystem(logger, SubsystemLDAP),
	}
}

// BaseDN returns the search root.
func (d *Directory) BaseDN() string {
	return d.baseDN
}

// Search runs a paged subtree search below the search root.
func (d *Directory) Search(ctx context.Context, filter string, attributes []string) ([]*ldap.Entry, error) {
	result, err := d.client.SearchWithPaging(ctx, &SearchRequest{
		BaseDN:     d.baseDN,
		Scope:      ScopeWholeSubtree,
		Filter:     filter,
		Attributes: attributes,
		TimeLimit:  d.timeout,
	})
	if err != nil {
		return nil, err
	}

	d.logger.Trace("Search returned entries", "filter", filter, "count", result.Total)
	return result.Entries, nil
}

// Modify replaces the given attribute values on the entry at dn.
func (d *Directory) Modify(ctx context.Context, dn string, replace map[string][]string) error {
	if len(replace) == 0 {
		return fmt.Errorf("no attributes to modify on %s", dn)
	}

	return d.client.Modify(ctx, &ModifyRequest{
		DN:                dn,
		ReplaceAttributes: replace,
	})
}

// Rename gives the entry at dn the relative name newRDN in place, removing
// the old naming value.
func (d *Directory) Rename(ctx context.Context, dn, newRDN string) error {
	return d.client.ModifyDN(ctx, &ModifyDNRequest{
		DN:           dn,
		NewRDN:       newRDN,
		DeleteOldRDN: true,
	})
}
