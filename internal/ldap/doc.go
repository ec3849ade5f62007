/*
Package ldap provides the Active Directory access used by the renamer.

# Architecture Overview

  - Client: dial, bind, search, modify and modify-DN against a domain controller
  - Directory: a Client scoped to one search root, exposing the query,
    update and rename operations the rename engine depends on
  - Helpers: GUID, SID and DN conversion and escaping

# Connection Management

Servers come from configured LDAP URLs or, failing that, from DNS SRV
discovery of the domain (_ldaps, then _ldap, then _gc), with LDAPS and LDAP
defaults as a last resort. Every operation dials, binds and closes its own
connection; nothing is pooled or cached, so every lookup sees the live
directory.

Authentication is simple bind, Kerberos (GSSAPI from a credential cache,
keytab or password) or SASL EXTERNAL with a TLS client certificate.

# Error Handling

Failures are returned as *LDAPError, categorised by LDAP result code:

  - connection, authentication, permission
  - not_found, conflict, validation, server

Nothing is retried. Use IsNotFoundError, IsConflictError, IsPermissionError
and IsAuthenticationError to branch on the category.

# Example Usage

	config := ldap.DefaultConfig()
	config.Domain = "example.com"
	config.Username = "svc-renamer@example.com"
	config.Password = "password"

	client, err := ldap.NewClient(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	dir := ldap.NewDirectory(client, "OU=Staff,DC=example,DC=com", config.Timeout, logger)
	entries, err := dir.Search(ctx, "(sAMAccountName=jsmith)", []string{"displayName"})
*/
package ldap
