package ldap

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	"github.com/hashicorp/go-hclog"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/keytab"
)

const defaultKrb5ConfPath = "/etc/krb5.conf"

// performKerberosAuth performs a GSSAPI bind on an LDAP connection.
func performKerberosAuth(conn *ldap.Conn, cfg *ConnectionConfig, server *ServerInfo, logger hclog.Logger) error {
	logger = subsystem(logger, SubsystemKerberos)

	principal, realm, err := kerberosPrincipal(cfg)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	krb5conf, err := loadKrb5Config(cfg, realm, logger)
	if err != nil {
		return err
	}

	gssapiClient, err := createGSSAPIClient(cfg, principal, realm, krb5conf, logger)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(cfg, server)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	logger.Debug("Performing GSSAPI bind", "principal", principal, "realm", realm, "spn", spn)

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// kerberosPrincipal splits user@REALM usernames; an explicit realm wins.
func kerberosPrincipal(cfg *ConnectionConfig) (string, string, error) {
	principal, realm := cfg.Username, cfg.KerberosRealm
	if user, userRealm, ok := strings.Cut(cfg.Username, "@"); ok {
		principal = user
		if realm == "" {
			realm = userRealm
		}
	}

	if realm == "" {
		return "", "", fmt.Errorf("kerberos realm is required (set AD_KERBEROS_REALM or include realm in username)")
	}
	return principal, strings.ToUpper(realm), nil
}

// loadKrb5Config reads krb5.conf, or generates a DNS-discovery configuration
// when none was configured and the default file is absent.
func loadKrb5Config(cfg *ConnectionConfig, realm string, logger hclog.Logger) (*config.Config, error) {
	path := cfg.KerberosConfig
	if path == "" {
		path = defaultKrb5ConfPath
		if !fileExists(path) {
			logger.Debug("No krb5.conf found, using DNS discovery", "realm", realm)
			return config.NewFromString(generateRuntimeKrb5Conf(realm, cfg.Domain))
		}
	}

	krb5conf, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load Kerberos configuration %s: %w", path, err)
	}
	return krb5conf, nil
}

// createGSSAPIClient creates a GSSAPI client based on the configuration.
// Priority order: credential cache, keytab, password.
func createGSSAPIClient(cfg *ConnectionConfig, principal, realm string, krb5conf *config.Config, logger hclog.Logger) (*gssapi.Client, error) {
	disableFAST := krb5client.DisablePAFXFAST(true)

	ccachePath := cfg.KerberosCCache
	if ccachePath == "" && cfg.KerberosKeytab == "" && cfg.Password == "" {
		ccachePath = getDefaultCCachePath()
	}
	if ccachePath != "" && fileExists(ccachePath) {
		logger.Debug("Using credential cache", "path", ccachePath)
		ccache, err := credentials.LoadCCache(ccachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load credential cache %s: %w", ccachePath, err)
		}
		krbClient, err := krb5client.NewFromCCache(ccache, krb5conf, disableFAST)
		if err != nil {
			return nil, fmt.Errorf("failed to use credential cache %s: %w", ccachePath, err)
		}
		return &gssapi.Client{Client: krbClient}, nil
	}

	if principal == "" {
		return nil, fmt.Errorf("username (principal) is required for keytab or password authentication")
	}

	var krbClient *krb5client.Client
	switch {
	case cfg.KerberosKeytab != "":
		logger.Debug("Using keytab", "path", cfg.KerberosKeytab)
		kt, err := keytab.Load(cfg.KerberosKeytab)
		if err != nil {
			return nil, fmt.Errorf("failed to load keytab %s: %w", cfg.KerberosKeytab, err)
		}
		krbClient = krb5client.NewWithKeytab(principal, realm, kt, krb5conf, disableFAST)
	case cfg.Password != "":
		krbClient = krb5client.NewWithPassword(principal, realm, cfg.Password, krb5conf, disableFAST)
	default:
		return nil, fmt.Errorf("no suitable Kerberos credentials found: provide a credential cache, keytab or password")
	}

	if err := krbClient.Login(); err != nil {
		return nil, fmt.Errorf("kerberos login failed for %s@%s: %w", principal, realm, err)
	}

	return &gssapi.Client{Client: krbClient}, nil
}

// buildServicePrincipal constructs the LDAP service principal name from server info.
// If cfg.KerberosSPN is set, it overrides the automatic SPN construction.
func buildServicePrincipal(cfg *ConnectionConfig, server *ServerInfo) (string, error) {
	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	if server == nil || server.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}

	return "ldap/" + server.Host, nil
}

// generateRuntimeKrb5Conf builds a krb5.conf that locates KDCs through DNS SRV records.
func generateRuntimeKrb5Conf(realm, domain string) string {
	if domain == "" {
		domain = realm
	}
	domain = strings.ToLower(domain)

	return fmt.Sprintf(`[libdefaults]
    default_realm = %[1]s
    dns_lookup_kdc = true
    dns_lookup_realm = false
    rdns = false

[realms]
    %[1]s = {
    }

[domain_realm]
    .%[2]s = %[1]s
    %[2]s = %[1]s
`, realm, domain)
}

// getDefaultCCachePath returns the default credential cache location.
func getDefaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	file.Close()
	return true
}
