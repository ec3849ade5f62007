package config

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/afero"

	ldapclient "github.com/isometry/ad-renamer/internal/ldap"
)

// environment lists the variables read at startup. Names follow the Active
// Directory provider's AD_* convention.
type environment struct {
	Domain            string `env:"AD_DOMAIN"`
	LDAPURL           string `env:"AD_LDAP_URL"`
	Username          string `env:"AD_USERNAME"`
	Password          string `env:"AD_PASSWORD"`
	KerberosRealm     string `env:"AD_KERBEROS_REALM"`
	KerberosKeytab    string `env:"AD_KERBEROS_KEYTAB"`
	KerberosConfig    string `env:"AD_KERBEROS_CONFIG"`
	KerberosCCache    string `env:"AD_KERBEROS_CCACHE"`
	KerberosSPN       string `env:"AD_KERBEROS_SPN"`
	UseTLS            bool   `env:"AD_USE_TLS, default=true"`
	SkipTLSVerify     bool   `env:"AD_SKIP_TLS_VERIFY, default=false"`
	TLSCACertFile     string `env:"AD_TLS_CA_CERT_FILE"`
	TLSCACert         string `env:"AD_TLS_CA_CERT"`
	TLSClientCertFile string `env:"AD_TLS_CLIENT_CERT_FILE"`
	TLSClientKeyFile  string `env:"AD_TLS_CLIENT_KEY_FILE"`
	ConnectTimeout    int    `env:"AD_CONNECT_TIMEOUT, default=30"` // seconds
	PageSize          uint32 `env:"AD_PAGE_SIZE, default=1000"`

	UPNSuffix     string `env:"AD_UPN_SUFFIX"`
	DuplicatesLog string `env:"AD_DUPLICATES_LOG, default=duplicates.txt"`
}

// Config is built once at startup and passed to every component.
type Config struct {
	Settings   *Settings
	Connection *ldapclient.ConnectionConfig
	// UPNSuffix follows the "@" of every new userPrincipalName.
	UPNSuffix string
	// DuplicatesLog is the path of the conflict log.
	DuplicatesLog string
}

// Load reads the settings file at settingsPath from fs and the connection
// settings from lookuper, and checks that both folder roots exist.
func Load(ctx context.Context, fs afero.Fs, settingsPath string, lookuper envconfig.Lookuper, logger hclog.Logger) (*Config, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("config")

	settings, err := LoadSettings(fs, settingsPath)
	if err != nil {
		return nil, err
	}

	var env environment
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	conn, err := connectionConfig(settings, &env)
	if err != nil {
		return nil, err
	}

	upnSuffix := env.UPNSuffix
	if upnSuffix == "" {
		upnSuffix, err = ldapclient.DomainFromDN(settings.BaseDN)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}
	if upnSuffix == "" {
		return nil, fmt.Errorf("%w: search root has no DC components; set AD_UPN_SUFFIX", ErrConfig)
	}

	for _, root := range []string{settings.ProfileRoot, settings.HomeRoot} {
		exists, err := afero.DirExists(fs, root)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: folder root %s does not exist", ErrConfig, root)
		}
	}

	cfg := &Config{
		Settings:      settings,
		Connection:    conn,
		UPNSuffix:     upnSuffix,
		DuplicatesLog: env.DuplicatesLog,
	}

	fields := ldapclient.SanitizeFields(map[string]any{
		"base_dn":      conn.BaseDN,
		"domain":       conn.Domain,
		"ldap_urls":    conn.LDAPURLs,
		"auth_method":  conn.GetAuthMethod().String(),
		"username":     conn.Username,
		"password":     conn.Password,
		"profile_root": settings.ProfileRoot,
		"home_root":    settings.HomeRoot,
		"upn_suffix":   upnSuffix,
	})
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	logger.Debug("Loaded configuration", args...)

	return cfg, nil
}

// connectionConfig maps the environment onto the LDAP client settings. The
// server comes from AD_LDAP_URL, else the search root URL, else AD_DOMAIN,
// else the search root's DC components.
func connectionConfig(settings *Settings, env *environment) (*ldapclient.ConnectionConfig, error) {
	conn := ldapclient.DefaultConfig()
	conn.BaseDN = settings.BaseDN

	switch {
	case env.LDAPURL != "":
		conn.LDAPURLs = []string{env.LDAPURL}
	case settings.ServerURL != "":
		conn.LDAPURLs = []string{settings.ServerURL}
	case env.Domain != "":
		conn.Domain = env.Domain
	default:
		domain, err := ldapclient.DomainFromDN(settings.BaseDN)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		conn.Domain = domain
	}

	conn.Username = env.Username
	conn.Password = env.Password
	conn.KerberosRealm = env.KerberosRealm
	conn.KerberosKeytab = env.KerberosKeytab
	conn.KerberosConfig = env.KerberosConfig
	conn.KerberosCCache = env.KerberosCCache
	conn.KerberosSPN = env.KerberosSPN

	conn.UseTLS = env.UseTLS
	conn.SkipTLSVerify = env.SkipTLSVerify
	conn.TLSCACertFile = env.TLSCACertFile
	conn.TLSCACert = env.TLSCACert
	conn.TLSClientCertFile = env.TLSClientCertFile
	conn.TLSClientKeyFile = env.TLSClientKeyFile

	if env.ConnectTimeout <= 0 {
		return nil, fmt.Errorf("%w: AD_CONNECT_TIMEOUT must be positive, got %d", ErrConfig, env.ConnectTimeout)
	}
	conn.Timeout = time.Duration(env.ConnectTimeout) * time.Second
	conn.PageSize = env.PageSize

	if !conn.HasAuthentication() {
		return nil, fmt.Errorf("%w: no credentials; set AD_USERNAME and AD_PASSWORD, or AD_KERBEROS_REALM with a keytab, credential cache or username", ErrConfig)
	}
	if err := conn.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return conn, nil
}
