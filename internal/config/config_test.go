package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettings(t *testing.T) {
	tests := map[string]struct {
		input      string
		wantBaseDN string
		wantServer string
	}{
		"bare DN": {
			input:      "OU=Staff,DC=example,DC=com\n/srv/profiles/\n/srv/home/\n",
			wantBaseDN: "OU=Staff,DC=example,DC=com",
		},
		"CRLF and BOM": {
			input:      "\ufeffOU=Staff,DC=example,DC=com\r\n\\\\fs1\\profiles$\\\r\n\\\\fs1\\home$\\",
			wantBaseDN: "OU=Staff,DC=example,DC=com",
		},
		"serverless ADSI path": {
			input:      "LDAP://OU=Staff,DC=example,DC=com\n/p/\n/h/",
			wantBaseDN: "OU=Staff,DC=example,DC=com",
		},
		"ADSI path with server": {
			input:      "LDAP://dc1.example.com/OU=Staff,DC=example,DC=com\n/p/\n/h/",
			wantBaseDN: "OU=Staff,DC=example,DC=com",
			wantServer: "ldap://dc1.example.com",
		},
		"ldaps URL with port and escaped path": {
			input:      "ldaps://dc1.example.com:636/OU=Staff%20Members,DC=example,DC=com\n/p/\n/h/",
			wantBaseDN: "OU=Staff Members,DC=example,DC=com",
			wantServer: "ldaps://dc1.example.com:636",
		},
		"trailing lines ignored": {
			input:      "DC=example,DC=com\n/p/\n/h/\n\nnotes\n",
			wantBaseDN: "DC=example,DC=com",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			settings, err := ParseSettings([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantBaseDN, settings.BaseDN)
			assert.Equal(t, tt.wantServer, settings.ServerURL)
		})
	}

	t.Run("paths keep their trailing separator", func(t *testing.T) {
		settings, err := ParseSettings([]byte("DC=example,DC=com\r\n\\\\fs1\\profiles$\\\r\n\\\\fs1\\home$\\\r\n"))
		require.NoError(t, err)
		assert.Equal(t, `\\fs1\profiles$\`, settings.ProfileRoot)
		assert.Equal(t, `\\fs1\home$\`, settings.HomeRoot)
	})
}

func TestParseSettings_Errors(t *testing.T) {
	for name, input := range map[string]string{
		"empty":              "",
		"two lines":          "DC=example,DC=com\n/p/",
		"blank second line":  "DC=example,DC=com\n\n/h/\n",
		"not a DN":           "just words\n/p/\n/h/",
		"unsupported scheme": "GC://DC=example,DC=com\n/p/\n/h/",
		"URL without DN":     "ldap://dc1.example.com/\n/p/\n/h/",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSettings([]byte(input))
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func newSettingsFs(t *testing.T, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, DefaultSettingsFile, []byte(content), 0o644))
	require.NoError(t, fs.MkdirAll("/srv/profiles", 0o755))
	require.NoError(t, fs.MkdirAll("/srv/home", 0o755))
	return fs
}

const validSettings = "OU=Staff,DC=Example,DC=com\n/srv/profiles/\n/srv/home/\n"

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		fs := newSettingsFs(t, validSettings)
		env := envconfig.MapLookuper(map[string]string{
			"AD_USERNAME": "svc-renamer@example.com",
			"AD_PASSWORD": "secret",
		})

		cfg, err := Load(ctx, fs, DefaultSettingsFile, env, nil)
		require.NoError(t, err)

		assert.Equal(t, "OU=Staff,DC=Example,DC=com", cfg.Connection.BaseDN)
		assert.Equal(t, "example.com", cfg.Connection.Domain)
		assert.Empty(t, cfg.Connection.LDAPURLs)
		assert.True(t, cfg.Connection.UseTLS)
		assert.Equal(t, 30*time.Second, cfg.Connection.Timeout)
		assert.Equal(t, uint32(1000), cfg.Connection.PageSize)
		assert.Equal(t, "example.com", cfg.UPNSuffix)
		assert.Equal(t, "duplicates.txt", cfg.DuplicatesLog)
		assert.Equal(t, "/srv/profiles/", cfg.Settings.ProfileRoot)
	})

	t.Run("environment overrides", func(t *testing.T) {
		fs := newSettingsFs(t, validSettings)
		env := envconfig.MapLookuper(map[string]string{
			"AD_LDAP_URL":        "ldaps://dc2.example.com",
			"AD_KERBEROS_REALM":  "EXAMPLE.COM",
			"AD_KERBEROS_KEYTAB": "/etc/renamer.keytab",
			"AD_USERNAME":        "svc-renamer",
			"AD_USE_TLS":         "false",
			"AD_CONNECT_TIMEOUT": "5",
			"AD_PAGE_SIZE":       "200",
			"AD_UPN_SUFFIX":      "corp.example.org",
			"AD_DUPLICATES_LOG":  "/var/log/duplicates.txt",
		})

		cfg, err := Load(ctx, fs, DefaultSettingsFile, env, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"ldaps://dc2.example.com"}, cfg.Connection.LDAPURLs)
		assert.Equal(t, "kerberos", cfg.Connection.GetAuthMethod().String())
		assert.False(t, cfg.Connection.UseTLS)
		assert.Equal(t, 5*time.Second, cfg.Connection.Timeout)
		assert.Equal(t, uint32(200), cfg.Connection.PageSize)
		assert.Equal(t, "corp.example.org", cfg.UPNSuffix)
		assert.Equal(t, "/var/log/duplicates.txt", cfg.DuplicatesLog)
	})

	t.Run("search root URL supplies the server", func(t *testing.T) {
		fs := newSettingsFs(t, "LDAP://dc1.example.com/OU=Staff,DC=example,DC=com\n/srv/profiles/\n/srv/home/\n")
		env := envconfig.MapLookuper(map[string]string{"AD_USERNAME": "u", "AD_PASSWORD": "p"})

		cfg, err := Load(ctx, fs, DefaultSettingsFile, env, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"ldap://dc1.example.com"}, cfg.Connection.LDAPURLs)
	})
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	creds := map[string]string{"AD_USERNAME": "u", "AD_PASSWORD": "p"}

	tests := map[string]struct {
		fs  func(t *testing.T) afero.Fs
		env map[string]string
	}{
		"missing settings file": {
			fs:  func(t *testing.T) afero.Fs { return afero.NewMemMapFs() },
			env: creds,
		},
		"short settings file": {
			fs:  func(t *testing.T) afero.Fs { return newSettingsFs(t, "DC=example,DC=com\n/srv/profiles/") },
			env: creds,
		},
		"missing folder root": {
			fs: func(t *testing.T) afero.Fs {
				return newSettingsFs(t, "DC=example,DC=com\n/srv/profiles/\n/srv/elsewhere/\n")
			},
			env: creds,
		},
		"no credentials": {
			fs:  func(t *testing.T) afero.Fs { return newSettingsFs(t, validSettings) },
			env: map[string]string{},
		},
		"bad timeout": {
			fs:  func(t *testing.T) afero.Fs { return newSettingsFs(t, validSettings) },
			env: map[string]string{"AD_USERNAME": "u", "AD_PASSWORD": "p", "AD_CONNECT_TIMEOUT": "0"},
		},
		"unparsable boolean": {
			fs:  func(t *testing.T) afero.Fs { return newSettingsFs(t, validSettings) },
			env: map[string]string{"AD_USERNAME": "u", "AD_PASSWORD": "p", "AD_USE_TLS": "maybe"},
		},
		"no UPN suffix": {
			fs: func(t *testing.T) afero.Fs {
				return newSettingsFs(t, "OU=Staff,O=Example\n/srv/profiles/\n/srv/home/\n")
			},
			env: map[string]string{"AD_USERNAME": "u", "AD_PASSWORD": "p", "AD_DOMAIN": "example.com"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(ctx, tt.fs(t), DefaultSettingsFile, envconfig.MapLookuper(tt.env), nil)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}
