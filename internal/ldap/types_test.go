package ldap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, uint32(1000), config.PageSize)
	assert.True(t, config.UseTLS)
	assert.False(t, config.SkipTLSVerify)
}

func TestConnectionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConnectionConfig)
		wantErr bool
	}{
		{name: "domain only", mutate: func(c *ConnectionConfig) { c.Domain = "example.com" }},
		{name: "urls only", mutate: func(c *ConnectionConfig) { c.LDAPURLs = []string{"ldaps://dc1.example.com"} }},
		{name: "no domain or urls", mutate: func(c *ConnectionConfig) {}, wantErr: true},
		{name: "zero timeout", mutate: func(c *ConnectionConfig) {
			c.Domain = "example.com"
			c.Timeout = 0
		}, wantErr: true},
		{name: "zero page size", mutate: func(c *ConnectionConfig) {
			c.Domain = "example.com"
			c.PageSize = 0
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConnectionConfig_GetAuthMethod(t *testing.T) {
	tests := []struct {
		name     string
		config   *ConnectionConfig
		expected AuthMethod
	}{
		{
			name:     "simple bind with username and password",
			config:   &ConnectionConfig{Username: "svc-renamer", Password: "secret"},
			expected: AuthMethodSimpleBind,
		},
		{
			name:     "kerberos with realm and keytab",
			config:   &ConnectionConfig{KerberosRealm: "EXAMPLE.COM", KerberosKeytab: "/path/to/keytab"},
			expected: AuthMethodKerberos,
		},
		{
			name:     "kerberos with realm and credential cache",
			config:   &ConnectionConfig{KerberosRealm: "EXAMPLE.COM", KerberosCCache: "/tmp/krb5cc_0"},
			expected: AuthMethodKerberos,
		},
		{
			name:     "kerberos takes precedence over password",
			config:   &ConnectionConfig{Username: "svc-renamer", Password: "secret", KerberosRealm: "EXAMPLE.COM"},
			expected: AuthMethodKerberos,
		},
		{
			name:     "external auth with client certificates",
			config:   &ConnectionConfig{TLSClientCertFile: "/path/to/cert.pem", TLSClientKeyFile: "/path/to/key.pem"},
			expected: AuthMethodExternal,
		},
		{
			name:     "empty config defaults to simple bind",
			config:   &ConnectionConfig{},
			expected: AuthMethodSimpleBind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.GetAuthMethod())
		})
	}
}

func TestConnectionConfig_HasAuthentication(t *testing.T) {
	assert.True(t, (&ConnectionConfig{Username: "u", Password: "p"}).HasAuthentication())
	assert.True(t, (&ConnectionConfig{KerberosRealm: "EXAMPLE.COM", Username: "u"}).HasAuthentication())
	assert.True(t, (&ConnectionConfig{TLSClientCertFile: "c", TLSClientKeyFile: "k"}).HasAuthentication())
	assert.False(t, (&ConnectionConfig{Username: "u"}).HasAuthentication())
	assert.False(t, (&ConnectionConfig{}).HasAuthentication())
}

func TestAuthMethod_String(t *testing.T) {
	assert.Equal(t, "simple", AuthMethodSimpleBind.String())
	assert.Equal(t, "kerberos", AuthMethodKerberos.String())
	assert.Equal(t, "external", AuthMethodExternal.String())
	assert.Equal(t, "unknown", AuthMethod(99).String())
}
