package ldap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLDAPError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, NewLDAPError("search", nil))
	})

	t.Run("result error", func(t *testing.T) {
		cause := ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("00002098: SecErr"))
		result := NewLDAPError("modify", cause)

		require.NotNil(t, result)
		assert.Equal(t, "modify", result.Operation)
		assert.Equal(t, uint16(ldap.LDAPResultInsufficientAccessRights), result.LDAPCode)
		assert.Equal(t, ErrorCategoryPermission, result.Category)
		assert.Equal(t, "Insufficient access rights", result.Message)
		assert.Equal(t, "00002098: SecErr", result.ServerMsg)
		assert.Same(t, cause, result.Cause)
	})

	t.Run("wrapped result error", func(t *testing.T) {
		cause := fmt.Errorf("dial: %w", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("0000208D")))
		result := NewLDAPError("search", cause)

		require.NotNil(t, result)
		assert.Equal(t, ErrorCategoryNotFound, result.Category)
	})

	t.Run("generic error", func(t *testing.T) {
		result := NewLDAPError("connect", errors.New("connection refused"))

		require.NotNil(t, result)
		assert.Equal(t, ErrorCategoryConnection, result.Category)
		assert.Equal(t, "connection refused", result.Message)
		assert.Zero(t, result.LDAPCode)
	})
}

func TestLDAPError_Error(t *testing.T) {
	tests := []struct {
		name    string
		ldapErr *LDAPError
		want    string
	}{
		{
			name: "basic error",
			ldapErr: &LDAPError{
				Operation: "search",
				Message:   "operation failed",
			},
			want: "LDAP search failed - operation failed",
		},
		{
			name: "error with code",
			ldapErr: &LDAPError{
				Operation: "bind",
				LDAPCode:  ldap.LDAPResultInvalidCredentials,
				Message:   "authentication failed",
			},
			want: "LDAP bind failed (code 49) - authentication failed",
		},
		{
			name: "error with server message",
			ldapErr: &LDAPError{
				Operation: "modify",
				Message:   "Constraint violation",
				ServerMsg: "attribute too long",
			},
			want: "LDAP modify failed - Constraint violation - server: attribute too long",
		},
		{
			name: "error with DN",
			ldapErr: &LDAPError{
				Operation: "modify DN",
				Message:   "Entry already exists",
				DN:        "CN=Jane Doe,OU=Staff,DC=example,DC=com",
			},
			want: "LDAP modify DN failed - Entry already exists - DN: CN=Jane Doe,OU=Staff,DC=example,DC=com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ldapErr.Error())
		})
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		code uint16
		want ErrorCategory
	}{
		{name: "authentication", code: ldap.LDAPResultInvalidCredentials, want: ErrorCategoryAuthentication},
		{name: "permission", code: ldap.LDAPResultInsufficientAccessRights, want: ErrorCategoryPermission},
		{name: "not found", code: ldap.LDAPResultNoSuchObject, want: ErrorCategoryNotFound},
		{name: "conflict", code: ldap.LDAPResultEntryAlreadyExists, want: ErrorCategoryConflict},
		{name: "validation", code: ldap.LDAPResultConstraintViolation, want: ErrorCategoryValidation},
		{name: "filter", code: ldap.LDAPResultFilterError, want: ErrorCategoryValidation},
		{name: "server", code: ldap.LDAPResultBusy, want: ErrorCategoryServer},
		{name: "connection", code: ldap.LDAPResultConnectError, want: ErrorCategoryConnection},
		{name: "unknown", code: 9999, want: ErrorCategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeError(tt.code))
		})
	}
}

func TestCategorizeGenericError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{name: "connection", err: errors.New("connection refused"), want: ErrorCategoryConnection},
		{name: "timeout", err: errors.New("i/o timeout"), want: ErrorCategoryConnection},
		{name: "authentication", err: errors.New("invalid credentials"), want: ErrorCategoryAuthentication},
		{name: "permission", err: errors.New("access denied"), want: ErrorCategoryPermission},
		{name: "unknown", err: errors.New("something odd"), want: ErrorCategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeGenericError(tt.err))
		})
	}
}

func TestWrapError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, WrapError("search", nil))
	})

	t.Run("plain error gets operation", func(t *testing.T) {
		err := WrapError("bind", errors.New("authentication failed"))

		var ldapErr *LDAPError
		require.ErrorAs(t, err, &ldapErr)
		assert.Equal(t, "bind", ldapErr.Operation)
	})

	t.Run("already wrapped keeps operation", func(t *testing.T) {
		original := &LDAPError{Operation: "existing", Message: "test"}
		err := WrapError("search", original)

		assert.Same(t, original, err)
		assert.Equal(t, "existing", original.Operation)
	})

	t.Run("with DN", func(t *testing.T) {
		err := WrapErrorWithDN("modify", "CN=x,DC=example,DC=com", errors.New("access denied"))

		var ldapErr *LDAPError
		require.ErrorAs(t, err, &ldapErr)
		assert.Equal(t, "CN=x,DC=example,DC=com", ldapErr.DN)
		assert.Contains(t, err.Error(), "DN: CN=x,DC=example,DC=com")
	})
}

func TestErrorPredicates(t *testing.T) {
	notFound := NewLDAPError("search", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("missing")))
	conflict := ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("exists"))

	assert.True(t, IsNotFoundError(notFound))
	assert.False(t, IsNotFoundError(conflict))
	assert.True(t, IsConflictError(conflict))
	assert.True(t, IsConflictError(fmt.Errorf("rename: %w", conflict)))
	assert.False(t, IsConflictError(nil))
	assert.Equal(t, ErrorCategoryUnknown, GetErrorCategory(nil))

	denied := ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("denied"))
	assert.True(t, IsPermissionError(denied))
	assert.False(t, IsAuthenticationError(denied))

	badCreds := NewLDAPError("bind", ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("49")))
	assert.True(t, IsAuthenticationError(badCreds))
	assert.False(t, IsPermissionError(badCreds))
}
