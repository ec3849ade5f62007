package rename

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"
)

// maxLoginNameLength is the sAMAccountName limit for user accounts.
const maxLoginNameLength = 20

// invalidLoginNameChars may not appear in a sAMAccountName.
const invalidLoginNameChars = "\"/\\[]:;|=,+*?<>@"

// LoginNameDeriver derives login names from the live directory.
type LoginNameDeriver struct {
	dir Directory
}

// NewLoginNameDeriver returns a deriver that looks users up in dir.
func NewLoginNameDeriver(dir Directory) *LoginNameDeriver {
	return &LoginNameDeriver{dir: dir}
}

// displayNameFilter matches person accounts with exactly this display name.
func displayNameFilter(displayName string) string {
	return fmt.Sprintf("(&(objectClass=user)(objectCategory=person)(displayName=%s))", ldap.EscapeFilter(displayName))
}

// Derive looks up the account with displayName and returns its login name.
// The given name and surname are read from the directory, not the roster.
// Exactly one account must match.
func (d *LoginNameDeriver) Derive(ctx context.Context, displayName string) (string, error) {
	if displayName == "" {
		return "", fmt.Errorf("%w: empty displayName", ErrMalformedRecord)
	}

	entries, err := d.dir.Search(ctx, displayNameFilter(displayName), []string{"givenName", "sn"})
	if err != nil {
		return "", fmt.Errorf("failed to look up %q: %w", displayName, err)
	}

	switch len(entries) {
	case 0:
		return "", fmt.Errorf("%w: displayName %q", ErrNotFound, displayName)
	case 1:
	default:
		return "", fmt.Errorf("%w: %d records have displayName %q", ErrAmbiguous, len(entries), displayName)
	}

	entry := entries[0]
	givenName := entry.GetAttributeValue("givenName")
	surname := entry.GetAttributeValue("sn")
	if givenName == "" {
		return "", fmt.Errorf("%w: %s has no givenName", ErrMalformedRecord, entry.DN)
	}
	if surname == "" {
		return "", fmt.Errorf("%w: %s has no sn", ErrMalformedRecord, entry.DN)
	}

	loginName := LoginName(givenName, surname)
	if err := ValidateLoginName(loginName); err != nil {
		return "", err
	}
	return loginName, nil
}

// LoginName is the lower-cased "<first letter of givenName>.<surname>".
// Both arguments must be non-empty.
func LoginName(givenName, surname string) string {
	initial, _ := utf8.DecodeRuneInString(givenName)
	return strings.ToLower(string(initial) + "." + surname)
}

// ValidateLoginName checks loginName against the sAMAccountName rules.
func ValidateLoginName(loginName string) error {
	if loginName == "" {
		return fmt.Errorf("%w: empty", ErrInvalidLoginName)
	}
	if n := utf8.RuneCountInString(loginName); n > maxLoginNameLength {
		return fmt.Errorf("%w: %q is %d characters, limit is %d", ErrInvalidLoginName, loginName, n, maxLoginNameLength)
	}
	if i := strings.IndexAny(loginName, invalidLoginNameChars); i >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidLoginName, loginName, loginName[i])
	}
	return nil
}
