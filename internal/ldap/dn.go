package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EscapeDNValue escapes special characters in a DN attribute value according to RFC 4514.
//
// Examples:
//   - "John Doe" → "John Doe" (no change)
//   - "Doe, John" → "Doe\, John" (comma escaped)
//   - " John " → "\ John\ " (leading/trailing spaces escaped)
//   - "#123" → "\#123" (leading # escaped)
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var result strings.Builder
	result.Grow(len(value) + 10)

	for i, r := range value {
		switch r {
		case ',', '+', '"', '\\', '<', '>', ';', '=':
			result.WriteRune('\\')
			result.WriteRune(r)
		case '#':
			if i == 0 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case ' ':
			if i == 0 || i == len(value)-1 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case 0:
			result.WriteString("\\00")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// CommonNameRDN returns the CN= relative distinguished name for name.
func CommonNameRDN(name string) string {
	return "CN=" + EscapeDNValue(name)
}

// ValidateDN checks that dn parses as a distinguished name.
func ValidateDN(dn string) error {
	if strings.TrimSpace(dn) == "" {
		return fmt.Errorf("DN cannot be empty")
	}
	if _, err := ldap.ParseDN(dn); err != nil {
		return fmt.Errorf("invalid DN %q: %w", dn, err)
	}
	return nil
}

// DomainFromDN joins the DC components of dn into a DNS domain name, so
// "OU=Staff,DC=Example,DC=com" yields "example.com". It returns an empty
// string when dn has no DC components.
func DomainFromDN(dn string) (string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN %q: %w", dn, err)
	}

	var labels []string
	for _, rdn := range parsed.RDNs {
		for _, attr := range rdn.Attributes {
			if strings.EqualFold(attr.Type, "DC") {
				labels = append(labels, strings.ToLower(attr.Value))
			}
		}
	}

	return strings.Join(labels, "."), nil
}
