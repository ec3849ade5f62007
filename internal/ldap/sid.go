package ldap

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
)

// ConvertBinarySIDToString converts a binary objectSid to its S-1-5-21-... form.
func ConvertBinarySIDToString(binarySID []byte) (string, error) {
	// revision, sub-authority count and 6-byte authority, then 4 bytes per sub-authority
	if len(binarySID) < 8 {
		return "", fmt.Errorf("binary SID too short: %d bytes", len(binarySID))
	}
	if want := 8 + 4*int(binarySID[1]); len(binarySID) != want {
		return "", fmt.Errorf("binary SID length %d does not match %d sub-authorities", len(binarySID), binarySID[1])
	}

	return objectsid.Decode(binarySID).String(), nil
}

// ExtractSID reads objectSid from entry. Binary values are decoded; a value
// already in string form is returned as-is. Missing or malformed values
// return an empty string.
func ExtractSID(entry *ldap.Entry) string {
	if entry == nil {
		return ""
	}

	raw := entry.GetRawAttributeValue("objectSid")
	if len(raw) == 0 {
		return ""
	}

	if value := string(raw); strings.HasPrefix(value, "S-1-") {
		return value
	}

	sid, err := ConvertBinarySIDToString(raw)
	if err != nil {
		return ""
	}
	return sid
}
