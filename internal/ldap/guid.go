package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// GUIDBytesLength is the size of a binary objectGUID.
const GUIDBytesLength = 16

// Active Directory stores objectGUID mixed-endian: the first three fields are
// little-endian, the trailing eight bytes are in network order. swapGUIDBytes
// converts between that layout and RFC 4122 order; it is its own inverse.
func swapGUIDBytes(in []byte) []byte {
	out := make([]byte, GUIDBytesLength)
	out[0], out[1], out[2], out[3] = in[3], in[2], in[1], in[0]
	out[4], out[5] = in[5], in[4]
	out[6], out[7] = in[7], in[6]
	copy(out[8:], in[8:])
	return out
}

// GUIDBytesToString converts binary objectGUID bytes to the canonical
// lower-case hyphenated form.
func GUIDBytesToString(guidBytes []byte) (string, error) {
	if len(guidBytes) != GUIDBytesLength {
		return "", fmt.Errorf("invalid GUID byte length: expected %d, got %d", GUIDBytesLength, len(guidBytes))
	}

	id, err := uuid.FromBytes(swapGUIDBytes(guidBytes))
	if err != nil {
		return "", fmt.Errorf("invalid GUID bytes: %w", err)
	}
	return id.String(), nil
}

// StringToGUIDBytes converts a GUID string (hyphenated, compact or braced)
// to the binary objectGUID layout.
func StringToGUIDBytes(guidString string) ([]byte, error) {
	id, err := uuid.Parse(strings.TrimSpace(guidString))
	if err != nil {
		return nil, fmt.Errorf("invalid GUID format %q: %w", guidString, err)
	}
	return swapGUIDBytes(id[:]), nil
}

// GUIDToSearchFilter builds an equality filter on objectGUID with every byte
// hex-escaped.
func GUIDToSearchFilter(guidString string) (string, error) {
	guidBytes, err := StringToGUIDBytes(guidString)
	if err != nil {
		return "", err
	}

	var filter strings.Builder
	filter.WriteString("(objectGUID=")
	for _, b := range guidBytes {
		fmt.Fprintf(&filter, "\\%02x", b)
	}
	filter.WriteString(")")
	return filter.String(), nil
}

// ExtractGUID reads objectGUID from entry. Entries without a binary GUID
// return an empty string.
func ExtractGUID(entry *ldap.Entry) string {
	if entry == nil {
		return ""
	}

	guid, err := GUIDBytesToString(entry.GetRawAttributeValue("objectGUID"))
	if err != nil {
		return ""
	}
	return guid
}
