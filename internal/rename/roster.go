package rename

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-ldap/ldap/v3"

	ldapclient "github.com/isometry/ad-renamer/internal/ldap"
)

// PersonFilter selects user accounts belonging to people.
const PersonFilter = "(&(objectClass=user)(objectCategory=person))"

var rosterAttributes = []string{
	"cn",
	"displayName",
	"name",
	"profilePath",
	"sAMAccountName",
	"userPrincipalName",
	"homeDirectory",
	"mailNickname",
	"sn",
	"objectGUID",
	"objectSid",
}

// LoadRoster reads every person account under the directory's search root.
func LoadRoster(ctx context.Context, dir Directory) ([]UserRecord, error) {
	entries, err := dir.Search(ctx, PersonFilter, rosterAttributes)
	if err != nil {
		return nil, fmt.Errorf("failed to load user roster: %w", err)
	}

	roster := make([]UserRecord, 0, len(entries))
	for _, entry := range entries {
		roster = append(roster, recordFromEntry(entry))
	}
	return roster, nil
}

func recordFromEntry(entry *ldap.Entry) UserRecord {
	return UserRecord{
		DistinguishedName: entry.DN,
		ObjectGUID:        ldapclient.ExtractGUID(entry),
		ObjectSID:         ldapclient.ExtractSID(entry),
		CommonName:        entry.GetAttributeValue("cn"),
		DisplayName:       entry.GetAttributeValue("displayName"),
		Name:              entry.GetAttributeValue("name"),
		ProfilePath:       entry.GetAttributeValue("profilePath"),
		SamAccountName:    entry.GetAttributeValue("sAMAccountName"),
		UserPrincipalName: entry.GetAttributeValue("userPrincipalName"),
		HomeDirectory:     entry.GetAttributeValue("homeDirectory"),
		MailNickname:      entry.GetAttributeValue("mailNickname"),
		Surname:           entry.GetAttributeValue("sn"),
	}
}

// SortByDisplayName orders users by display name, ignoring case. Ties keep
// their roster order.
func SortByDisplayName(users []UserRecord) {
	slices.SortStableFunc(users, func(a, b UserRecord) int {
		return strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
	})
}
