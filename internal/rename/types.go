// Package rename converts directory accounts to the <initial>.<surname>
// login convention. It finds surname collisions, derives each new login
// name, maps the user's profile and home folders, previews the change and,
// once the operator confirms, renames the folders and rewrites the
// directory record.
package rename

import (
	"context"

	"github.com/go-ldap/ldap/v3"
)

// Directory is the query, update and rename capability of the user directory.
type Directory interface {
	Search(ctx context.Context, filter string, attributes []string) ([]*ldap.Entry, error)
	Modify(ctx context.Context, dn string, replace map[string][]string) error
	Rename(ctx context.Context, dn, newRDN string) error
}

// UserRecord is one account as read from the directory. Attributes absent
// from the directory are empty strings.
type UserRecord struct {
	DistinguishedName string
	ObjectGUID        string
	ObjectSID         string

	CommonName        string // cn
	DisplayName       string // displayName
	Name              string // name
	ProfilePath       string // profilePath
	SamAccountName    string // sAMAccountName
	UserPrincipalName string // userPrincipalName
	HomeDirectory     string // homeDirectory
	MailNickname      string // mailNickname
	Surname           string // sn
}

// Label identifies the user in operator messages.
func (u UserRecord) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	return u.SamAccountName
}

// ProposedIdentity is the identity a user will have after the rename.
type ProposedIdentity struct {
	LoginName         string
	CommonName        string
	Name              string
	MailNickname      string
	SamAccountName    string
	UserPrincipalName string
	HomeDirectory     string
	ProfilePath       string
}

// NewProposedIdentity builds the identity for loginName. Every naming
// attribute takes the login name; the folder attributes follow the
// destinations of the folder mappings.
func NewProposedIdentity(loginName, upnSuffix string, profile, home FolderMapping) ProposedIdentity {
	return ProposedIdentity{
		LoginName:         loginName,
		CommonName:        loginName,
		Name:              loginName,
		MailNickname:      loginName,
		SamAccountName:    loginName,
		UserPrincipalName: loginName + "@" + upnSuffix,
		HomeDirectory:     home.DestinationPath,
		ProfilePath:       ProfilePathAttribute(profile.DestinationPath),
	}
}

// FieldChange is one row of the preview.
type FieldChange struct {
	Attribute string
	Old       string
	New       string
}

// Changes lists the attributes whose value differs between user and
// proposed. The folder attributes are left out when the corresponding folder
// was not found.
func Changes(user UserRecord, proposed ProposedIdentity, profile, home FolderMapping) []FieldChange {
	candidates := []FieldChange{
		{Attribute: "sAMAccountName", Old: user.SamAccountName, New: proposed.SamAccountName},
		{Attribute: "cn", Old: user.CommonName, New: proposed.CommonName},
		{Attribute: "mailNickname", Old: user.MailNickname, New: proposed.MailNickname},
		{Attribute: "userPrincipalName", Old: user.UserPrincipalName, New: proposed.UserPrincipalName},
		{Attribute: "name", Old: user.Name, New: proposed.Name},
	}
	if profile.Exists {
		candidates = append(candidates, FieldChange{Attribute: "profilePath", Old: user.ProfilePath, New: proposed.ProfilePath})
	}
	if home.Exists {
		candidates = append(candidates, FieldChange{Attribute: "homeDirectory", Old: user.HomeDirectory, New: proposed.HomeDirectory})
	}

	var changes []FieldChange
	for _, c := range candidates {
		if c.Old != c.New {
			changes = append(changes, c)
		}
	}
	return changes
}

// attributeUpdate is the replace set written to the directory record. Both
// folder attributes are always written, whether or not the folder was found.
func (p ProposedIdentity) attributeUpdate() map[string][]string {
	return map[string][]string{
		"sAMAccountName":    {p.SamAccountName},
		"mailNickname":      {p.MailNickname},
		"userPrincipalName": {p.UserPrincipalName},
		"homeDirectory":     {p.HomeDirectory},
		"profilePath":       {p.ProfilePath},
	}
}
