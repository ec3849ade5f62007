package rename

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// FolderKind distinguishes the two per-user folders.
type FolderKind int

const (
	ProfileFolder FolderKind = iota
	HomeFolder
)

func (k FolderKind) String() string {
	switch k {
	case ProfileFolder:
		return "profile"
	case HomeFolder:
		return "home"
	default:
		return fmt.Sprintf("FolderKind(%d)", int(k))
	}
}

const (
	// profileMatchSuffix is appended to the current login name when looking
	// for a profile folder. Matching ignores case.
	profileMatchSuffix = ".v2"
	// profileDestSuffix is appended to the new login name to name the
	// renamed profile folder.
	profileDestSuffix = ".V2"
	// profilePathTrim is the number of trailing characters removed from the
	// profile destination to form the profilePath attribute. It is the length
	// of profileDestSuffix and must change with it.
	profilePathTrim = len(profileDestSuffix)
)

// FolderMapping locates one folder before and after the rename.
// SourcePath is empty when Exists is false.
type FolderMapping struct {
	Kind            FolderKind
	SourcePath      string
	DestinationPath string
	Exists          bool
	// ListErr is set when the root could not be listed. The folder then
	// counts as missing.
	ListErr error
}

// NeedsRename reports whether committing must move the folder.
func (m FolderMapping) NeedsRename() bool {
	return m.Exists && m.SourcePath != m.DestinationPath
}

// FolderMapper finds profile and home folders under their roots. Roots are
// joined to folder names by concatenation, so they carry their own trailing
// separator.
type FolderMapper struct {
	fs          afero.Fs
	profileRoot string
	homeRoot    string
}

// NewFolderMapper returns a mapper over fs.
func NewFolderMapper(fs afero.Fs, profileRoot, homeRoot string) *FolderMapper {
	return &FolderMapper{fs: fs, profileRoot: profileRoot, homeRoot: homeRoot}
}

// Map locates the folders of currentLogin and computes their destinations
// under newLogin. A missing folder or an unreadable root is not an error.
func (m *FolderMapper) Map(currentLogin, newLogin string) (profile, home FolderMapping, err error) {
	profile, err = m.mapFolder(ProfileFolder, m.profileRoot, currentLogin+profileMatchSuffix, newLogin+profileDestSuffix)
	if err != nil {
		return FolderMapping{}, FolderMapping{}, err
	}
	home, err = m.mapFolder(HomeFolder, m.homeRoot, currentLogin, newLogin)
	if err != nil {
		return FolderMapping{}, FolderMapping{}, err
	}
	return profile, home, nil
}

func (m *FolderMapper) mapFolder(kind FolderKind, root, match, destName string) (FolderMapping, error) {
	mapping := FolderMapping{
		Kind:            kind,
		DestinationPath: root + destName,
	}

	entries, err := afero.ReadDir(m.fs, root)
	if err != nil {
		mapping.ListErr = fmt.Errorf("failed to list %s root %s: %w", kind, root, err)
		return mapping, nil
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() && strings.EqualFold(entry.Name(), match) {
			found = append(found, entry.Name())
		}
	}

	switch len(found) {
	case 0:
		return mapping, nil
	case 1:
		mapping.SourcePath = root + found[0]
		mapping.Exists = true
		return mapping, nil
	default:
		return FolderMapping{}, fmt.Errorf("%w: %s folders %s under %s", ErrDuplicateFolder, kind, strings.Join(found, ", "), root)
	}
}

// ProfilePathAttribute is the profilePath value for a profile destination:
// the destination without its trailing profileDestSuffix-length characters.
// Destinations no longer than that yield an empty string.
func ProfilePathAttribute(destination string) string {
	if len(destination) <= profilePathTrim {
		return ""
	}
	return destination[:len(destination)-profilePathTrim]
}
