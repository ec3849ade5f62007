// Package config builds the run configuration: the three-line settings
// file names the search root and the two folder roots, and the environment
// supplies the directory connection and credentials.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/afero"

	ldapclient "github.com/isometry/ad-renamer/internal/ldap"
)

// ErrConfig wraps every configuration failure.
var ErrConfig = errors.New("configuration error")

// DefaultSettingsFile is read when no path is given.
const DefaultSettingsFile = "settings.ini"

// settingsLines is the number of significant lines in the settings file.
const settingsLines = 3

// Settings is the content of the settings file.
type Settings struct {
	// SearchRoot is line 1 as written.
	SearchRoot string
	// BaseDN is the distinguished name part of SearchRoot.
	BaseDN string
	// ServerURL is the server named by an LDAP URL search root, or empty
	// for a bare DN or a serverless LDAP://DN root.
	ServerURL string
	// ProfileRoot is line 2, the parent of the profile folders.
	ProfileRoot string
	// HomeRoot is line 3, the parent of the home folders.
	HomeRoot string
}

// LoadSettings reads the settings file at path.
func LoadSettings(fs afero.Fs, path string) (*Settings, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return ParseSettings(data)
}

// ParseSettings parses settings file content. The first three lines are
// significant and must not be blank; anything after them is ignored.
func ParseSettings(data []byte) (*Settings, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	lines := strings.Split(text, "\n")
	if len(lines) < settingsLines {
		return nil, fmt.Errorf("%w: settings file has %d lines, need %d", ErrConfig, len(lines), settingsLines)
	}

	values := make([]string, settingsLines)
	for i := range values {
		values[i] = strings.TrimSpace(lines[i])
		if values[i] == "" {
			return nil, fmt.Errorf("%w: settings line %d is empty", ErrConfig, i+1)
		}
	}

	serverURL, baseDN, err := parseSearchRoot(values[0])
	if err != nil {
		return nil, err
	}

	return &Settings{
		SearchRoot:  values[0],
		BaseDN:      baseDN,
		ServerURL:   serverURL,
		ProfileRoot: values[1],
		HomeRoot:    values[2],
	}, nil
}

// parseSearchRoot accepts a bare DN, ldap://host/DN, ldaps://host/DN or the
// serverless LDAP://DN form. Scheme matching ignores case.
func parseSearchRoot(root string) (serverURL, baseDN string, err error) {
	scheme, rest, hasScheme := strings.Cut(root, "://")
	if !hasScheme {
		baseDN = root
	} else {
		scheme = strings.ToLower(scheme)
		if scheme != "ldap" && scheme != "ldaps" {
			return "", "", fmt.Errorf("%w: unsupported search root scheme %q", ErrConfig, scheme)
		}

		host, path, _ := strings.Cut(rest, "/")
		if strings.Contains(host, "=") {
			// No server: the whole remainder is the DN.
			path = rest
			host = ""
		}

		baseDN, err = url.PathUnescape(path)
		if err != nil {
			return "", "", fmt.Errorf("%w: search root %q: %w", ErrConfig, root, err)
		}
		if host != "" {
			serverURL = scheme + "://" + host
		}
	}

	if baseDN == "" {
		return "", "", fmt.Errorf("%w: search root %q has no distinguished name", ErrConfig, root)
	}
	if err := ldapclient.ValidateDN(baseDN); err != nil {
		return "", "", fmt.Errorf("%w: search root: %w", ErrConfig, err)
	}
	return serverURL, baseDN, nil
}
