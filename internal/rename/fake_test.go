package rename

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/spf13/afero"
)

// events is the shared write journal of the fake directory and filesystem.
type events []string

// fakeDirectory is an in-memory Directory. Filters are reduced to their
// attribute equality terms, all of which must match; objectClass and
// objectCategory terms are ignored.
type fakeDirectory struct {
	entries  []*ldap.Entry
	journal  *events
	searches []string

	searchErr error
	modifyErr error
	renameErr error

	modified map[string]map[string][]string
	renamed  map[string]string
}

func newFakeDirectory(journal *events, entries ...*ldap.Entry) *fakeDirectory {
	return &fakeDirectory{
		entries:  entries,
		journal:  journal,
		modified: make(map[string]map[string][]string),
		renamed:  make(map[string]string),
	}
}

var filterTerm = regexp.MustCompile(`\((\w+)=([^()]*)\)`)

func (d *fakeDirectory) Search(_ context.Context, filter string, _ []string) ([]*ldap.Entry, error) {
	d.searches = append(d.searches, filter)
	if d.searchErr != nil {
		return nil, d.searchErr
	}

	var matched []*ldap.Entry
	for _, entry := range d.entries {
		if matchesFilter(entry, filter) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (d *fakeDirectory) Modify(_ context.Context, dn string, replace map[string][]string) error {
	*d.journal = append(*d.journal, "modify "+dn)
	if d.modifyErr != nil {
		return d.modifyErr
	}
	d.modified[dn] = replace
	return nil
}

func (d *fakeDirectory) Rename(_ context.Context, dn, newRDN string) error {
	*d.journal = append(*d.journal, "rename "+dn+" "+newRDN)
	if d.renameErr != nil {
		return d.renameErr
	}
	d.renamed[dn] = newRDN
	return nil
}

func matchesFilter(entry *ldap.Entry, filter string) bool {
	for _, term := range filterTerm.FindAllStringSubmatch(filter, -1) {
		attr, value := term[1], unescapeFilterValue(term[2])
		if strings.EqualFold(attr, "objectClass") || strings.EqualFold(attr, "objectCategory") {
			continue
		}

		actual, ok := rawValue(entry, attr)
		if !ok {
			return false
		}
		if strings.EqualFold(attr, "objectGUID") {
			if !bytes.Equal(actual, value) {
				return false
			}
			continue
		}
		if !bytes.EqualFold(actual, value) {
			return false
		}
	}
	return true
}

func rawValue(entry *ldap.Entry, attr string) ([]byte, bool) {
	for _, a := range entry.Attributes {
		if strings.EqualFold(a.Name, attr) && len(a.ByteValues) > 0 {
			return a.ByteValues[0], true
		}
	}
	return nil, false
}

func unescapeFilterValue(value string) []byte {
	var out []byte
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+2 < len(value) {
			if b, err := hex.DecodeString(value[i+1 : i+3]); err == nil {
				out = append(out, b...)
				i += 2
				continue
			}
		}
		out = append(out, value[i])
	}
	return out
}

// recordingFs journals renames and can fail selected ones.
type recordingFs struct {
	afero.Fs
	journal *events
	failOn  map[string]error
}

func (f *recordingFs) Rename(oldname, newname string) error {
	*f.journal = append(*f.journal, "move "+oldname+" "+newname)
	if err, ok := f.failOn[oldname]; ok {
		return err
	}
	return f.Fs.Rename(oldname, newname)
}

// scriptedOperator answers prompts from a fixed script.
type scriptedOperator struct {
	answers   []bool
	abortAt   int // prompt number (1-based) that aborts; 0 never
	questions []string
	previews  [][]FieldChange
	messages  []string
	pauses    int
}

var errUnexpectedPrompt = errors.New("unexpected prompt")

func (o *scriptedOperator) Confirm(_ context.Context, question string) (bool, error) {
	o.questions = append(o.questions, question)
	if o.abortAt == len(o.questions) {
		return false, ErrAborted
	}
	if len(o.answers) == 0 {
		return false, fmt.Errorf("%w: %s", errUnexpectedPrompt, question)
	}
	answer := o.answers[0]
	o.answers = o.answers[1:]
	return answer, nil
}

func (o *scriptedOperator) Pause(context.Context, string) error {
	o.pauses++
	return nil
}

func (o *scriptedOperator) Preview(_ UserRecord, changes []FieldChange) {
	o.previews = append(o.previews, changes)
}

func (o *scriptedOperator) Info(m string)    { o.messages = append(o.messages, "info: "+m) }
func (o *scriptedOperator) Warn(m string)    { o.messages = append(o.messages, "warn: "+m) }
func (o *scriptedOperator) Success(m string) { o.messages = append(o.messages, "success: "+m) }
func (o *scriptedOperator) Error(m string)   { o.messages = append(o.messages, "error: "+m) }

// memoryLog is an in-memory DuplicateLog.
type memoryLog struct {
	lines []string
}

func (l *memoryLog) Append(line string) error {
	l.lines = append(l.lines, line)
	return nil
}

// person builds a directory entry from single-valued attributes.
func person(dn string, attrs map[string]string) *ldap.Entry {
	values := make(map[string][]string, len(attrs))
	for name, value := range attrs {
		values[name] = []string{value}
	}
	return ldap.NewEntry(dn, values)
}
