package rename

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a lookup matched no directory record.
	ErrNotFound = errors.New("no matching directory record")
	// ErrAmbiguous means a lookup that must be unique matched several records.
	ErrAmbiguous = errors.New("more than one directory record matches")
	// ErrMalformedRecord means a record lacks an attribute the rename needs.
	ErrMalformedRecord = errors.New("directory record is missing a required attribute")
	// ErrInvalidLoginName means a derived login name is not a valid sAMAccountName.
	ErrInvalidLoginName = errors.New("invalid login name")
	// ErrFolderNotFound means a user's folder is absent or already renamed.
	ErrFolderNotFound = errors.New("folder not found or already renamed")
	// ErrFolderExists means a folder's destination is already taken.
	ErrFolderExists = errors.New("destination folder already exists")
	// ErrDuplicateFolder means more than one folder matches a login name.
	ErrDuplicateFolder = errors.New("more than one folder matches")
	// ErrAborted means the operator interrupted the run at a prompt.
	ErrAborted = errors.New("aborted by operator")
)

// CommitStep names a write performed while committing a rename.
type CommitStep string

const (
	StepRenameHomeFolder    CommitStep = "rename-home-folder"
	StepRenameProfileFolder CommitStep = "rename-profile-folder"
	StepResolveRecord       CommitStep = "resolve-record"
	StepModifyAttributes    CommitStep = "modify-attributes"
	StepRenameRecord        CommitStep = "rename-record"
)

// CommitError reports the step at which a commit stopped. Writes from
// earlier steps have already been applied.
type CommitError struct {
	User string
	Step CommitStep
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit for %s failed at %s: %v", e.User, e.Step, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
