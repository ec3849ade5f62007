package rename

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	ldapclient "github.com/isometry/ad-renamer/internal/ldap"
)

// State is the position of one user in the rename transaction.
type State int

const (
	StateProposed State = iota
	StateFolderCheckPending
	StatePreviewed
	StateCommitted
	StateSkipped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateProposed:
		return "proposed"
	case StateFolderCheckPending:
		return "folder-check-pending"
	case StatePreviewed:
		return "previewed"
	case StateCommitted:
		return "committed"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Operator is the person driving the run. Confirm blocks until a yes or no
// answer; it returns ErrAborted if the operator interrupts instead.
type Operator interface {
	Confirm(ctx context.Context, question string) (bool, error)
	Pause(ctx context.Context, message string) error
	Preview(user UserRecord, changes []FieldChange)
	Info(message string)
	Warn(message string)
	Success(message string)
	Error(message string)
}

// Options carries the run settings the core needs.
type Options struct {
	UPNSuffix   string
	ProfileRoot string
	HomeRoot    string
	DryRun      bool
	NoPause     bool
}

// Outcome is where one user's transaction ended.
type Outcome struct {
	User     UserRecord
	Proposed ProposedIdentity
	Profile  FolderMapping
	Home     FolderMapping
	State    State
	// DryRun is set when the operator confirmed but nothing was written.
	DryRun bool
	// Err explains a Skipped or Failed state, if there is a cause to report.
	Err error
}

// Renamer runs the rename transaction for one user at a time.
type Renamer struct {
	dir       Directory
	fs        afero.Fs
	deriver   *LoginNameDeriver
	mapper    *FolderMapper
	op        Operator
	upnSuffix string
	dryRun    bool
	logger    hclog.Logger
}

// NewRenamer returns a Renamer writing to dir and fs.
func NewRenamer(dir Directory, fs afero.Fs, op Operator, opts Options, logger hclog.Logger) *Renamer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Renamer{
		dir:       dir,
		fs:        fs,
		deriver:   NewLoginNameDeriver(dir),
		mapper:    NewFolderMapper(fs, opts.ProfileRoot, opts.HomeRoot),
		op:        op,
		upnSuffix: opts.UPNSuffix,
		dryRun:    opts.DryRun,
		logger:    logger.Named("rename"),
	}
}

// Process takes user through proposal, folder check, preview and
// confirmation, and commits if the operator agrees. A non-nil error means
// the whole run must stop: the login-name lookup was ambiguous, the
// operator aborted, or the directory could not be queried.
func (r *Renamer) Process(ctx context.Context, user UserRecord) (Outcome, error) {
	out := Outcome{User: user, State: StateProposed}
	log := r.logger.With("user", user.SamAccountName, "display_name", user.DisplayName)

	loginName, err := r.deriver.Derive(ctx, user.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrMalformedRecord), errors.Is(err, ErrInvalidLoginName):
			log.Warn("Cannot derive login name", "error", err)
			r.op.Error(fmt.Sprintf("Cannot derive a login name for %s: %v", user.Label(), err))
			return r.skip(out, err), nil
		default:
			out.State = StateFailed
			out.Err = err
			return out, err
		}
	}
	if user.SamAccountName == "" {
		err := fmt.Errorf("%w: %s has no sAMAccountName", ErrMalformedRecord, user.DistinguishedName)
		r.op.Error(err.Error())
		return r.skip(out, err), nil
	}

	out.State = StateFolderCheckPending
	profile, home, err := r.mapper.Map(user.SamAccountName, loginName)
	if err != nil {
		log.Error("Folder lookup failed", "error", err)
		r.op.Error(fmt.Sprintf("Folder lookup failed for %s: %v", user.Label(), err))
		out.State = StateFailed
		out.Err = err
		return out, nil
	}
	out.Profile, out.Home = profile, home

	for _, mapping := range []FolderMapping{profile, home} {
		if mapping.Exists {
			continue
		}
		if mapping.ListErr != nil {
			log.Warn("Folder root unreadable", "error", mapping.ListErr)
			r.op.Warn(mapping.ListErr.Error())
		}
		proceed, err := r.confirmMissing(ctx, mapping.Kind)
		if err != nil {
			return out, err
		}
		if !proceed {
			return r.skip(out, fmt.Errorf("%w: %s folder", ErrFolderNotFound, mapping.Kind)), nil
		}
	}

	proposed := NewProposedIdentity(loginName, r.upnSuffix, profile, home)
	out.Proposed = proposed
	out.State = StatePreviewed
	r.op.Preview(user, Changes(user, proposed, profile, home))

	commit, err := r.op.Confirm(ctx, "Commit changes?")
	if err != nil {
		return out, err
	}
	if !commit {
		return r.skip(out, nil), nil
	}

	if r.dryRun {
		log.Info("Dry run, commit not applied", "login_name", loginName)
		r.op.Info("Dry run: no changes have been written, moving on to the next user.")
		out.State = StateSkipped
		out.DryRun = true
		return out, nil
	}

	if err := r.commit(ctx, user, proposed, profile, home); err != nil {
		log.Error("Commit failed", "error", err)
		r.op.Error(err.Error())
		if hint := commitHint(err); hint != "" {
			r.op.Warn(hint)
		}
		out.State = StateFailed
		out.Err = err
		return out, nil
	}

	log.Info("Committed rename",
		"login_name", loginName,
		"object_guid", user.ObjectGUID,
		"object_sid", user.ObjectSID)
	r.op.Success("Changes saved, moving on to the next user.")
	out.State = StateCommitted
	return out, nil
}

// commitHint suggests a cause for the common directory failures.
func commitHint(err error) string {
	switch {
	case ldapclient.IsPermissionError(err):
		return "The account running the renamer lacks the rights for this change."
	case ldapclient.IsConflictError(err):
		return "Another object already uses the new name."
	}
	return ""
}

func (r *Renamer) confirmMissing(ctx context.Context, kind FolderKind) (bool, error) {
	label := "Profile folder"
	if kind == HomeFolder {
		label = "User folder"
	}
	r.op.Warn(fmt.Sprintf("WARNING: %s not found or has already been renamed. Proceed?", label))
	return r.op.Confirm(ctx, "Select")
}

func (r *Renamer) skip(out Outcome, cause error) Outcome {
	r.op.Warn("No changes have been made, moving on to next user.")
	out.State = StateSkipped
	out.Err = cause
	return out
}

// commit renames the home folder, then the profile folder, then writes the
// directory record. Nothing is rolled back: a failure leaves earlier steps
// applied, and the returned CommitError names the step that failed.
func (r *Renamer) commit(ctx context.Context, user UserRecord, proposed ProposedIdentity, profile, home FolderMapping) error {
	fail := func(step CommitStep, err error) error {
		return &CommitError{User: user.Label(), Step: step, Err: err}
	}

	if err := r.moveFolder(home); err != nil {
		return fail(StepRenameHomeFolder, err)
	}
	if err := r.moveFolder(profile); err != nil {
		return fail(StepRenameProfileFolder, err)
	}

	dn, err := r.resolve(ctx, user)
	if err != nil {
		return fail(StepResolveRecord, err)
	}

	if err := r.dir.Modify(ctx, dn, proposed.attributeUpdate()); err != nil {
		return fail(StepModifyAttributes, err)
	}

	if proposed.Name != user.CommonName {
		if err := r.dir.Rename(ctx, dn, ldapclient.CommonNameRDN(proposed.Name)); err != nil {
			return fail(StepRenameRecord, err)
		}
	}
	return nil
}

// moveFolder renames a found folder to its destination, refusing to replace
// an existing one. A destination differing from the source only in case is
// the source itself on a case-insensitive share.
func (r *Renamer) moveFolder(m FolderMapping) error {
	if !m.NeedsRename() {
		return nil
	}

	if !strings.EqualFold(m.SourcePath, m.DestinationPath) {
		taken, err := afero.Exists(r.fs, m.DestinationPath)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrFolderExists, m.DestinationPath)
		}
	}

	if err := r.fs.Rename(m.SourcePath, m.DestinationPath); err != nil {
		return err
	}
	r.logger.Debug("Renamed folder", "kind", m.Kind, "from", m.SourcePath, "to", m.DestinationPath)
	return nil
}

// resolve finds the live record for user, by objectGUID when the roster
// captured one and by sAMAccountName otherwise.
func (r *Renamer) resolve(ctx context.Context, user UserRecord) (string, error) {
	var key string
	if user.ObjectGUID != "" {
		guidFilter, err := ldapclient.GUIDToSearchFilter(user.ObjectGUID)
		if err != nil {
			return "", err
		}
		key = guidFilter
	} else {
		key = fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(user.SamAccountName))
	}

	entries, err := r.dir.Search(ctx, "(&(objectClass=user)(objectCategory=person)"+key+")", []string{"distinguishedName"})
	if err != nil {
		return "", err
	}
	switch len(entries) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	case 1:
		return entries[0].DN, nil
	default:
		return "", fmt.Errorf("%w: %d records match %s", ErrAmbiguous, len(entries), key)
	}
}
