package rename

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Summary counts what happened to the roster.
type Summary struct {
	Total     int
	Excluded  int
	Malformed int
	Committed int
	Skipped   int
	DryRun    int
	Failed    int
}

// HasFailures reports whether any commit or folder lookup failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

func (s *Summary) record(out Outcome) {
	switch {
	case out.State == StateCommitted:
		s.Committed++
	case out.DryRun:
		s.DryRun++
	case out.State == StateFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// Runner drives a whole migration: load, conflict check, then one
// transaction per remaining user in display-name order.
type Runner struct {
	dir     Directory
	renamer *Renamer
	dupLog  DuplicateLog
	op      Operator
	noPause bool
	logger  hclog.Logger
}

// NewRunner returns a Runner. renamer must share dir and op.
func NewRunner(dir Directory, renamer *Renamer, dupLog DuplicateLog, op Operator, opts Options, logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{
		dir:     dir,
		renamer: renamer,
		dupLog:  dupLog,
		op:      op,
		noPause: opts.NoPause,
		logger:  logger.Named("rename"),
	}
}

// Run processes the roster. The returned error is fatal; per-user failures
// are counted in the Summary instead.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	roster, err := LoadRoster(ctx, r.dir)
	if err != nil {
		return summary, err
	}
	summary.Total = len(roster)
	r.op.Info(fmt.Sprintf("Users found: %d", len(roster)))

	r.op.Info("Checking for duplicate surnames that may cause conflicts...")
	report := DetectConflicts(roster)

	for _, exclusion := range report.Exclusions {
		names := make([]string, len(exclusion.Users))
		for i, user := range exclusion.Users {
			names[i] = user.Name
		}
		r.op.Warn("Username conflict detected: " + strings.Join(names, " AND "))
		r.op.Warn("These users will be skipped and should be done manually. They are written to the duplicates log.")
		r.logger.Info("Excluded conflicting users", "conflict", exclusion.String())

		if err := r.dupLog.Append(exclusion.LogLine()); err != nil {
			return summary, err
		}
		summary.Excluded += len(exclusion.Users)
	}
	for _, user := range report.Malformed {
		r.op.Warn(fmt.Sprintf("Skipping %s: empty name while the surname %q is shared.", user.Label(), user.Surname))
		summary.Malformed++
	}
	if len(report.Exclusions) == 0 && len(report.Malformed) == 0 {
		r.op.Success("No duplicate user conflicts have been found!")
	}

	if err := r.pause(ctx, "We're all set! Press any key to get started..."); err != nil {
		return summary, err
	}

	users := report.Kept
	SortByDisplayName(users)

	for i, user := range users {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r.op.Info(fmt.Sprintf("(%d/%d) The following properties will be changed to user: %s", i+1, len(users), user.Label()))

		out, err := r.renamer.Process(ctx, user)
		if err != nil {
			// An abort leaves the user unprocessed rather than skipped.
			if out.State == StateFailed {
				summary.record(out)
			}
			return summary, fmt.Errorf("stopped at %s: %w", user.Label(), err)
		}
		summary.record(out)

		if i < len(users)-1 {
			if err := r.pause(ctx, "Press any key to continue..."); err != nil {
				return summary, err
			}
		}
	}

	r.logger.Info("Run finished",
		"total", summary.Total,
		"committed", summary.Committed,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}

func (r *Runner) pause(ctx context.Context, message string) error {
	if r.noPause {
		return nil
	}
	return r.op.Pause(ctx, message)
}
