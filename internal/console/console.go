// Package console is the operator's side of a run: coloured status lines,
// the per-user preview table and single-key yes/no prompts.
package console

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/isometry/ad-renamer/internal/rename"
)

const arrow = "========>"

var (
	colorInfo    = lipgloss.Color("15") // white
	colorWarn    = lipgloss.Color("11") // yellow
	colorError   = lipgloss.Color("9")  // red
	colorSuccess = lipgloss.Color("10") // green
	colorPrompt  = lipgloss.Color("2")  // dark green
	colorBanner  = lipgloss.Color("13") // magenta
	colorMuted   = lipgloss.Color("8")  // grey
)

type styles struct {
	info, warn, err, success, prompt, banner, header, muted lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		info:    r.NewStyle().Foreground(colorInfo),
		warn:    r.NewStyle().Foreground(colorWarn),
		err:     r.NewStyle().Foreground(colorError),
		success: r.NewStyle().Foreground(colorSuccess),
		prompt:  r.NewStyle().Foreground(colorPrompt).Bold(true),
		banner:  r.NewStyle().Foreground(colorBanner).Border(lipgloss.DoubleBorder()).BorderForeground(colorBanner).Padding(0, 2),
		header:  r.NewStyle().Bold(true).PaddingRight(2),
		muted:   r.NewStyle().Foreground(colorMuted).PaddingRight(2),
	}
}

// Console writes to out and reads answers from keys. It implements
// rename.Operator.
type Console struct {
	out    io.Writer
	keys   KeyReader
	styles styles
}

// New returns a Console rendering for out.
func New(out io.Writer, keys KeyReader) *Console {
	return &Console{
		out:    out,
		keys:   keys,
		styles: newStyles(lipgloss.NewRenderer(out)),
	}
}

var _ rename.Operator = (*Console)(nil)

// Confirm shows question and waits for Y or N.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintln(c.out, c.styles.prompt.Render(question+": Y / N"))
	answer, err := AskYesNo(ctx, c.keys)
	if err != nil {
		fmt.Fprintln(c.out)
		return false, err
	}
	return answer, nil
}

// AskYesNo reads keys until y or n, in either case, is pressed. Other keys
// are ignored. Ctrl-C returns rename.ErrAborted.
func AskYesNo(ctx context.Context, keys KeyReader) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		key, err := keys.ReadKey()
		if err != nil {
			return false, err
		}

		switch key {
		case 'y', 'Y':
			return true, nil
		case 'n', 'N':
			return false, nil
		case keyInterrupt:
			return false, rename.ErrAborted
		}
	}
}

// Pause shows message and waits for any key.
func (c *Console) Pause(ctx context.Context, message string) error {
	fmt.Fprintln(c.out, c.styles.info.Render(message))
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := c.keys.ReadKey()
	if err != nil {
		return err
	}
	if key == keyInterrupt {
		return rename.ErrAborted
	}
	return nil
}

// Preview prints the old and new value of every changed attribute.
func (c *Console) Preview(user rename.UserRecord, changes []rename.FieldChange) {
	fmt.Fprintln(c.out)
	if len(changes) == 0 {
		fmt.Fprintln(c.out, c.styles.muted.Render("No attribute changes for "+user.Label()+"."))
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("Property", "From", "", "To").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return c.styles.header
			}
			if col == 2 {
				return c.styles.muted
			}
			return c.styles.info.PaddingRight(2)
		})
	for _, change := range changes {
		t.Row(change.Attribute+":", change.Old, arrow, change.New)
	}

	fmt.Fprintln(c.out, t.String())
}

func (c *Console) Info(message string) {
	fmt.Fprintln(c.out, c.styles.info.Render(message))
}

func (c *Console) Warn(message string) {
	fmt.Fprintln(c.out, c.styles.warn.Render(message))
}

func (c *Console) Success(message string) {
	fmt.Fprintln(c.out, c.styles.success.Render(message))
}

func (c *Console) Error(message string) {
	fmt.Fprintln(c.out, c.styles.err.Render(message))
}

// Finale prints the closing banner with the run's counts.
func (c *Console) Finale(summary rename.Summary) {
	body := fmt.Sprintf("All selected users have been handled.\n\n"+
		"users found  %d\n"+
		"excluded     %d\n"+
		"malformed    %d\n"+
		"committed    %d\n"+
		"skipped      %d\n"+
		"dry run      %d\n"+
		"failed       %d",
		summary.Total, summary.Excluded, summary.Malformed,
		summary.Committed, summary.Skipped, summary.DryRun, summary.Failed)

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.styles.banner.Render(body))
}
