package rename

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ConflictExclusion is a set of users who share a surname and the first
// character of their name, and so would be given the same login name.
type ConflictExclusion struct {
	Surname string
	Initial rune
	Users   []UserRecord
}

// LogLine is the line recorded in the duplicates log:
// "Skipped users: A and B", or "Skipped users: A, B and C" for larger sets,
// naming each user by display name.
func (e ConflictExclusion) LogLine() string {
	names := make([]string, len(e.Users))
	for i, user := range e.Users {
		names[i] = user.DisplayName
	}

	last := len(names) - 1
	if last <= 0 {
		return "Skipped users: " + strings.Join(names, "")
	}
	return "Skipped users: " + strings.Join(names[:last], ", ") + " and " + names[last]
}

// ConflictReport is the outcome of conflict detection.
type ConflictReport struct {
	// Kept holds the users that may be processed, in roster order.
	Kept []UserRecord
	// Exclusions holds every colliding set, ordered by the roster position
	// of the surname's first member.
	Exclusions []ConflictExclusion
	// Malformed holds users removed because their name is empty while their
	// surname is shared, so a collision cannot be ruled out.
	Malformed []UserRecord
}

// DetectConflicts removes from roster every user who shares both surname and
// first name-character with another user. Comparison is exact and
// case-sensitive. Users whose surname is unique are always kept.
func DetectConflicts(roster []UserRecord) ConflictReport {
	bySurname := make(map[string][]int)
	var surnames []string
	for i, user := range roster {
		if _, seen := bySurname[user.Surname]; !seen {
			surnames = append(surnames, user.Surname)
		}
		bySurname[user.Surname] = append(bySurname[user.Surname], i)
	}

	excluded := make(map[int]bool)
	var report ConflictReport

	for _, surname := range surnames {
		members := bySurname[surname]
		if len(members) < 2 {
			continue
		}

		byInitial := make(map[rune][]int)
		var initials []rune
		for _, idx := range members {
			initial, ok := firstRune(roster[idx].Name)
			if !ok {
				excluded[idx] = true
				report.Malformed = append(report.Malformed, roster[idx])
				continue
			}
			if _, seen := byInitial[initial]; !seen {
				initials = append(initials, initial)
			}
			byInitial[initial] = append(byInitial[initial], idx)
		}

		for _, initial := range initials {
			colliding := byInitial[initial]
			if len(colliding) < 2 {
				continue
			}

			exclusion := ConflictExclusion{Surname: surname, Initial: initial}
			for _, idx := range colliding {
				excluded[idx] = true
				exclusion.Users = append(exclusion.Users, roster[idx])
			}
			report.Exclusions = append(report.Exclusions, exclusion)
		}
	}

	report.Kept = make([]UserRecord, 0, len(roster)-len(excluded))
	for i, user := range roster {
		if !excluded[i] {
			report.Kept = append(report.Kept, user)
		}
	}

	return report
}

func firstRune(s string) (rune, bool) {
	if s == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, true
}

// String describes the exclusion for operator output.
func (e ConflictExclusion) String() string {
	return fmt.Sprintf("%d users with surname %q and initial %q", len(e.Users), e.Surname, e.Initial)
}
