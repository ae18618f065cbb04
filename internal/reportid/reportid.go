// Package reportid allocates and parses report identifiers of the form
// "YYYY-NNNN", optionally followed by " S" for substitute reports.
package reportid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const SubstituteSuffix = " S"

// Pattern is lenient and also reads ids whose sequence outgrew four digits.
var Pattern = regexp.MustCompile(`^(\d{4})-(\d{4,})( S)?$`)

// StrictPattern is the format accepted from users.
var StrictPattern = regexp.MustCompile(`^\d{4}-\d{4}( S)?$`)

// ID is a parsed report identifier.
type ID struct {
	Year       int
	Seq        int
	Substitute bool
}

func (id ID) String() string {
	return Format(id.Year, id.Seq, id.Substitute)
}

func Format(year, seq int, substitute bool) string {
	s := fmt.Sprintf("%d-%04d", year, seq)
	if substitute {
		s += SubstituteSuffix
	}
	return s
}

func Parse(s string) (ID, error) {
	m := Pattern.FindStringSubmatch(s)
	if m == nil {
		return ID{}, fmt.Errorf("malformed report id %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return ID{}, fmt.Errorf("malformed report sequence %q: %w", s, err)
	}
	return ID{Year: year, Seq: seq, Substitute: m[3] != ""}, nil
}

// Valid reports whether s is a well-formed user supplied id.
func Valid(s string) bool {
	return StrictPattern.MatchString(s)
}

// MaxSequence returns the highest sequence among ids issued for year, or 0.
// Ids that do not carry a numeric sequence after the year prefix are ignored.
func MaxSequence(existing []string, year int) int {
	prefix := fmt.Sprintf("%d-", year)
	max := 0
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		rest := strings.TrimPrefix(id, prefix)
		if i := strings.IndexByte(rest, ' '); i >= 0 {
			rest = rest[:i]
		}
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, rest)
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max
}

// Next computes the next identifier from a snapshot of ids already used by one company.
// It has no synchronization of its own; concurrent callers must allocate through the store's ReserveReportSequence.
func Next(existing []string, year int) string {
	return Format(year, MaxSequence(existing, year)+1, false)
}

// Less orders ids by year then sequence, falling back to string order for malformed ids.
func Less(a, b string) bool {
	pa, errA := Parse(a)
	pb, errB := Parse(b)
	if errA != nil || errB != nil {
		return a < b
	}
	if pa.Year != pb.Year {
		return pa.Year < pb.Year
	}
	if pa.Seq != pb.Seq {
		return pa.Seq < pb.Seq
	}
	return !pa.Substitute && pb.Substitute
}
