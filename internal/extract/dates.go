package extract

import (
	"regexp"

	"github.com/racketdata/ttsync/pkg/optional"
)

var (
	// dateRangePattern matches a start-end range sharing one year,
	// e.g. "26/07-27/07/2025".
	dateRangePattern = regexp.MustCompile(`^(\d{2}/\d{2})-(\d{2}/\d{2})/(\d{4})$`)

	// simpleDatePattern matches a single "DD/MM/YYYY" date.
	simpleDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
)

// ParseDateRange normalizes a date cell into a (start, end) pair. A single
// date yields start == end; a range "DD/MM-DD/MM/YYYY" expands the shared
// year onto both ends. An empty or unrecognized cell yields absence on
// both sides.
func ParseDateRange(s string) (start, end optional.Value[string]) {
	s = trimmed(s)
	if s == "" {
		return optional.None[string](), optional.None[string]()
	}

	if m := dateRangePattern.FindStringSubmatch(s); m != nil {
		return optional.Of(m[1] + "/" + m[3]), optional.Of(m[2] + "/" + m[3])
	}

	if simpleDatePattern.MatchString(s) {
		return optional.Of(s), optional.Of(s)
	}

	return optional.None[string](), optional.None[string]()
}
