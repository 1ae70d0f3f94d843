// Package ranking models federation rank tokens such as "B2", "D0" or "NC".
// Tokens order by letter first (A strongest, E weakest, NC unranked) and
// inversely by the numeric sub-level within a letter: B2 beats B6.
package ranking

import (
	"regexp"
	"strconv"
	"strings"
)

// Unranked is the token for players without a rank yet.
const Unranked = "NC"

// tokenPattern matches a rank letter with an optional sub-level, e.g.
// "A", "B6", "C12".
var tokenPattern = regexp.MustCompile(`^([A-E])(\d{0,2})$`)

// Rank is a parsed rank token.
type Rank struct {
	Letter string // "A".."E", or "" for unranked
	Level  int    // sub-level within the letter; lower is stronger
}

// Parse parses a rank token. The empty string and "NC" both parse to the
// unranked rank. Unknown tokens return ok=false.
func Parse(token string) (Rank, bool) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" || token == Unranked {
		return Rank{}, true
	}

	m := tokenPattern.FindStringSubmatch(token)
	if m == nil {
		return Rank{}, false
	}

	level := 0
	if m[2] != "" {
		level, _ = strconv.Atoi(m[2])
	}
	return Rank{Letter: m[1], Level: level}, true
}

// Valid reports whether token is a recognized rank token.
func Valid(token string) bool {
	_, ok := Parse(token)
	return ok
}

// Unranked reports whether the rank is the unranked sentinel.
func (r Rank) Unranked() bool {
	return r.Letter == ""
}

// String returns the canonical token.
func (r Rank) String() string {
	if r.Unranked() {
		return Unranked
	}
	return r.Letter + strconv.Itoa(r.Level)
}

// weight maps a rank onto a single comparable integer. Letters are worth
// 100 apiece; the sub-level subtracts within the letter.
func (r Rank) weight() int {
	if r.Unranked() {
		return 0
	}
	letter := int('E'-r.Letter[0]) + 1 // E=1 .. A=5
	return letter*100 - r.Level
}

// Compare returns -1, 0 or 1 as r is weaker than, equal to, or stronger
// than other.
func Compare(r, other Rank) int {
	switch {
	case r.weight() < other.weight():
		return -1
	case r.weight() > other.weight():
		return 1
	default:
		return 0
	}
}

// Stronger reports whether r beats other.
func Stronger(r, other Rank) bool {
	return Compare(r, other) > 0
}

// Bucket returns the opponent-statistics bucket for a token: the canonical
// token itself, with anything unparseable folded into the unranked bucket.
func Bucket(token string) string {
	r, ok := Parse(token)
	if !ok {
		return Unranked
	}
	return r.String()
}
