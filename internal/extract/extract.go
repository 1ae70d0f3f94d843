// Package extract turns fetched catalog documents into typed records.
// The upstream is not API-stable: the same logical field appears in
// several textual layouts, and later fetches frequently omit fields that
// earlier ones carried. Extractors therefore map every missing value to
// explicit absence (never the empty string) and drop only records that
// lack their natural key, surfacing each drop as an ExtractionError.
package extract

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/racketdata/ttsync/pkg/errors"
)

// newDocument parses raw HTML into a goquery document.
func newDocument(raw []byte, kind string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &errors.ExtractionError{Kind: kind, Diagnostic: "unparseable document", Err: err}
	}
	return doc, nil
}

// cellText returns the trimmed text of the i-th cell, or "" when the row
// is shorter.
func cellText(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return strings.TrimSpace(cells.Eq(i).Text())
}

// parseInt parses a decimal integer, tolerating surrounding noise.
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseFloat parses a number that may use a decimal comma.
func parseFloat(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// containsDigit reports whether s has at least one digit. Licence cells
// are validated this way before a row is treated as a member.
func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// trimmed collapses surrounding whitespace.
func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// parseYesNo maps the upstream's oui/non style booleans.
func parseYesNo(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oui", "yes", "true", "1":
		return true
	}
	return false
}
