package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// Divisions extracts the season's division list from the interclubs page.
// Divisions appear as options of the division selector; the option position
// is the index standings are keyed by, the option value carries the
// upstream's own division id. A "NAME - CATEGORY - GENDER" label is split
// into its parts; anything else stays a bare name.
func Divisions(raw []byte) ([]entities.Division, []error) {
	doc, err := newDocument(raw, "divisions")
	if err != nil {
		return nil, []error{err}
	}

	sel := doc.Find("select#divisionSelect")
	if sel.Length() == 0 {
		sel = doc.Find("select").First()
	}
	if sel.Length() == 0 {
		return nil, []error{errors.NewExtractionError("divisions", "no division selector on page")}
	}

	var divisions []entities.Division
	index := 0
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		text := trimmed(opt.Text())
		if text == "" || strings.HasPrefix(text, "--") {
			return
		}

		division := entities.Division{Index: index, Name: text}
		index++

		if value, ok := opt.Attr("value"); ok && trimmed(value) != "" {
			division.UpstreamID = optional.Of(trimmed(value))
		}
		parts := strings.Split(text, " - ")
		if len(parts) >= 3 {
			division.Category = optional.OfNonEmpty(trimmed(parts[len(parts)-2]))
			division.Gender = optional.OfNonEmpty(trimmed(parts[len(parts)-1]))
		}

		divisions = append(divisions, division)
	})

	if len(divisions) == 0 {
		return nil, []error{errors.NewExtractionError("divisions", "selector has no division options")}
	}
	return divisions, nil
}

// DivisionStandings extracts one week's ranking table for a division:
//
//	# | Equipe | J | G | P | N | FF | Pts
//
// Only a table naming a team column is a standings table; the weekly
// results grid looks similar but has no such column and is skipped. Rows
// without a team name are dropped with an ExtractionError.
func DivisionStandings(raw []byte, divisionIndex int, divisionName string, week int) ([]entities.TeamStanding, []error) {
	doc, err := newDocument(raw, "standings")
	if err != nil {
		return nil, []error{err}
	}

	table := findStandingsTable(doc)
	if table == nil {
		return nil, nil
	}

	var standings []entities.TeamStanding
	var errs []error

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 8 {
			return
		}

		team := cellText(cells, 1)
		if team == "" {
			errs = append(errs, errors.NewExtractionError("standings",
				"standing without team name in division "+divisionName))
			return
		}

		standing := entities.TeamStanding{
			DivisionIndex: divisionIndex,
			Week:          week,
			TeamName:      team,
			DivisionName:  optional.OfNonEmpty(divisionName),
		}
		if rank, ok := parseInt(cellText(cells, 0)); ok {
			standing.Rank = optional.Of(rank)
		}
		standing.Played, _ = parseInt(cellText(cells, 2))
		standing.Wins, _ = parseInt(cellText(cells, 3))
		standing.Losses, _ = parseInt(cellText(cells, 4))
		standing.Draws, _ = parseInt(cellText(cells, 5))
		standing.Forfeits, _ = parseInt(cellText(cells, 6))
		standing.Points, _ = parseInt(cellText(cells, 7))

		standings = append(standings, standing)
	})

	return standings, errs
}

// findStandingsTable locates the ranking table by its team header.
func findStandingsTable(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if containsHeader(headerTexts(table), "equipe", "équipe", "team") {
			found = table
			return false
		}
		return true
	})
	return found
}
