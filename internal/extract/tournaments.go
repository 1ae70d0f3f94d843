package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// tournamentRefPattern pulls the upstream tournament id out of a detail
// link's query string.
var tournamentRefPattern = regexp.MustCompile(`t_id=(\d+)`)

// Tournaments extracts the season's tournament list. The listing is a
// table whose header row names at least "Nom" and "Niveau"; the reference
// comes from the row's detail link when present, otherwise from the ref
// cell.
func Tournaments(raw []byte) ([]entities.Tournament, []error) {
	doc, err := newDocument(raw, "tournaments")
	if err != nil {
		return nil, []error{err}
	}

	table := findTournamentTable(doc)
	if table == nil {
		return nil, []error{errors.NewExtractionError("tournaments", "no tournament table on page")}
	}

	var tournaments []entities.Tournament
	var errs []error
	seen := map[string]bool{}

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		name := cellText(cells, 0)
		level := cellText(cells, 1)
		dateCell := cellText(cells, 2)

		ref := ""
		if href, ok := row.Find("a[href]").First().Attr("href"); ok {
			if m := tournamentRefPattern.FindStringSubmatch(href); m != nil {
				ref = m[1]
			}
		}
		if ref == "" && cells.Length() >= 4 {
			ref = cellText(cells, 3)
		}

		if ref == "" {
			errs = append(errs, errors.NewExtractionError("tournaments", "tournament without reference: "+name))
			return
		}
		if seen[ref] {
			return
		}
		seen[ref] = true

		start, end := ParseDateRange(dateCell)
		tournament := entities.Tournament{
			Ref:       ref,
			Name:      optional.OfNonEmpty(name),
			Level:     optional.OfNonEmpty(level),
			DateStart: start,
			DateEnd:   end,
		}
		if cells.Length() >= 5 {
			if n, ok := parseInt(cellText(cells, 4)); ok {
				tournament.SeriesCount = optional.Of(n)
			}
		}

		tournaments = append(tournaments, tournament)
	})

	if len(tournaments) == 0 && len(errs) == 0 {
		errs = append(errs, errors.NewExtractionError("tournaments", "tournament table has no rows"))
	}
	return tournaments, errs
}

// TournamentSeries extracts the series table of one tournament's detail
// page: Date | Heure | Série | Inscriptions.
func TournamentSeries(raw []byte, ref string) ([]entities.TournamentSeries, []error) {
	doc, err := newDocument(raw, "series")
	if err != nil {
		return nil, []error{err}
	}

	var series []entities.TournamentSeries
	var errs []error

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		headers := headerTexts(table)
		if !containsHeader(headers, "série", "serie") {
			return true
		}

		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() < 3 {
				return
			}

			name := cellText(cells, 2)
			if name == "" {
				errs = append(errs, errors.NewExtractionError("series", "series without name in tournament "+ref))
				return
			}

			entry := entities.TournamentSeries{
				TournamentRef: ref,
				Name:          name,
				Date:          optional.OfNonEmpty(cellText(cells, 0)),
				Time:          optional.OfNonEmpty(cellText(cells, 1)),
			}
			if cells.Length() >= 4 {
				if n, ok := parseInt(cellText(cells, 3)); ok {
					entry.Entries = optional.Of(n)
				}
			}
			series = append(series, entry)
		})
		return false
	})

	return series, errs
}

// findTournamentTable locates the listing table by its header row.
func findTournamentTable(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		headers := headerTexts(table)
		if containsHeader(headers, "nom") && containsHeader(headers, "niveau") {
			found = table
			return false
		}
		return true
	})
	return found
}

// headerTexts returns the lowercased texts of a table's first row.
func headerTexts(table *goquery.Selection) []string {
	var headers []string
	table.Find("tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.ToLower(trimmed(cell.Text())))
	})
	return headers
}

// containsHeader reports whether any header contains one of the needles.
func containsHeader(headers []string, needles ...string) bool {
	for _, header := range headers {
		for _, needle := range needles {
			if strings.Contains(header, needle) {
				return true
			}
		}
	}
	return false
}
