package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// Licence extraction fallbacks for ranking-list rows: the detail link's
// query string first, then a bare six-digit token in the row text.
var (
	licenceHrefPattern = regexp.MustCompile(`licenceID=(\d+)`)
	licenceBarePattern = regexp.MustCompile(`\b(\d{6})\b`)
)

// RankingList extracts a club's ranking list: every licensed player with
// their classification position, season match count, and current points,
// including inactive players who never appear on the members page.
//
// The page carries one table per bracket:
//
//	Pos | Position | Nom | Clt | Club | Match | Points | ...
//
// where the Position cell holds either the numbered classification slot or
// an inactivity marker. Rows without a licence or a name are dropped with
// an ExtractionError.
func RankingList(raw []byte, clubCode string) ([]entities.Player, []error) {
	doc, err := newDocument(raw, "ranking-list")
	if err != nil {
		return nil, []error{err}
	}

	var players []entities.Player
	var errs []error
	seen := map[string]bool{}

	for _, bracket := range []struct {
		selector string
		women    bool
	}{
		{"table#datatable-messieurs", false},
		{"table#datatable-dames", true},
	} {
		table := doc.Find(bracket.selector).First()
		if table.Length() == 0 {
			continue
		}

		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() < 7 {
				return
			}

			name := cellText(cells, 2)
			licence := rowLicence(row)
			if licence == "" {
				if name != "" {
					errs = append(errs, errors.NewExtractionError("ranking-list",
						"player without licence: "+name))
				}
				return
			}
			if name == "" {
				errs = append(errs, errors.NewExtractionError("ranking-list",
					"player without name: licence "+licence))
				return
			}
			if seen[licence] {
				return
			}
			seen[licence] = true

			player := entities.Player{
				Licence:  licence,
				Name:     optional.Of(name),
				ClubCode: optional.Of(clubCode),
				Category: optional.Of("SEN"),
			}

			position := cellText(cells, 1)
			if n, ok := parseInt(position); ok {
				player.Active = optional.Of(true)
				if !bracket.women {
					player.RankingPosition = optional.Of(n)
				}
			} else if strings.Contains(strings.ToLower(position), "inacti") {
				player.Active = optional.Of(false)
			}
			if n, ok := parseInt(cellText(cells, 5)); ok {
				player.MatchesPlayed = optional.Of(n)
			}

			ranking := optional.OfNonEmpty(cellText(cells, 3))
			points := optional.None[float64]()
			if f, ok := parseFloat(cellText(cells, 6)); ok {
				points = optional.Of(f)
			}
			if bracket.women {
				player.WomenRanking = ranking
				player.WomenPointsCurrent = points
			} else {
				player.Ranking = ranking
				player.PointsCurrent = points
			}

			players = append(players, player)
		})
	}

	return players, errs
}

// rowLicence pulls the licence out of a ranking-list row, trying the
// detail link, the hidden form input, then a bare six-digit token.
func rowLicence(row *goquery.Selection) string {
	if href, ok := row.Find("a[href]").First().Attr("href"); ok {
		if m := licenceHrefPattern.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	if value, ok := row.Find(`input[name="licence"]`).First().Attr("value"); ok && trimmed(value) != "" {
		return trimmed(value)
	}
	if m := licenceBarePattern.FindStringSubmatch(row.Text()); m != nil {
		return m[1]
	}
	return ""
}
