package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// MembersPage is everything extracted from one club's members page: the
// club record enriched with the info cards, plus the member roster.
type MembersPage struct {
	Club    entities.Club
	Members []entities.Player
}

// Members extracts the roster and club details from a members page.
//
// The roster is a positional table, either
//
//	Pos | Licence | Name | Category | Ranking
//
// or the same without the position column. Missing cells map to explicit
// absence. Rows without a plausible licence (no digit) are ignored; rows
// with a licence but no name are dropped with an ExtractionError.
func Members(raw []byte, clubCode string) (MembersPage, []error) {
	page := MembersPage{Club: entities.Club{Code: clubCode}}

	doc, err := newDocument(raw, "members")
	if err != nil {
		return page, []error{err}
	}

	var errs []error

	// Club display name from the select option matching our code.
	doc.Find("select option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if value, _ := opt.Attr("value"); value != clubCode {
			return true
		}
		text := trimmed(opt.Text())
		if _, name, found := strings.Cut(text, " - "); found {
			page.Club.Name = optional.OfNonEmpty(trimmed(name))
		}
		return false
	})

	page.Club.Province = entities.DeriveProvince(clubCode)
	clubInfo(doc, &page.Club)

	seen := map[string]bool{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 4 {
				return
			}

			// The position column is optional; shift when present.
			offset := 0
			if cells.Length() >= 5 {
				offset = 1
			}

			licence := cellText(cells, offset)
			name := cellText(cells, offset+1)
			category := cellText(cells, offset+2)
			rank := cellText(cells, offset+3)

			if licence == "" || !containsDigit(licence) {
				return
			}
			if name == "" {
				errs = append(errs, errors.NewExtractionError("members", "member without name: licence "+licence))
				return
			}
			if seen[licence] {
				return
			}
			seen[licence] = true

			page.Members = append(page.Members, entities.Player{
				Licence:  licence,
				Name:     optional.Of(name),
				ClubCode: optional.Of(clubCode),
				Category: optional.OfNonEmpty(category),
				Ranking:  optional.OfNonEmpty(rank),
			})
		})
	})

	return page, errs
}

// clubInfo walks the Bootstrap cards of the members page and fills the
// club's contact, venue, teams, and label sections.
func clubInfo(doc *goquery.Document, club *entities.Club) {
	doc.Find("div.card").Each(func(_ int, card *goquery.Selection) {
		header := card.Find(".card-header").First()
		body := card.Find(".card-body").First()
		if header.Length() == 0 || body.Length() == 0 {
			return
		}

		headerText := strings.ToLower(trimmed(header.Text()))
		switch {
		case strings.Contains(headerText, "informations du club"):
			if h4 := body.Find("h4").First(); h4.Length() > 0 {
				club.FullName = optional.OfNonEmpty(trimmed(h4.Text()))
			}
			forEachLabelledLine(body.Text(), func(key, value string) {
				switch {
				case strings.Contains(key, "email"):
					club.Email = optional.OfNonEmpty(value)
				case strings.Contains(key, "phone"), strings.Contains(key, "téléphone"), strings.Contains(key, "tel"):
					club.Phone = optional.OfNonEmpty(value)
				case strings.Contains(key, "statut"):
					club.Status = optional.OfNonEmpty(value)
				case strings.Contains(key, "douche"):
					club.HasShower = optional.Of(parseYesNo(value))
				}
			})
			body.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
				href, _ := link.Attr("href")
				if strings.Contains(href, "http") {
					club.Website = optional.Of(href)
					return false
				}
				return true
			})

		case strings.Contains(headerText, "locaux du club"):
			forEachLabelledLine(body.Text(), func(key, value string) {
				switch {
				case key == "nom":
					club.VenueName = optional.OfNonEmpty(value)
				case strings.Contains(key, "adresse"):
					club.VenueAddress = optional.OfNonEmpty(value)
				case strings.Contains(key, "phone"), strings.Contains(key, "téléphone"), strings.Contains(key, "tel"):
					club.VenuePhone = optional.OfNonEmpty(value)
				case strings.Contains(key, "pmr"), strings.Contains(key, "accès"):
					club.VenuePMR = optional.Of(parseYesNo(value))
				case strings.Contains(key, "remarque"):
					club.VenueRemarks = optional.OfNonEmpty(value)
				}
			})

		case strings.Contains(headerText, "quipes du club"), strings.Contains(headerText, "equipes"):
			forEachLabelledLine(body.Text(), func(key, value string) {
				n, ok := parseInt(value)
				if !ok {
					n = 0
				}
				switch {
				case strings.Contains(key, "messieurs"), strings.Contains(key, "men"):
					club.TeamsMen = optional.Of(n)
				case strings.Contains(key, "dames"), strings.Contains(key, "women"):
					club.TeamsWomen = optional.Of(n)
				case strings.Contains(key, "jeunes"), strings.Contains(key, "youth"):
					club.TeamsYouth = optional.Of(n)
				case strings.Contains(key, "térans"), strings.Contains(key, "veterans"):
					club.TeamsVeterans = optional.Of(n)
				}
			})

		case strings.Contains(headerText, "labellisation"), strings.Contains(headerText, "palette"):
			forEachLabelledLine(body.Text(), func(key, value string) {
				lower := strings.ToLower(value)
				switch {
				case strings.Contains(key, "label") && !strings.Contains(key, "palette"):
					if lower != "aucun" {
						club.Label = optional.OfNonEmpty(value)
					}
				case strings.Contains(key, "palette"):
					if !strings.Contains(lower, "aucune") {
						club.Palette = optional.OfNonEmpty(value)
					}
				}
			})
		}
	})
}

// forEachLabelledLine calls fn for every "Key : Value" line of a card
// body, with the key lowercased and both sides trimmed.
func forEachLabelledLine(text string, fn func(key, value string)) {
	for _, line := range strings.Split(text, "\n") {
		line = trimmed(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fn(strings.ToLower(trimmed(key)), trimmed(value))
	}
}
