package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
	"github.com/racketdata/ttsync/pkg/ranking"
)

var (
	// headerWithRank matches "103603 - JEAN-FRANCOIS CULOT - D0".
	// Separators are hyphens with mandatory surrounding whitespace, so the
	// greedy middle group swallows internal unspaced hyphens in compound
	// names; only the token after the last spaced hyphen is the rank.
	headerWithRank = regexp.MustCompile(`^(\d+)\s+-\s+(.+)\s+-\s+(\w+)$`)

	// headerNoRank matches "151410 - LUCAS MENIER -": a trailing bare
	// hyphen meaning not yet ranked. The name must come through unmutated
	// and the rank explicitly absent.
	headerNoRank = regexp.MustCompile(`^(\d+)\s+-\s+(.+?)\s*-?\s*$`)

	// crossSheetNote is the "Voir fiche ..." suffix pointing at the other
	// bracket's sheet.
	crossSheetNote = regexp.MustCompile(`(?i)\s*Voir fiche.*$`)

	pointsPattern       = regexp.MustCompile(`([\d.,]+)\s*pts`)
	signedPointsPattern = regexp.MustCompile(`([+-]?[\d.,]+)\s*pts`)
	positionPattern     = regexp.MustCompile(`(\d+)`)
	updatePattern       = regexp.MustCompile(`(\d{2}/\d{2}/\d{2,4})`)
	scorePattern        = regexp.MustCompile(`^(\d)-(\d)`)

	// matchHeaderPattern splits a match-day header
	// "10/01/2026 - PHM12/045 - Palette Verte Ecaus.Total : ...".
	matchHeaderPattern = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s*-\s*([A-Z0-9/]+)\s*-\s*(.+?)(?:Total|Les points|$)`)
)

// ProfileHeader is the parsed composite "id - full name - rank" line.
type ProfileHeader struct {
	Licence string
	Name    string
	Ranking optional.Value[string]
}

// ParseProfileHeader parses the sheet's composite headline. It returns
// ok=false when the line matches no known layout.
func ParseProfileHeader(line string) (ProfileHeader, bool) {
	line = crossSheetNote.ReplaceAllString(trimmed(line), "")

	if m := headerWithRank.FindStringSubmatch(line); m != nil {
		return ProfileHeader{
			Licence: m[1],
			Name:    trimmed(m[2]),
			Ranking: optional.Of(m[3]),
		}, true
	}

	if m := headerNoRank.FindStringSubmatch(line); m != nil {
		return ProfileHeader{
			Licence: m[1],
			Name:    trimmed(m[2]),
			Ranking: optional.None[string](),
		}, true
	}

	return ProfileHeader{}, false
}

// Profile is everything extracted from one player sheet.
type Profile struct {
	Player  entities.Player
	Matches []entities.Match
	Stats   []entities.OpponentStat
}

// PlayerSheet extracts a full player sheet for the given bracket. The
// requested licence is only a fallback check: a sheet whose headline names
// a different licence is rejected, because the upstream serves an empty
// template for unknown ids.
func PlayerSheet(raw []byte, licence string, bracket entities.Bracket) (Profile, []error) {
	profile := Profile{Player: entities.Player{Licence: licence}}

	doc, err := newDocument(raw, "profile")
	if err != nil {
		return profile, []error{err}
	}

	var errs []error

	header, ok := ProfileHeader{}, false
	if h2 := doc.Find("h2").First(); h2.Length() > 0 {
		header, ok = ParseProfileHeader(h2.Text())
	}
	if !ok {
		return profile, []error{errors.NewExtractionError("profile", "no recognizable headline for licence "+licence)}
	}
	if header.Licence != licence {
		return profile, []error{errors.NewExtractionError("profile",
			"headline licence "+header.Licence+" does not match requested "+licence)}
	}

	profile.Player.Name = optional.OfNonEmpty(header.Name)
	if bracket == entities.BracketWomen {
		profile.Player.WomenRanking = header.Ranking
	} else {
		profile.Player.Ranking = header.Ranking
	}

	extractPoints(doc, &profile.Player, bracket)
	extractLastUpdate(doc, &profile.Player)
	profile.Stats = extractStats(doc, licence, bracket)
	profile.Matches, errs = extractMatches(doc, licence, bracket, errs)

	wins, losses := 0, 0
	for _, stat := range profile.Stats {
		wins += stat.Wins
		losses += stat.Losses
	}
	if len(profile.Stats) > 0 {
		if bracket == entities.BracketWomen {
			profile.Player.WomenTotalWins = optional.Of(wins)
			profile.Player.WomenTotalLosses = optional.Of(losses)
		} else {
			profile.Player.TotalWins = optional.Of(wins)
			profile.Player.TotalLosses = optional.Of(losses)
		}
	}

	return profile, errs
}

// extractPoints reads the starting/current point figures. Each figure is
// an h3 "1234,5 pts" labelled by the preceding h5.
func extractPoints(doc *goquery.Document, player *entities.Player, bracket entities.Bracket) {
	doc.Find("h3").Each(func(_ int, h3 *goquery.Selection) {
		text := trimmed(h3.Text())

		if strings.Contains(text, "pts") {
			m := pointsPattern.FindStringSubmatch(text)
			if m == nil {
				return
			}
			value, ok := parseFloat(m[1])
			if !ok {
				return
			}

			label := ""
			if h5 := h3.PrevAllFiltered("h5").First(); h5.Length() > 0 {
				label = strings.ToLower(trimmed(h5.Text()))
			}
			switch {
			case strings.Contains(label, "part"), strings.Contains(label, "start"):
				if bracket == entities.BracketWomen {
					player.WomenPointsStart = optional.Of(value)
				} else {
					player.PointsStart = optional.Of(value)
				}
			case strings.Contains(label, "actuel"), strings.Contains(label, "current"):
				if bracket == entities.BracketWomen {
					player.WomenPointsCurrent = optional.Of(value)
				} else {
					player.PointsCurrent = optional.Of(value)
				}
			}
			return
		}

		// Ranking position reads like "123e" or "123ème".
		if bracket == entities.BracketMen && (strings.HasSuffix(text, "e") || strings.HasSuffix(text, "ème")) {
			if m := positionPattern.FindStringSubmatch(text); m != nil {
				if n, ok := parseInt(m[1]); ok {
					player.RankingPosition = optional.Of(n)
				}
			}
		}
	})
}

// extractLastUpdate reads the "Mise à jour" stamp.
func extractLastUpdate(doc *goquery.Document, player *entities.Player) {
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		text := s.Text()
		if !strings.Contains(text, "Mise à jour") && !strings.Contains(text, "Update") {
			return true
		}
		if m := updatePattern.FindStringSubmatch(text); m != nil {
			player.LastUpdate = optional.Of(m[1])
			return false
		}
		return true
	})
}

// extractStats reads the per-opponent-rank statistics table. The first
// row carries the rank buckets; the "victoires", "défaites" and "ratio"
// rows carry the figures positionally.
func extractStats(doc *goquery.Document, licence string, bracket entities.Bracket) []entities.OpponentStat {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil
	}

	var buckets []string
	wins := map[string]int{}
	losses := map[string]int{}
	ratios := map[string]float64{}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() == 0 {
			return
		}
		first := strings.ToLower(cellText(cells, 0))

		collect := func(fn func(bucket, value string)) {
			for i := 1; i < cells.Length(); i++ {
				if i-1 < len(buckets) {
					fn(buckets[i-1], cellText(cells, i))
				}
			}
		}

		switch {
		case len(buckets) == 0 && cells.Length() > 1:
			for i := 1; i < cells.Length(); i++ {
				buckets = append(buckets, cellText(cells, i))
			}
		case strings.Contains(first, "victoire"), strings.Contains(first, "win"):
			collect(func(bucket, value string) {
				if n, ok := parseInt(value); ok {
					wins[bucket] = n
				}
			})
		case strings.Contains(first, "faite"), strings.Contains(first, "loss"):
			collect(func(bucket, value string) {
				if n, ok := parseInt(value); ok {
					losses[bucket] = n
				}
			})
		case strings.Contains(first, "ratio"), strings.Contains(first, "%"):
			collect(func(bucket, value string) {
				if f, ok := parseFloat(strings.TrimSuffix(value, "%")); ok {
					ratios[bucket] = f
				}
			})
		}
	})

	stats := make([]entities.OpponentStat, 0, len(buckets))
	for _, bucket := range buckets {
		stats = append(stats, entities.OpponentStat{
			PlayerLicence: licence,
			Bracket:       bracket,
			Bucket:        ranking.Bucket(bucket),
			Wins:          wins[bucket],
			Losses:        losses[bucket],
			Ratio:         ratios[bucket],
		})
	}
	return stats
}

// extractMatches reads the per-day cards. Each card header carries
// "date - division - opposing club"; each nested match-card carries one
// opponent and score.
func extractMatches(doc *goquery.Document, licence string, bracket entities.Bracket, errs []error) ([]entities.Match, []error) {
	var matches []entities.Match

	doc.Find("div.card").Each(func(_ int, card *goquery.Selection) {
		header := card.Find(".card-header").First()
		if header.Length() == 0 {
			return
		}

		m := matchHeaderPattern.FindStringSubmatch(trimmed(header.Text()))
		if m == nil {
			return
		}
		date, division := m[1], m[2]
		opponentClub := trimmed(m[3])

		card.Find(".match-card").Each(func(_ int, mc *goquery.Selection) {
			match := entities.Match{
				PlayerLicence: licence,
				Bracket:       bracket,
				Date:          date,
				Division:      division,
				OpponentClub:  optional.OfNonEmpty(opponentClub),
			}

			if h6 := mc.Find("h6").First(); h6.Length() > 0 {
				match.OpponentName = optional.OfNonEmpty(trimmed(h6.Text()))
			}
			if input := mc.Find(`input[name="licence"]`).First(); input.Length() > 0 {
				value, _ := input.Attr("value")
				match.OpponentLicence = optional.OfNonEmpty(trimmed(value))
			}

			mc.Find("small").Each(func(_ int, small *goquery.Selection) {
				text := trimmed(small.Text())
				switch {
				case ranking.Valid(text) && text != "":
					match.OpponentRanking = optional.Of(text)
				case strings.Contains(text, "pts"):
					if pm := pointsPattern.FindStringSubmatch(text); pm != nil {
						if f, ok := parseFloat(pm[1]); ok {
							match.OpponentPoints = optional.Of(f)
						}
					}
				}
			})

			if scoreElem := mc.Find("h5.fw-bold").First(); scoreElem.Length() > 0 {
				score := trimmed(scoreElem.Text())
				match.Score = optional.OfNonEmpty(score)
				if sm := scorePattern.FindStringSubmatch(score); sm != nil {
					own, _ := parseInt(sm[1])
					other, _ := parseInt(sm[2])
					match.Won = optional.Of(own > other)
				}
			}

			if badge := mc.Find(".badge").First(); badge.Length() > 0 {
				if pm := signedPointsPattern.FindStringSubmatch(trimmed(badge.Text())); pm != nil {
					if f, ok := parseFloat(pm[1]); ok {
						match.PointsChange = optional.Of(f)
					}
				}
			}

			if !match.OpponentLicence.Present() && !match.OpponentName.Present() {
				errs = append(errs, errors.NewExtractionError("profile",
					"match card without opponent on "+date+" for licence "+licence))
				return
			}

			matches = append(matches, match)
		})
	})

	return matches, errs
}
