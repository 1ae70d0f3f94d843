package entities

import "github.com/racketdata/ttsync/pkg/optional"

// Tournament is a competition keyed by its upstream reference. Dates are
// normalized to a (start, end) pair; a single-day competition has
// start == end.
type Tournament struct {
	Ref   string                 `json:"ref"`
	Name  optional.Value[string] `json:"name"`
	Level optional.Value[string] `json:"level"`

	DateStart optional.Value[string] `json:"date_start"`
	DateEnd   optional.Value[string] `json:"date_end"`

	SeriesCount optional.Value[int] `json:"series_count"`
}

// TournamentSeries is one series within a tournament.
type TournamentSeries struct {
	TournamentRef string `json:"tournament_ref"`
	Name          string `json:"name"`

	Date    optional.Value[string] `json:"date"`
	Time    optional.Value[string] `json:"time"`
	Entries optional.Value[int]    `json:"entries"`
}
