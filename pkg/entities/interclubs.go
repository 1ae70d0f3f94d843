package entities

import "github.com/racketdata/ttsync/pkg/optional"

// Division is one interclubs division of the season. The upstream lists
// divisions as selector options; the option position is the stable key
// across weeks, the option value carries the upstream's own id.
type Division struct {
	// Index is the division's position in the upstream selector, the key
	// standings refer to.
	Index int    `json:"index"`
	Name  string `json:"name"`

	// UpstreamID is the selector option value, when the upstream exposes
	// one.
	UpstreamID optional.Value[string] `json:"upstream_id"`

	// Category and Gender are split off the division name when it follows
	// the "NAME - CATEGORY - GENDER" layout.
	Category optional.Value[string] `json:"category"`
	Gender   optional.Value[string] `json:"gender"`
}

// TeamRef locates a team inside a division, the shape team search returns.
type TeamRef struct {
	TeamName      string                 `json:"team_name"`
	DivisionIndex int                    `json:"division_index"`
	DivisionName  optional.Value[string] `json:"division_name"`
}

// TeamStanding is one team's row in a division's weekly ranking table.
// Standings are replaced whole per (division, week): a ranking table is a
// snapshot, not a mergeable record.
type TeamStanding struct {
	DivisionIndex int    `json:"division_index"`
	Week          int    `json:"week"`
	TeamName      string `json:"team_name"`

	DivisionName optional.Value[string] `json:"division_name"`
	Rank         optional.Value[int]    `json:"rank"`

	Played   int `json:"played"`
	Wins     int `json:"wins"`
	Losses   int `json:"losses"`
	Draws    int `json:"draws"`
	Forfeits int `json:"forfeits"`
	Points   int `json:"points"`
}
