package entities

import "github.com/racketdata/ttsync/pkg/optional"

// Bracket distinguishes the men's and women's competition sheets.
type Bracket string

// Bracket values.
const (
	BracketMen   Bracket = "men"
	BracketWomen Bracket = "women"
)

// Match is one played match from a player's sheet. Its identity is the
// composite (player licence, opponent licence, date, division, bracket);
// matches are inserted whole and idempotently, never merged field by field.
type Match struct {
	PlayerLicence string  `json:"player_licence"`
	Bracket       Bracket `json:"bracket"`
	Date          string  `json:"date"`
	Division      string  `json:"division"`

	OpponentName    optional.Value[string]  `json:"opponent_name"`
	OpponentLicence optional.Value[string]  `json:"opponent_licence"`
	OpponentRanking optional.Value[string]  `json:"opponent_ranking"`
	OpponentPoints  optional.Value[float64] `json:"opponent_points"`
	OpponentClub    optional.Value[string]  `json:"opponent_club"`

	Score        optional.Value[string]  `json:"score"`
	Won          optional.Value[bool]    `json:"won"`
	PointsChange optional.Value[float64] `json:"points_change"`
}

// OpponentStat aggregates a player's wins and losses against one
// opponent-rank bucket within a bracket. Stats arrive whole on every fetch
// and are fully replaced on merge.
type OpponentStat struct {
	PlayerLicence string  `json:"player_licence"`
	Bracket       Bracket `json:"bracket"`
	Bucket        string  `json:"bucket"`

	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Ratio  float64 `json:"ratio"`
}
