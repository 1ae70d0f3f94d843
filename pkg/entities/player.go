package entities

import "github.com/racketdata/ttsync/pkg/optional"

// Player is a member profile keyed by licence number. Name and ranking are
// merged under the non-regression rule: a later fetch that omits them never
// erases the stored values.
type Player struct {
	Licence  string                 `json:"licence"`
	Name     optional.Value[string] `json:"name"`
	ClubCode optional.Value[string] `json:"club_code"`
	Ranking  optional.Value[string] `json:"ranking"`
	Category optional.Value[string] `json:"category"`

	PointsStart     optional.Value[float64] `json:"points_start"`
	PointsCurrent   optional.Value[float64] `json:"points_current"`
	RankingPosition optional.Value[int]     `json:"ranking_position"`
	TotalWins       optional.Value[int]     `json:"total_wins"`
	TotalLosses     optional.Value[int]     `json:"total_losses"`

	// From the club ranking list: season match count and whether the
	// player still holds a numbered position.
	MatchesPlayed optional.Value[int]  `json:"matches_played"`
	Active        optional.Value[bool] `json:"active"`

	// Women's-bracket figures for players appearing on both sheets.
	WomenRanking       optional.Value[string]  `json:"women_ranking"`
	WomenPointsStart   optional.Value[float64] `json:"women_points_start"`
	WomenPointsCurrent optional.Value[float64] `json:"women_points_current"`
	WomenTotalWins     optional.Value[int]     `json:"women_total_wins"`
	WomenTotalLosses   optional.Value[int]     `json:"women_total_losses"`

	LastUpdate optional.Value[string] `json:"last_update"`
}
