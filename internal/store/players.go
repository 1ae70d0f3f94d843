package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// MergePlayer reconciles one player into the store. Roster rows and full
// sheets go through the same path: whichever fields the record observed
// win, everything else keeps its stored value.
func (s *Store) MergePlayer(ctx context.Context, player entities.Player) error {
	if player.Licence == "" {
		return errors.NewRejectError("player", player.Licence, "empty licence")
	}

	return s.inTxStore(ctx, "merge", "players", func(tx *sql.Tx) error {
		stored, found, err := readPlayer(ctx, tx, player.Licence)
		if err != nil {
			return err
		}
		if found {
			player = mergePlayer(stored, player)
		}
		return writePlayer(ctx, tx, player)
	})
}

func mergePlayer(stored, incoming entities.Player) entities.Player {
	merged := entities.Player{Licence: stored.Licence}
	merged.Name = optional.Merge(stored.Name, incoming.Name)
	merged.ClubCode = optional.Merge(stored.ClubCode, incoming.ClubCode)
	merged.Ranking = optional.Merge(stored.Ranking, incoming.Ranking)
	merged.Category = optional.Merge(stored.Category, incoming.Category)
	merged.PointsStart = optional.Merge(stored.PointsStart, incoming.PointsStart)
	merged.PointsCurrent = optional.Merge(stored.PointsCurrent, incoming.PointsCurrent)
	merged.RankingPosition = optional.Merge(stored.RankingPosition, incoming.RankingPosition)
	merged.TotalWins = optional.Merge(stored.TotalWins, incoming.TotalWins)
	merged.TotalLosses = optional.Merge(stored.TotalLosses, incoming.TotalLosses)
	merged.MatchesPlayed = optional.Merge(stored.MatchesPlayed, incoming.MatchesPlayed)
	merged.Active = optional.Merge(stored.Active, incoming.Active)
	merged.WomenRanking = optional.Merge(stored.WomenRanking, incoming.WomenRanking)
	merged.WomenPointsStart = optional.Merge(stored.WomenPointsStart, incoming.WomenPointsStart)
	merged.WomenPointsCurrent = optional.Merge(stored.WomenPointsCurrent, incoming.WomenPointsCurrent)
	merged.WomenTotalWins = optional.Merge(stored.WomenTotalWins, incoming.WomenTotalWins)
	merged.WomenTotalLosses = optional.Merge(stored.WomenTotalLosses, incoming.WomenTotalLosses)
	merged.LastUpdate = optional.Merge(stored.LastUpdate, incoming.LastUpdate)
	return merged
}

const playerColumns = `licence, name, club_code, ranking, category,
	points_start, points_current, ranking_position, total_wins, total_losses,
	matches_played, active,
	women_ranking, women_points_start, women_points_current,
	women_total_wins, women_total_losses, last_update`

func readPlayer(ctx context.Context, tx *sql.Tx, licence string) (entities.Player, bool, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE licence = ?`, licence)
	player, err := scanPlayer(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Player{}, false, nil
	}
	if err != nil {
		return entities.Player{}, false, err
	}
	return player, true, nil
}

func writePlayer(ctx context.Context, tx *sql.Tx, p entities.Player) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(licence) DO UPDATE SET
			name = excluded.name, club_code = excluded.club_code,
			ranking = excluded.ranking, category = excluded.category,
			points_start = excluded.points_start,
			points_current = excluded.points_current,
			ranking_position = excluded.ranking_position,
			total_wins = excluded.total_wins, total_losses = excluded.total_losses,
			matches_played = excluded.matches_played, active = excluded.active,
			women_ranking = excluded.women_ranking,
			women_points_start = excluded.women_points_start,
			women_points_current = excluded.women_points_current,
			women_total_wins = excluded.women_total_wins,
			women_total_losses = excluded.women_total_losses,
			last_update = excluded.last_update`,
		p.Licence, p.Name.Ptr(), p.ClubCode.Ptr(), p.Ranking.Ptr(), p.Category.Ptr(),
		p.PointsStart.Ptr(), p.PointsCurrent.Ptr(), p.RankingPosition.Ptr(),
		p.TotalWins.Ptr(), p.TotalLosses.Ptr(),
		p.MatchesPlayed.Ptr(), p.Active.Ptr(), p.WomenRanking.Ptr(),
		p.WomenPointsStart.Ptr(), p.WomenPointsCurrent.Ptr(),
		p.WomenTotalWins.Ptr(), p.WomenTotalLosses.Ptr(), p.LastUpdate.Ptr())
	return err
}

func scanPlayer(row rowScanner) (entities.Player, error) {
	var p entities.Player
	var name, clubCode, ranking, category, womenRanking, lastUpdate sql.NullString
	var pointsStart, pointsCurrent, womenPointsStart, womenPointsCurrent sql.NullFloat64
	var rankingPosition, totalWins, totalLosses, matchesPlayed sql.NullInt64
	var womenTotalWins, womenTotalLosses sql.NullInt64
	var active sql.NullBool

	err := row.Scan(&p.Licence, &name, &clubCode, &ranking, &category,
		&pointsStart, &pointsCurrent, &rankingPosition, &totalWins, &totalLosses,
		&matchesPlayed, &active,
		&womenRanking, &womenPointsStart, &womenPointsCurrent,
		&womenTotalWins, &womenTotalLosses, &lastUpdate)
	if err != nil {
		return entities.Player{}, err
	}

	p.Name = optStr(name)
	p.ClubCode = optStr(clubCode)
	p.Ranking = optStr(ranking)
	p.Category = optStr(category)
	p.PointsStart = optFloat(pointsStart)
	p.PointsCurrent = optFloat(pointsCurrent)
	p.RankingPosition = optInt(rankingPosition)
	p.TotalWins = optInt(totalWins)
	p.TotalLosses = optInt(totalLosses)
	p.MatchesPlayed = optInt(matchesPlayed)
	p.Active = optBool(active)
	p.WomenRanking = optStr(womenRanking)
	p.WomenPointsStart = optFloat(womenPointsStart)
	p.WomenPointsCurrent = optFloat(womenPointsCurrent)
	p.WomenTotalWins = optInt(womenTotalWins)
	p.WomenTotalLosses = optInt(womenTotalLosses)
	p.LastUpdate = optStr(lastUpdate)
	return p, nil
}

// GetPlayer returns one player by licence.
func (s *Store) GetPlayer(ctx context.Context, licence string) (entities.Player, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE licence = ?`, licence)
	player, err := scanPlayer(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Player{}, errors.ErrNotFound
	}
	if err != nil {
		return entities.Player{}, errors.WrapStore("read", "players", err)
	}
	return player, nil
}

// ListPlayers returns players ordered by licence, optionally restricted to
// one club.
func (s *Store) ListPlayers(ctx context.Context, clubCode string) ([]entities.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY licence`
	args := []any{}
	if clubCode != "" {
		query = `SELECT ` + playerColumns + ` FROM players WHERE club_code = ? ORDER BY licence`
		args = append(args, clubCode)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("read", "players", err)
	}
	defer rows.Close()

	var players []entities.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, errors.WrapStore("read", "players", err)
		}
		players = append(players, player)
	}
	return players, errors.WrapStore("read", "players", rows.Err())
}

// ListLicences returns every known licence, the work list for a full
// profile sweep.
func (s *Store) ListLicences(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT licence FROM players ORDER BY licence`)
	if err != nil {
		return nil, errors.WrapStore("read", "players", err)
	}
	defer rows.Close()

	var licences []string
	for rows.Next() {
		var licence string
		if err := rows.Scan(&licence); err != nil {
			return nil, errors.WrapStore("read", "players", err)
		}
		licences = append(licences, licence)
	}
	return licences, errors.WrapStore("read", "players", rows.Err())
}

// InsertMatches records played matches idempotently: a match already
// present (same player, opponent, date and division) is left untouched.
// It returns the number of newly inserted rows.
func (s *Store) InsertMatches(ctx context.Context, matches []entities.Match) (int, error) {
	inserted := 0
	err := s.inTxStore(ctx, "merge", "matches", func(tx *sql.Tx) error {
		for _, m := range matches {
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO matches (
					player_licence, bracket, date, division,
					opponent_name, opponent_licence, opponent_ranking,
					opponent_points, opponent_club, score, won, points_change)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				m.PlayerLicence, string(m.Bracket), m.Date, m.Division,
				m.OpponentName.Ptr(), m.OpponentLicence.Ptr(), m.OpponentRanking.Ptr(),
				m.OpponentPoints.Ptr(), m.OpponentClub.Ptr(), m.Score.Ptr(),
				m.Won.Ptr(), m.PointsChange.Ptr())
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	return inserted, err
}

// ListMatches returns a player's recorded matches in one bracket, newest
// date first.
func (s *Store) ListMatches(ctx context.Context, licence string, bracket entities.Bracket) ([]entities.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_licence, bracket, date, division,
			opponent_name, opponent_licence, opponent_ranking,
			opponent_points, opponent_club, score, won, points_change
		FROM matches
		WHERE player_licence = ? AND bracket = ?
		ORDER BY date DESC, id`, licence, string(bracket))
	if err != nil {
		return nil, errors.WrapStore("read", "matches", err)
	}
	defer rows.Close()

	var matches []entities.Match
	for rows.Next() {
		var m entities.Match
		var bracketCol string
		var oppName, oppLicence, oppRanking, oppClub, score sql.NullString
		var oppPoints, pointsChange sql.NullFloat64
		var won sql.NullBool

		err := rows.Scan(&m.PlayerLicence, &bracketCol, &m.Date, &m.Division,
			&oppName, &oppLicence, &oppRanking, &oppPoints, &oppClub,
			&score, &won, &pointsChange)
		if err != nil {
			return nil, errors.WrapStore("read", "matches", err)
		}

		m.Bracket = entities.Bracket(bracketCol)
		m.OpponentName = optStr(oppName)
		m.OpponentLicence = optStr(oppLicence)
		m.OpponentRanking = optStr(oppRanking)
		m.OpponentPoints = optFloat(oppPoints)
		m.OpponentClub = optStr(oppClub)
		m.Score = optStr(score)
		m.Won = optBool(won)
		m.PointsChange = optFloat(pointsChange)
		matches = append(matches, m)
	}
	return matches, errors.WrapStore("read", "matches", rows.Err())
}

// ReplaceStats swaps a player's opponent statistics for one bracket. Stats
// arrive whole on every sheet fetch, so the stored set is fully replaced
// rather than merged.
func (s *Store) ReplaceStats(ctx context.Context, licence string, bracket entities.Bracket, stats []entities.OpponentStat) error {
	return s.inTxStore(ctx, "merge", "player_stats", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM player_stats WHERE player_licence = ? AND bracket = ?`,
			licence, string(bracket))
		if err != nil {
			return err
		}
		for _, stat := range stats {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO player_stats (player_licence, bracket, bucket, wins, losses, ratio)
				VALUES (?, ?, ?, ?, ?, ?)`,
				licence, string(bracket), stat.Bucket, stat.Wins, stat.Losses, stat.Ratio)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListStats returns a player's opponent statistics in one bracket.
func (s *Store) ListStats(ctx context.Context, licence string, bracket entities.Bracket) ([]entities.OpponentStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_licence, bracket, bucket, wins, losses, ratio
		FROM player_stats
		WHERE player_licence = ? AND bracket = ?
		ORDER BY bucket`, licence, string(bracket))
	if err != nil {
		return nil, errors.WrapStore("read", "player_stats", err)
	}
	defer rows.Close()

	var stats []entities.OpponentStat
	for rows.Next() {
		var stat entities.OpponentStat
		var bracketCol string
		if err := rows.Scan(&stat.PlayerLicence, &bracketCol, &stat.Bucket,
			&stat.Wins, &stat.Losses, &stat.Ratio); err != nil {
			return nil, errors.WrapStore("read", "player_stats", err)
		}
		stat.Bracket = entities.Bracket(bracketCol)
		stats = append(stats, stat)
	}
	return stats, errors.WrapStore("read", "player_stats", rows.Err())
}
