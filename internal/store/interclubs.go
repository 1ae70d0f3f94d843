package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/racketdata/ttsync/pkg/constants"
	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// MergeDivision reconciles one division into the store. The selector index
// is the key; a later fetch that drops the category/gender split never
// erases a stored one.
func (s *Store) MergeDivision(ctx context.Context, division entities.Division) error {
	if division.Name == "" {
		return errors.NewRejectError("division", division.Name, "empty division name")
	}

	return s.inTxStore(ctx, "merge", "interclubs_divisions", func(tx *sql.Tx) error {
		stored, found, err := readDivision(ctx, tx, division.Index)
		if err != nil {
			return err
		}
		if found {
			division = mergeDivision(stored, division)
		}
		return writeDivision(ctx, tx, division)
	})
}

func mergeDivision(stored, incoming entities.Division) entities.Division {
	merged := entities.Division{Index: stored.Index, Name: incoming.Name}
	if merged.Name == "" {
		merged.Name = stored.Name
	}
	merged.UpstreamID = optional.Merge(stored.UpstreamID, incoming.UpstreamID)
	merged.Category = optional.Merge(stored.Category, incoming.Category)
	merged.Gender = optional.Merge(stored.Gender, incoming.Gender)
	return merged
}

const divisionColumns = `division_index, name, upstream_id, category, gender`

func readDivision(ctx context.Context, tx *sql.Tx, index int) (entities.Division, bool, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+divisionColumns+` FROM interclubs_divisions WHERE division_index = ?`, index)
	division, err := scanDivision(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Division{}, false, nil
	}
	if err != nil {
		return entities.Division{}, false, err
	}
	return division, true, nil
}

func writeDivision(ctx context.Context, tx *sql.Tx, d entities.Division) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO interclubs_divisions (`+divisionColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(division_index) DO UPDATE SET
			name = excluded.name, upstream_id = excluded.upstream_id,
			category = excluded.category, gender = excluded.gender`,
		d.Index, d.Name, d.UpstreamID.Ptr(), d.Category.Ptr(), d.Gender.Ptr())
	return err
}

func scanDivision(row rowScanner) (entities.Division, error) {
	var d entities.Division
	var upstreamID, category, gender sql.NullString

	if err := row.Scan(&d.Index, &d.Name, &upstreamID, &category, &gender); err != nil {
		return entities.Division{}, err
	}
	d.UpstreamID = optStr(upstreamID)
	d.Category = optStr(category)
	d.Gender = optStr(gender)
	return d, nil
}

// ListDivisions returns divisions in selector order, optionally filtered
// by a category substring and an exact gender.
func (s *Store) ListDivisions(ctx context.Context, category, gender string) ([]entities.Division, error) {
	query := `SELECT ` + divisionColumns + ` FROM interclubs_divisions`
	var clauses []string
	var args []any
	if category != "" {
		clauses = append(clauses, `category LIKE ?`)
		args = append(args, "%"+category+"%")
	}
	if gender != "" {
		clauses = append(clauses, `gender = ?`)
		args = append(args, gender)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY division_index`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("read", "interclubs_divisions", err)
	}
	defer rows.Close()

	var divisions []entities.Division
	for rows.Next() {
		division, err := scanDivision(rows)
		if err != nil {
			return nil, errors.WrapStore("read", "interclubs_divisions", err)
		}
		divisions = append(divisions, division)
	}
	return divisions, errors.WrapStore("read", "interclubs_divisions", rows.Err())
}

// ReplaceStandings swaps one division's ranking table for one week. A
// table is a snapshot: it is replaced whole, never merged row by row.
func (s *Store) ReplaceStandings(ctx context.Context, divisionIndex, week int, standings []entities.TeamStanding) error {
	return s.inTxStore(ctx, "merge", "interclubs_standings", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM interclubs_standings WHERE division_index = ? AND week = ?`,
			divisionIndex, week)
		if err != nil {
			return err
		}
		for _, st := range standings {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO interclubs_standings (
					division_index, week, team_name, division_name, rank,
					played, wins, losses, draws, forfeits, points)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				divisionIndex, week, st.TeamName, st.DivisionName.Ptr(), st.Rank.Ptr(),
				st.Played, st.Wins, st.Losses, st.Draws, st.Forfeits, st.Points)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

const standingColumns = `division_index, week, team_name, division_name, rank,
	played, wins, losses, draws, forfeits, points`

// ListStandings returns one division's table for one week, best rank
// first; rows the upstream left unranked sort last by points.
func (s *Store) ListStandings(ctx context.Context, divisionIndex, week int) ([]entities.TeamStanding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+standingColumns+` FROM interclubs_standings
		WHERE division_index = ? AND week = ?
		ORDER BY rank IS NULL, rank, points DESC`, divisionIndex, week)
	if err != nil {
		return nil, errors.WrapStore("read", "interclubs_standings", err)
	}
	defer rows.Close()
	return collectStandings(rows)
}

// TeamHistory returns every recorded standing of one team across weeks,
// optionally restricted to a division (negative means all).
func (s *Store) TeamHistory(ctx context.Context, team string, divisionIndex int) ([]entities.TeamStanding, error) {
	query := `SELECT ` + standingColumns + ` FROM interclubs_standings
		WHERE team_name = ? ORDER BY division_index, week`
	args := []any{team}
	if divisionIndex >= 0 {
		query = `SELECT ` + standingColumns + ` FROM interclubs_standings
			WHERE team_name = ? AND division_index = ? ORDER BY week`
		args = append(args, divisionIndex)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("read", "interclubs_standings", err)
	}
	defer rows.Close()
	return collectStandings(rows)
}

// SearchTeams finds teams by name fragment. The limit is clamped to the
// page-size bounds.
func (s *Store) SearchTeams(ctx context.Context, q string, limit int) ([]entities.TeamRef, error) {
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT team_name, division_index, division_name
		FROM interclubs_standings
		WHERE team_name LIKE ?
		ORDER BY team_name, division_index
		LIMIT ?`, "%"+q+"%", limit)
	if err != nil {
		return nil, errors.WrapStore("read", "interclubs_standings", err)
	}
	defer rows.Close()

	var teams []entities.TeamRef
	for rows.Next() {
		var ref entities.TeamRef
		var divisionName sql.NullString
		if err := rows.Scan(&ref.TeamName, &ref.DivisionIndex, &divisionName); err != nil {
			return nil, errors.WrapStore("read", "interclubs_standings", err)
		}
		ref.DivisionName = optStr(divisionName)
		teams = append(teams, ref)
	}
	return teams, errors.WrapStore("read", "interclubs_standings", rows.Err())
}

func collectStandings(rows *sql.Rows) ([]entities.TeamStanding, error) {
	var standings []entities.TeamStanding
	for rows.Next() {
		var st entities.TeamStanding
		var divisionName sql.NullString
		var rank sql.NullInt64

		err := rows.Scan(&st.DivisionIndex, &st.Week, &st.TeamName, &divisionName, &rank,
			&st.Played, &st.Wins, &st.Losses, &st.Draws, &st.Forfeits, &st.Points)
		if err != nil {
			return nil, errors.WrapStore("read", "interclubs_standings", err)
		}
		st.DivisionName = optStr(divisionName)
		st.Rank = optInt(rank)
		standings = append(standings, st)
	}
	return standings, errors.WrapStore("read", "interclubs_standings", rows.Err())
}
