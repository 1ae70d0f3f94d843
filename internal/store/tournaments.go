package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// MergeTournament reconciles one tournament into the store under the
// non-regression rule.
func (s *Store) MergeTournament(ctx context.Context, tournament entities.Tournament) error {
	if tournament.Ref == "" {
		return errors.NewRejectError("tournament", tournament.Ref, "empty reference")
	}

	return s.inTxStore(ctx, "merge", "tournaments", func(tx *sql.Tx) error {
		stored, found, err := readTournament(ctx, tx, tournament.Ref)
		if err != nil {
			return err
		}
		if found {
			tournament = mergeTournament(stored, tournament)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tournaments (ref, name, level, date_start, date_end, series_count)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(ref) DO UPDATE SET
				name = excluded.name, level = excluded.level,
				date_start = excluded.date_start, date_end = excluded.date_end,
				series_count = excluded.series_count`,
			tournament.Ref, tournament.Name.Ptr(), tournament.Level.Ptr(),
			tournament.DateStart.Ptr(), tournament.DateEnd.Ptr(),
			tournament.SeriesCount.Ptr())
		return err
	})
}

func mergeTournament(stored, incoming entities.Tournament) entities.Tournament {
	merged := entities.Tournament{Ref: stored.Ref}
	merged.Name = optional.Merge(stored.Name, incoming.Name)
	merged.Level = optional.Merge(stored.Level, incoming.Level)
	merged.DateStart = optional.Merge(stored.DateStart, incoming.DateStart)
	merged.DateEnd = optional.Merge(stored.DateEnd, incoming.DateEnd)
	merged.SeriesCount = optional.Merge(stored.SeriesCount, incoming.SeriesCount)
	return merged
}

func readTournament(ctx context.Context, tx *sql.Tx, ref string) (entities.Tournament, bool, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT ref, name, level, date_start, date_end, series_count FROM tournaments WHERE ref = ?`, ref)
	tournament, err := scanTournament(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Tournament{}, false, nil
	}
	if err != nil {
		return entities.Tournament{}, false, err
	}
	return tournament, true, nil
}

func scanTournament(row rowScanner) (entities.Tournament, error) {
	var t entities.Tournament
	var name, level, dateStart, dateEnd sql.NullString
	var seriesCount sql.NullInt64

	if err := row.Scan(&t.Ref, &name, &level, &dateStart, &dateEnd, &seriesCount); err != nil {
		return entities.Tournament{}, err
	}

	t.Name = optStr(name)
	t.Level = optStr(level)
	t.DateStart = optStr(dateStart)
	t.DateEnd = optStr(dateEnd)
	t.SeriesCount = optInt(seriesCount)
	return t, nil
}

// ListTournaments returns all tournaments ordered by start date, earliest
// first, with undated ones last.
func (s *Store) ListTournaments(ctx context.Context) ([]entities.Tournament, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, name, level, date_start, date_end, series_count
		FROM tournaments
		ORDER BY date_start IS NULL, date_start, ref`)
	if err != nil {
		return nil, errors.WrapStore("read", "tournaments", err)
	}
	defer rows.Close()

	var tournaments []entities.Tournament
	for rows.Next() {
		tournament, err := scanTournament(rows)
		if err != nil {
			return nil, errors.WrapStore("read", "tournaments", err)
		}
		tournaments = append(tournaments, tournament)
	}
	return tournaments, errors.WrapStore("read", "tournaments", rows.Err())
}

// ReplaceSeries swaps the stored series of one tournament. The detail page
// always lists every series, so replacement is safe and simpler than a
// field-wise merge.
func (s *Store) ReplaceSeries(ctx context.Context, ref string, series []entities.TournamentSeries) error {
	return s.inTxStore(ctx, "merge", "tournament_series", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tournament_series WHERE tournament_ref = ?`, ref); err != nil {
			return err
		}
		for _, entry := range series {
			if entry.Name == "" {
				return errors.NewRejectError("series", ref, "series without name")
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tournament_series (tournament_ref, name, date, time, entries)
				VALUES (?, ?, ?, ?, ?)`,
				ref, entry.Name, entry.Date.Ptr(), entry.Time.Ptr(), entry.Entries.Ptr())
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSeries returns the stored series of one tournament.
func (s *Store) ListSeries(ctx context.Context, ref string) ([]entities.TournamentSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tournament_ref, name, date, time, entries
		FROM tournament_series
		WHERE tournament_ref = ?
		ORDER BY date, name`, ref)
	if err != nil {
		return nil, errors.WrapStore("read", "tournament_series", err)
	}
	defer rows.Close()

	var series []entities.TournamentSeries
	for rows.Next() {
		var entry entities.TournamentSeries
		var date, timeCol sql.NullString
		var entries sql.NullInt64
		if err := rows.Scan(&entry.TournamentRef, &entry.Name, &date, &timeCol, &entries); err != nil {
			return nil, errors.WrapStore("read", "tournament_series", err)
		}
		entry.Date = optStr(date)
		entry.Time = optStr(timeCol)
		entry.Entries = optInt(entries)
		series = append(series, entry)
	}
	return series, errors.WrapStore("read", "tournament_series", rows.Err())
}
