// Package store is the durable reconciliation store. Records merge under
// the non-regression rule: an incoming field overwrites the stored field
// only when the incoming record observed it. Matches are insert-only and
// idempotent; opponent statistics are replaced whole. The store also holds
// the task ledger.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/racketdata/ttsync/pkg/logging"
	"github.com/racketdata/ttsync/pkg/optional"
)

// Store wraps the SQLite database holding the reconciled catalog and the
// task ledger.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens the database at path, creating and migrating it as needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger := logging.With().Str("component", "store").Logger()
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS clubs (
	code TEXT PRIMARY KEY,
	name TEXT,
	province TEXT,
	full_name TEXT,
	email TEXT,
	phone TEXT,
	status TEXT,
	website TEXT,
	has_shower BOOLEAN,
	venue_name TEXT,
	venue_address TEXT,
	venue_phone TEXT,
	venue_pmr BOOLEAN,
	venue_remarks TEXT,
	teams_men INTEGER,
	teams_women INTEGER,
	teams_youth INTEGER,
	teams_veterans INTEGER,
	label TEXT,
	palette TEXT
);

CREATE TABLE IF NOT EXISTS players (
	licence TEXT PRIMARY KEY,
	name TEXT,
	club_code TEXT,
	ranking TEXT,
	category TEXT,
	points_start REAL,
	points_current REAL,
	ranking_position INTEGER,
	total_wins INTEGER,
	total_losses INTEGER,
	matches_played INTEGER,
	active BOOLEAN,
	women_ranking TEXT,
	women_points_start REAL,
	women_points_current REAL,
	women_total_wins INTEGER,
	women_total_losses INTEGER,
	last_update TEXT
);

CREATE INDEX IF NOT EXISTS idx_players_club ON players(club_code);

CREATE TABLE IF NOT EXISTS matches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_licence TEXT NOT NULL,
	bracket TEXT NOT NULL,
	date TEXT NOT NULL,
	division TEXT NOT NULL,
	opponent_name TEXT,
	opponent_licence TEXT,
	opponent_ranking TEXT,
	opponent_points REAL,
	opponent_club TEXT,
	score TEXT,
	won BOOLEAN,
	points_change REAL,
	UNIQUE(player_licence, bracket, date, division, opponent_licence, opponent_name)
);

CREATE TABLE IF NOT EXISTS player_stats (
	player_licence TEXT NOT NULL,
	bracket TEXT NOT NULL,
	bucket TEXT NOT NULL,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	ratio REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (player_licence, bracket, bucket)
);

CREATE TABLE IF NOT EXISTS tournaments (
	ref TEXT PRIMARY KEY,
	name TEXT,
	level TEXT,
	date_start TEXT,
	date_end TEXT,
	series_count INTEGER
);

CREATE TABLE IF NOT EXISTS tournament_series (
	tournament_ref TEXT NOT NULL,
	name TEXT NOT NULL,
	date TEXT,
	time TEXT,
	entries INTEGER,
	PRIMARY KEY (tournament_ref, name)
);

CREATE TABLE IF NOT EXISTS interclubs_divisions (
	division_index INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	upstream_id TEXT,
	category TEXT,
	gender TEXT
);

CREATE TABLE IF NOT EXISTS interclubs_standings (
	division_index INTEGER NOT NULL,
	week INTEGER NOT NULL,
	team_name TEXT NOT NULL,
	division_name TEXT,
	rank INTEGER,
	played INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	draws INTEGER NOT NULL DEFAULT 0,
	forfeits INTEGER NOT NULL DEFAULT 0,
	points INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (division_index, week, team_name)
);

CREATE INDEX IF NOT EXISTS idx_standings_team ON interclubs_standings(team_name);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	trigger_origin TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	total_units INTEGER NOT NULL DEFAULT 0,
	completed_units INTEGER NOT NULL DEFAULT 0,
	counters TEXT,
	errors TEXT,
	current_unit TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_kind ON tasks(kind, started_at DESC);
`

// inTx runs fn inside a transaction, committing on nil and rolling back
// otherwise.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Null-to-optional conversions used by every scanner in this package.

func optStr(v sql.NullString) optional.Value[string] {
	if !v.Valid {
		return optional.None[string]()
	}
	return optional.Of(v.String)
}

func optInt(v sql.NullInt64) optional.Value[int] {
	if !v.Valid {
		return optional.None[int]()
	}
	return optional.Of(int(v.Int64))
}

func optFloat(v sql.NullFloat64) optional.Value[float64] {
	if !v.Valid {
		return optional.None[float64]()
	}
	return optional.Of(v.Float64)
}

func optBool(v sql.NullBool) optional.Value[bool] {
	if !v.Valid {
		return optional.None[bool]()
	}
	return optional.Of(v.Bool)
}
