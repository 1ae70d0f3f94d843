package store_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racketdata/ttsync/internal/store"
	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ttsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMergeClubNonRegression(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.MergeClub(ctx, entities.Club{
		Code:     "H004",
		Name:     optional.Of("CTT Mons"),
		Province: optional.Of("Hainaut"),
		Email:    optional.Of("old@cttmons.be"),
	}))

	// A later fetch that only observed the name must not erase the
	// province, but its observed fields do overwrite.
	require.NoError(t, s.MergeClub(ctx, entities.Club{
		Code:  "H004",
		Name:  optional.Of("CTT Mons"),
		Email: optional.Of("new@cttmons.be"),
	}))

	club, err := s.GetClub(ctx, "H004")
	require.NoError(t, err)
	assert.Equal(t, "Hainaut", club.Province.MustGet())
	assert.Equal(t, "new@cttmons.be", club.Email.MustGet())
	assert.Equal(t, "CTT Mons", club.Name.MustGet())
}

func TestMergeClubRejectsEmptyCode(t *testing.T) {
	s := openStore(t)

	err := s.MergeClub(context.Background(), entities.Club{Name: optional.Of("nameless")})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestGetClubNotFound(t *testing.T) {
	s := openStore(t)

	_, err := s.GetClub(context.Background(), "Z999")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMergeClubDerivesProvince(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	// No side observed a province; the code prefix fills it in.
	require.NoError(t, s.MergeClub(ctx, entities.Club{Code: "Lx014"}))
	club, err := s.GetClub(ctx, "Lx014")
	require.NoError(t, err)
	assert.Equal(t, "Luxembourg", club.Province.MustGet())

	// An observed province is never replaced by the derived one.
	require.NoError(t, s.MergeClub(ctx, entities.Club{
		Code:     "H004",
		Province: optional.Of("Hainaut (corrigé)"),
	}))
	require.NoError(t, s.MergeClub(ctx, entities.Club{Code: "H004"}))
	club, err = s.GetClub(ctx, "H004")
	require.NoError(t, err)
	assert.Equal(t, "Hainaut (corrigé)", club.Province.MustGet())
}

func TestListClubsByProvince(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for _, club := range []entities.Club{
		{Code: "H004", Province: optional.Of("Hainaut")},
		{Code: "H010", Province: optional.Of("Hainaut")},
		{Code: "Lx014", Province: optional.Of("Luxembourg")},
	} {
		require.NoError(t, s.MergeClub(ctx, club))
	}

	clubs, err := s.ListClubs(ctx, "Hainaut")
	require.NoError(t, err)
	require.Len(t, clubs, 2)
	assert.Equal(t, "H004", clubs[0].Code)

	all, err := s.ListClubs(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMergePlayerRosterThenSheet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	// Roster pass observes club membership and ranking.
	require.NoError(t, s.MergePlayer(ctx, entities.Player{
		Licence:  "103603",
		Name:     optional.Of("JEAN-FRANCOIS CULOT"),
		ClubCode: optional.Of("H004"),
		Ranking:  optional.Of("D0"),
		Category: optional.Of("SEN"),
	}))

	// Sheet pass observes points but says nothing about the club.
	require.NoError(t, s.MergePlayer(ctx, entities.Player{
		Licence:       "103603",
		Name:          optional.Of("JEAN-FRANCOIS CULOT"),
		Ranking:       optional.Of("D0"),
		PointsCurrent: optional.Of(734.0),
	}))

	player, err := s.GetPlayer(ctx, "103603")
	require.NoError(t, err)
	assert.Equal(t, "H004", player.ClubCode.MustGet())
	assert.Equal(t, "SEN", player.Category.MustGet())
	assert.InDelta(t, 734.0, player.PointsCurrent.MustGet(), 0.001)
}

func TestMergePlayerRankingListThenRoster(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	// Ranking-list pass: senior default, position, activity, match count.
	require.NoError(t, s.MergePlayer(ctx, entities.Player{
		Licence:         "108556",
		Name:            optional.Of("PAUL LEGRAND"),
		ClubCode:        optional.Of("H004"),
		Category:        optional.Of("SEN"),
		RankingPosition: optional.Of(412),
		MatchesPlayed:   optional.Of(18),
		Active:          optional.Of(true),
	}))

	// Roster pass overlays the real category without touching the
	// ranking-list figures.
	require.NoError(t, s.MergePlayer(ctx, entities.Player{
		Licence:  "108556",
		Name:     optional.Of("PAUL LEGRAND"),
		ClubCode: optional.Of("H004"),
		Category: optional.Of("VET"),
	}))

	player, err := s.GetPlayer(ctx, "108556")
	require.NoError(t, err)
	assert.Equal(t, "VET", player.Category.MustGet())
	assert.Equal(t, 412, player.RankingPosition.MustGet())
	assert.Equal(t, 18, player.MatchesPlayed.MustGet())
	assert.True(t, player.Active.MustGet())
}

func TestMergePlayerRejectsEmptyLicence(t *testing.T) {
	s := openStore(t)

	err := s.MergePlayer(context.Background(), entities.Player{})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestInsertMatchesIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	matches := []entities.Match{
		{
			PlayerLicence:   "103603",
			Bracket:         entities.BracketMen,
			Date:            "10/01/2026",
			Division:        "PHM12/045",
			OpponentLicence: optional.Of("120774"),
			OpponentName:    optional.Of("PIERRE MARTIN"),
			Score:           optional.Of("3-1"),
			Won:             optional.Of(true),
		},
		{
			PlayerLicence:   "103603",
			Bracket:         entities.BracketMen,
			Date:            "10/01/2026",
			Division:        "PHM12/045",
			OpponentLicence: optional.Of("131201"),
			OpponentName:    optional.Of("PAUL LEROY"),
			Score:           optional.Of("1-3"),
			Won:             optional.Of(false),
		},
	}

	inserted, err := s.InsertMatches(ctx, matches)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Replaying the same sheet inserts nothing.
	inserted, err = s.InsertMatches(ctx, matches)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	stored, err := s.ListMatches(ctx, "103603", entities.BracketMen)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].Won.MustGet())
}

func TestReplaceStats(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceStats(ctx, "103603", entities.BracketMen, []entities.OpponentStat{
		{PlayerLicence: "103603", Bracket: entities.BracketMen, Bucket: "C6", Wins: 1, Losses: 3, Ratio: 25},
		{PlayerLicence: "103603", Bracket: entities.BracketMen, Bucket: "D0", Wins: 4, Losses: 2, Ratio: 66.7},
	}))

	// A fresh sheet replaces the whole set.
	require.NoError(t, s.ReplaceStats(ctx, "103603", entities.BracketMen, []entities.OpponentStat{
		{PlayerLicence: "103603", Bracket: entities.BracketMen, Bucket: "D0", Wins: 5, Losses: 2, Ratio: 71.4},
	}))

	stats, err := s.ListStats(ctx, "103603", entities.BracketMen)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 5, stats[0].Wins)
}

func TestMergeTournamentAndSeries(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.MergeTournament(ctx, entities.Tournament{
		Ref:       "412",
		Name:      optional.Of("Open de Mons"),
		DateStart: optional.Of("26/07/2025"),
		DateEnd:   optional.Of("27/07/2025"),
	}))

	// Listing refresh without dates keeps them.
	require.NoError(t, s.MergeTournament(ctx, entities.Tournament{
		Ref:   "412",
		Name:  optional.Of("Open de Mons"),
		Level: optional.Of("Provincial"),
	}))

	tournaments, err := s.ListTournaments(ctx)
	require.NoError(t, err)
	require.Len(t, tournaments, 1)
	assert.Equal(t, "26/07/2025", tournaments[0].DateStart.MustGet())
	assert.Equal(t, "Provincial", tournaments[0].Level.MustGet())

	require.NoError(t, s.ReplaceSeries(ctx, "412", []entities.TournamentSeries{
		{TournamentRef: "412", Name: "Série B", Date: optional.Of("26/07/2025"), Entries: optional.Of(24)},
		{TournamentRef: "412", Name: "Série C", Date: optional.Of("26/07/2025")},
	}))

	series, err := s.ListSeries(ctx, "412")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 24, series[0].Entries.MustGet())
}

func TestLedgerLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusRunning, task.Status)
	assert.NotZero(t, task.ID)

	// A second task of the same kind conflicts while the first runs.
	_, err = s.CreateTask(ctx, entities.TaskOrganizations, entities.TriggerManual)
	assert.ErrorIs(t, err, errors.ErrConflict)

	// A different kind runs concurrently.
	other, err := s.CreateTask(ctx, entities.TaskCompetitions, entities.TriggerScheduled)
	require.NoError(t, err)

	require.NoError(t, s.UpdateTaskProgress(ctx, task.ID, 3, 10, "club H004"))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CompletedUnits)
	assert.Equal(t, 10, got.TotalUnits)
	assert.Equal(t, "club H004", got.CurrentUnit)

	err = s.FinalizeTask(ctx, task.ID, entities.StatusSuccess,
		map[string]int{"clubs": 10}, []string{"club X009: fetch failed"})
	require.NoError(t, err)

	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSuccess, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 10, got.Counters["clubs"])
	require.Len(t, got.Errors, 1)
	assert.Empty(t, got.CurrentUnit)

	// Finalize is once-only.
	err = s.FinalizeTask(ctx, task.ID, entities.StatusFailed, nil, nil)
	assert.ErrorIs(t, err, errors.ErrNotRunning)

	// The other kind is still running and visible as such.
	running, err := s.RunningTask(ctx, entities.TaskCompetitions)
	require.NoError(t, err)
	assert.Equal(t, other.ID, running.ID)

	// After success a new run of the same kind may start.
	_, err = s.CreateTask(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
}

func TestLedgerHistoryOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		task, err := s.CreateTask(ctx, entities.TaskOrganizations, entities.TriggerManual)
		require.NoError(t, err)
		require.NoError(t, s.FinalizeTask(ctx, task.ID, entities.StatusSuccess, nil, nil))
	}

	tasks, err := s.ListTasks(ctx, entities.TaskOrganizations, 2)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Greater(t, tasks[0].ID, tasks[1].ID)
}

func TestLedgerRejectsUnknownKind(t *testing.T) {
	s := openStore(t)

	_, err := s.CreateTask(context.Background(), entities.TaskKind("everything"), entities.TriggerManual)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestLedgerCorruptRowSurfaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ttsync.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	task, err := s.CreateTask(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	require.NoError(t, s.FinalizeTask(ctx, task.ID, entities.StatusSuccess, nil, nil))

	// Damage the row behind the store's back; reads must report the
	// corruption instead of serving a silently emptied task.
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx,
		`UPDATE tasks SET counters = '{broken', errors = '[broken' WHERE id = ?`, task.ID)
	require.NoError(t, err)

	_, err = s.GetTask(ctx, task.ID)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "counters")

	_, err = s.ListTasks(ctx, entities.TaskOrganizations, 10)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestRecoverInterrupted(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, entities.TaskProfilesAll, entities.TriggerManual)
	require.NoError(t, err)

	recovered, err := s.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusFailed, got.Status)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "interrupted")
}
