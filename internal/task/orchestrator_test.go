package task_test

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racketdata/ttsync/internal/store"
	"github.com/racketdata/ttsync/internal/task"
	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// fakeFetcher serves canned documents keyed by endpoint plus a
// distinguishing parameter.
type fakeFetcher struct {
	get  func(endpoint string, params url.Values) ([]byte, error)
	post func(endpoint string, form url.Values) ([]byte, error)
}

func (f *fakeFetcher) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, errors.ErrCanceled
	}
	return f.get(endpoint, params)
}

func (f *fakeFetcher) PostForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, errors.ErrCanceled
	}
	if f.post == nil {
		return nil, errors.NewExtractionError("test", "unexpected POST")
	}
	return f.post(endpoint, form)
}

// blockingFetcher parks every fetch until its context is cancelled.
type blockingFetcher struct {
	started chan struct{}
}

func (f *blockingFetcher) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	select {
	case f.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, errors.ErrCanceled
}

func (f *blockingFetcher) PostForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	return f.Get(ctx, endpoint, form)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ttsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const directoryPage = `<html><body><select name="club">
	<option value="">-- Choisissez --</option>
	<option value="H004">H004 - CTT Mons</option>
	<option value="Lx014">Lx014 - Arlon TT</option>
</select></body></html>`

func membersPage(licence, name string) []byte {
	return []byte(`<html><body><table>
		<tr><th>Licence</th><th>Nom</th><th>Cat</th><th>Classement</th></tr>
		<tr><td>` + licence + `</td><td>` + name + `</td><td>SEN</td><td>C4</td></tr>
	</table></body></html>`)
}

func TestOrganizationsTask(t *testing.T) {
	s := openStore(t)

	fetcher := &fakeFetcher{
		get: func(endpoint string, params url.Values) ([]byte, error) {
			return []byte(directoryPage), nil
		},
		post: func(endpoint string, form url.Values) ([]byte, error) {
			switch form.Get("club") {
			case "H004":
				return membersPage("104231", "MARC DUPONT"), nil
			case "Lx014":
				return membersPage("151410", "LUCAS MENIER"), nil
			}
			return nil, errors.NewExtractionError("test", "unknown club")
		},
	}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	created, err := o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	o.Wait(entities.TaskOrganizations)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSuccess, final.Status)
	assert.Empty(t, final.Errors)
	assert.Equal(t, 2, final.Counters["clubs"])
	assert.Equal(t, 2, final.Counters["players"])
	assert.Equal(t, 2, final.CompletedUnits)
	assert.Equal(t, 2, final.TotalUnits)

	clubs, err := s.ListClubs(ctx, "")
	require.NoError(t, err)
	require.Len(t, clubs, 2)
	assert.Equal(t, "Hainaut", clubs[0].Province.MustGet())

	player, err := s.GetPlayer(ctx, "104231")
	require.NoError(t, err)
	assert.Equal(t, "H004", player.ClubCode.MustGet())
	assert.Equal(t, "C4", player.Ranking.MustGet())
}

func TestOrganizationsFaultIsolation(t *testing.T) {
	s := openStore(t)

	fetcher := &fakeFetcher{
		get: func(endpoint string, params url.Values) ([]byte, error) {
			return []byte(directoryPage), nil
		},
		post: func(endpoint string, form url.Values) ([]byte, error) {
			if form.Get("club") == "H004" {
				return nil, errors.NewTransientError(endpoint, 3, errors.ErrUpstreamUnavailable)
			}
			return membersPage("151410", "LUCAS MENIER"), nil
		},
	}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	created, err := o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	o.Wait(entities.TaskOrganizations)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)

	// The failing club is recorded but does not sink the run.
	assert.Equal(t, entities.StatusSuccess, final.Status)
	require.NotEmpty(t, final.Errors)
	assert.Contains(t, final.Errors[0], "H004")

	_, err = s.GetPlayer(ctx, "151410")
	assert.NoError(t, err)
}

func TestStartConflictPerKind(t *testing.T) {
	s := openStore(t)
	fetcher := &blockingFetcher{started: make(chan struct{}, 1)}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	_, err := o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	<-fetcher.started

	_, err = o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	assert.ErrorIs(t, err, errors.ErrConflict)

	// A different kind is free to run.
	_, err = o.Start(ctx, entities.TaskCompetitions, entities.TriggerManual)
	require.NoError(t, err)

	require.NoError(t, o.Cancel(entities.TaskOrganizations))
	require.NoError(t, o.Cancel(entities.TaskCompetitions))
	o.Wait(entities.TaskOrganizations)
	o.Wait(entities.TaskCompetitions)
}

func TestCancelTransitionsToCancelled(t *testing.T) {
	s := openStore(t)
	fetcher := &blockingFetcher{started: make(chan struct{}, 1)}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	created, err := o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	<-fetcher.started

	require.NoError(t, o.Cancel(entities.TaskOrganizations))
	o.Wait(entities.TaskOrganizations)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, final.Status)
	require.NotNil(t, final.FinishedAt)

	// Cancelling again reports nothing to cancel.
	assert.ErrorIs(t, o.Cancel(entities.TaskOrganizations), errors.ErrNotRunning)

	// A fresh run of the kind may start after the terminal transition.
	_, err = o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	require.NoError(t, o.Cancel(entities.TaskOrganizations))
	o.Wait(entities.TaskOrganizations)
}

func TestCancelUnknownKind(t *testing.T) {
	s := openStore(t)
	o := task.New(&fakeFetcher{}, s)

	assert.ErrorIs(t, o.Cancel(entities.TaskProfilesAll), errors.ErrNotRunning)
}

func TestCancelAndLogsByID(t *testing.T) {
	s := openStore(t)
	fetcher := &blockingFetcher{started: make(chan struct{}, 1)}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	created, err := o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	<-fetcher.started

	logs, err := o.LogsByID(created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, logs)

	require.NoError(t, o.CancelByID(created.ID))
	o.Wait(entities.TaskOrganizations)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, final.Status)

	assert.ErrorIs(t, o.CancelByID(created.ID+100), errors.ErrNotRunning)
	_, err = o.LogsByID(created.ID + 100)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

const menSheet = `<html><body>
	<h2>104231 - MARC DUPONT - C4</h2>
	<div><h5>Points de départ</h5><h3>850,0 pts</h3></div>
	<div><h5>Points actuels</h5><h3>861,5 pts</h3></div>
	<div class="card">
		<div class="card-header">10/01/2026 - PHM05/012 - Arlon TT</div>
		<div class="match-card">
			<h6>LUCAS MENIER</h6>
			<input type="hidden" name="licence" value="151410">
			<h5 class="fw-bold">3-0</h5>
		</div>
	</div>
</body></html>`

func TestProfilesTask(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.MergePlayer(ctx, entities.Player{
		Licence:  "104231",
		ClubCode: optional.Of("H004"),
	}))

	fetcher := &fakeFetcher{
		get: func(endpoint string, params url.Values) ([]byte, error) {
			if params.Get("sexe") == "F" {
				// No women's sheet for this player.
				return []byte(`<html><body><p>aucune fiche</p></body></html>`), nil
			}
			return []byte(menSheet), nil
		},
	}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))

	created, err := o.Start(ctx, entities.TaskProfilesAll, entities.TriggerManual)
	require.NoError(t, err)
	o.Wait(entities.TaskProfilesAll)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSuccess, final.Status)
	assert.Empty(t, final.Errors)
	assert.Equal(t, 1, final.Counters["players"])
	assert.Equal(t, 1, final.Counters["matches"])

	player, err := s.GetPlayer(ctx, "104231")
	require.NoError(t, err)
	assert.Equal(t, "MARC DUPONT", player.Name.MustGet())
	assert.InDelta(t, 861.5, player.PointsCurrent.MustGet(), 0.001)
	// The sheet said nothing about the club; the roster value survives.
	assert.Equal(t, "H004", player.ClubCode.MustGet())

	matches, err := s.ListMatches(ctx, "104231", entities.BracketMen)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "151410", matches[0].OpponentLicence.MustGet())
}

func TestProfilesWomenFetchFailureRecorded(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.MergePlayer(ctx, entities.Player{
		Licence:  "104231",
		ClubCode: optional.Of("H004"),
	}))

	fetcher := &fakeFetcher{
		get: func(endpoint string, params url.Values) ([]byte, error) {
			if params.Get("sexe") == "F" {
				// The upstream gave out, not the player's sheet layout.
				return nil, errors.NewTransientError(endpoint, 3, errors.ErrUpstreamUnavailable)
			}
			return []byte(menSheet), nil
		},
	}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))

	created, err := o.Start(ctx, entities.TaskProfilesAll, entities.TriggerManual)
	require.NoError(t, err)
	o.Wait(entities.TaskProfilesAll)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)

	// The men's side still merged and the run finished, but the missed
	// fetch is on the record rather than silently skipped.
	assert.Equal(t, entities.StatusSuccess, final.Status)
	require.NotEmpty(t, final.Errors)
	assert.Contains(t, final.Errors[0], "104231")

	player, err := s.GetPlayer(ctx, "104231")
	require.NoError(t, err)
	assert.Equal(t, "MARC DUPONT", player.Name.MustGet())
}

const rankingListTaskPage = `<html><body>
<table id="datatable-messieurs">
	<tr><th>Pos</th><th>Position</th><th>Nom</th><th>Clt</th><th>Club</th><th>Match</th><th>Points</th><th>Action</th></tr>
	<tr><td>1</td><td>412</td><td>MARC DUPONT</td><td>C4</td><td>H004</td><td>18</td><td>861,5</td>
		<td><a href="fiche.php?licenceID=104231">fiche</a></td></tr>
	<tr><td>2</td><td>Inactif</td><td>PAUL LEGRAND</td><td>E2</td><td>H004</td><td>0</td><td>512,0</td>
		<td><a href="fiche.php?licenceID=108556">fiche</a></td></tr>
</table>
</body></html>`

func TestOrganizationsRankingListEnrichment(t *testing.T) {
	s := openStore(t)

	fetcher := &fakeFetcher{
		get: func(endpoint string, params url.Values) ([]byte, error) {
			if params.Get("club") != "" {
				return []byte(rankingListTaskPage), nil
			}
			return []byte(`<html><body><select name="club">
				<option value="">-- Choisissez --</option>
				<option value="H004">H004 - CTT Mons</option>
			</select></body></html>`), nil
		},
		post: func(endpoint string, form url.Values) ([]byte, error) {
			return []byte(`<html><body><table>
				<tr><th>Licence</th><th>Nom</th><th>Cat</th><th>Classement</th></tr>
				<tr><td>104231</td><td>MARC DUPONT</td><td>VET</td><td>C4</td></tr>
			</table></body></html>`), nil
		},
	}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	created, err := o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	o.Wait(entities.TaskOrganizations)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSuccess, final.Status)
	assert.Empty(t, final.Errors)

	// The roster's category overlays the ranking list's senior default;
	// the list's position and match count survive.
	marc, err := s.GetPlayer(ctx, "104231")
	require.NoError(t, err)
	assert.Equal(t, "VET", marc.Category.MustGet())
	assert.Equal(t, 412, marc.RankingPosition.MustGet())
	assert.Equal(t, 18, marc.MatchesPlayed.MustGet())

	// Inactive players never reach the members page but are known anyway.
	paul, err := s.GetPlayer(ctx, "108556")
	require.NoError(t, err)
	assert.False(t, paul.Active.MustGet())
	assert.Equal(t, "SEN", paul.Category.MustGet())
}

const divisionsTaskPage = `<html><body><select id="divisionSelect">
	<option value="">-- Choisissez une division --</option>
	<option value="8662">Division 1 - NAT - Messieurs</option>
</select></body></html>`

const standingsTaskPage = `<html><body><table>
	<tr><th>#</th><th>Equipe</th><th>J</th><th>G</th><th>P</th><th>N</th><th>FF</th><th>Pts</th></tr>
	<tr><td>1</td><td>CTT Mons A</td><td>1</td><td>1</td><td>0</td><td>0</td><td>0</td><td>2</td></tr>
	<tr><td>2</td><td>Arlon TT B</td><td>1</td><td>0</td><td>1</td><td>0</td><td>0</td><td>0</td></tr>
</table></body></html>`

func TestInterclubsTask(t *testing.T) {
	s := openStore(t)

	fetcher := &fakeFetcher{
		get: func(endpoint string, params url.Values) ([]byte, error) {
			switch {
			case params.Get("division") == "":
				return []byte(divisionsTaskPage), nil
			case params.Get("week") == "1":
				return []byte(standingsTaskPage), nil
			default:
				// Weeks not played yet serve a page without a table.
				return []byte(`<html><body><p>pas encore</p></body></html>`), nil
			}
		},
	}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	created, err := o.Start(ctx, entities.TaskInterclubs, entities.TriggerManual)
	require.NoError(t, err)
	o.Wait(entities.TaskInterclubs)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSuccess, final.Status)
	assert.Empty(t, final.Errors)
	assert.Equal(t, 1, final.Counters["divisions"])
	assert.Equal(t, 2, final.Counters["standings"])

	divisions, err := s.ListDivisions(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, divisions, 1)
	assert.Equal(t, "8662", divisions[0].UpstreamID.MustGet())

	table, err := s.ListStandings(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "CTT Mons A", table[0].TeamName)
	assert.Equal(t, 2, table[0].Points)

	// The empty weeks left nothing behind.
	later, err := s.ListStandings(ctx, 0, 2)
	require.NoError(t, err)
	assert.Empty(t, later)
}

const tournamentsPage = `<html><body><table>
	<tr><th>Nom</th><th>Niveau</th><th>Date</th><th>Ref</th></tr>
	<tr><td><a href="?t_id=412">Open de Mons</a></td><td>Provincial</td><td>26/07-27/07/2025</td><td>412</td></tr>
</table></body></html>`

const seriesPage = `<html><body><table>
	<tr><th>Date</th><th>Heure</th><th>Série</th><th>Inscriptions</th></tr>
	<tr><td>26/07/2025</td><td>09:30</td><td>Série B</td><td>24</td></tr>
</table></body></html>`

func TestCompetitionsTask(t *testing.T) {
	s := openStore(t)

	fetcher := &fakeFetcher{
		get: func(endpoint string, params url.Values) ([]byte, error) {
			if params.Get("t_id") != "" {
				return []byte(seriesPage), nil
			}
			return []byte(tournamentsPage), nil
		},
	}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	created, err := o.Start(ctx, entities.TaskCompetitions, entities.TriggerManual)
	require.NoError(t, err)
	o.Wait(entities.TaskCompetitions)

	final, err := o.Status(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSuccess, final.Status)
	assert.Equal(t, 1, final.Counters["tournaments"])
	assert.Equal(t, 1, final.Counters["series"])

	series, err := s.ListSeries(ctx, "412")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "Série B", series[0].Name)
}

func TestLogsAndHistory(t *testing.T) {
	s := openStore(t)

	fetcher := &fakeFetcher{
		get: func(endpoint string, params url.Values) ([]byte, error) {
			return []byte(directoryPage), nil
		},
		post: func(endpoint string, form url.Values) ([]byte, error) {
			return membersPage("104231", "MARC DUPONT"), nil
		},
	}

	o := task.New(fetcher, s, task.WithPacing(task.Pacing{}))
	ctx := context.Background()

	_, err := o.Start(ctx, entities.TaskOrganizations, entities.TriggerManual)
	require.NoError(t, err)
	o.Wait(entities.TaskOrganizations)

	logs, err := o.Logs(entities.TaskOrganizations)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "started")
	assert.Contains(t, logs[len(logs)-1].Message, "finished")
	assert.False(t, logs[0].Timestamp.Time.After(time.Now().Add(time.Minute)))

	_, err = o.Logs(entities.TaskCompetitions)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	history, err := o.History(ctx, entities.TaskOrganizations, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.StatusSuccess, history[0].Status)
}
