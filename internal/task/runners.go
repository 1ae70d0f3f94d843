package task

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/racketdata/ttsync/internal/extract"
	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
)

// Upstream endpoints. The directory page serves both the club selector
// and, via a POSTed club code, the members listing.
const (
	endpointDirectory   = "/index.php"
	endpointSheet       = "/fiche.php"
	endpointTournaments = "/tournois.php"
	endpointRankingList = "/ranking/clubs.php"
	endpointInterclubs  = "/interclubs/rankings_division.php"
)

// interclubsWeeks is the span of the interclubs season. Weeks past the
// played part of the season serve no table and are skipped.
const interclubsWeeks = 22

// runOrganizations syncs the club directory: the club list first, then
// one members page per club. A club whose members page fails is skipped;
// the remaining clubs still sync.
func (o *Orchestrator) runOrganizations(ctx context.Context, r *run) error {
	body, err := o.fetcher.Get(ctx, endpointDirectory, nil)
	if err != nil {
		return err
	}

	clubs, extErrs := extract.Clubs(body)
	for _, e := range extErrs {
		r.recordError(e)
	}
	if len(clubs) == 0 {
		return errors.NewExtractionError("clubs", "no clubs extracted from directory")
	}

	total := len(clubs)
	for i, club := range clubs {
		unit := "club " + club.Code
		if err := o.checkpoint(ctx, r, i, total, unit); err != nil {
			return err
		}

		if err := o.syncClub(ctx, r, club); err != nil {
			if err := o.unitFailed(ctx, r, unit, err); err != nil {
				return err
			}
			continue
		}

		if err := o.pace(ctx, o.pacing.Organization); err != nil {
			return err
		}
	}

	return o.checkpoint(ctx, r, total, total, "")
}

// syncClub merges one club, its ranking list, and its member roster. The
// ranking list knows inactive players the members page omits; it merges
// first so the roster's category can overlay its senior default. A failing
// ranking list costs one recorded error, not the club.
func (o *Orchestrator) syncClub(ctx context.Context, r *run, club entities.Club) error {
	if err := o.store.MergeClub(ctx, club); err != nil {
		return err
	}
	r.count("clubs", 1)

	if err := o.syncRankingList(ctx, r, club.Code); err != nil {
		if errors.IsCanceled(err) || errors.IsFatal(err) {
			return err
		}
		r.recordError(fmt.Errorf("ranking list %s: %w", club.Code, err))
	}

	form := url.Values{}
	form.Set("club", club.Code)
	body, err := o.fetcher.PostForm(ctx, endpointDirectory, form)
	if err != nil {
		return err
	}

	page, extErrs := extract.Members(body, club.Code)
	for _, e := range extErrs {
		r.recordError(e)
	}

	// The members page carries richer club details than the selector.
	if err := o.store.MergeClub(ctx, page.Club); err != nil {
		return err
	}

	merged := 0
	for _, member := range page.Members {
		if err := o.store.MergePlayer(ctx, member); err != nil {
			if errors.IsFatal(err) {
				return err
			}
			r.recordError(err)
			continue
		}
		merged++
	}
	r.count("players", merged)
	r.log("club %s: %d members", club.Code, merged)
	return nil
}

// syncRankingList merges one club's ranking list: every licensed player
// with their classification position, match count, and current points.
func (o *Orchestrator) syncRankingList(ctx context.Context, r *run, code string) error {
	params := url.Values{}
	params.Set("club", code)
	body, err := o.fetcher.Get(ctx, endpointRankingList, params)
	if err != nil {
		return err
	}

	players, extErrs := extract.RankingList(body, code)
	for _, e := range extErrs {
		r.recordError(e)
	}

	merged := 0
	for _, player := range players {
		if err := o.store.MergePlayer(ctx, player); err != nil {
			if errors.IsFatal(err) {
				return err
			}
			r.recordError(err)
			continue
		}
		merged++
	}
	r.count("players", merged)
	return nil
}

// runProfiles sweeps every known licence, fetching the player sheet in
// both brackets. A licence whose sheet yields no women's record is normal
// and skipped quietly; a fetch failure on either bracket is a per-unit
// error, and a failing men's sheet skips the unit.
func (o *Orchestrator) runProfiles(ctx context.Context, r *run) error {
	licences, err := o.store.ListLicences(ctx)
	if err != nil {
		return err
	}
	if len(licences) == 0 {
		r.log("no licences known, nothing to sweep")
		return nil
	}

	total := len(licences)
	for i, licence := range licences {
		unit := "player " + licence
		if err := o.checkpoint(ctx, r, i, total, unit); err != nil {
			return err
		}

		if err := o.syncProfile(ctx, r, licence, entities.BracketMen); err != nil {
			if err := o.unitFailed(ctx, r, unit, err); err != nil {
				return err
			}
			continue
		}
		if err := o.syncProfile(ctx, r, licence, entities.BracketWomen); err != nil {
			switch {
			case errors.IsCanceled(err) || errors.IsFatal(err):
				return err
			case errors.IsTransient(err):
				// The fetch itself failed; a real sheet may have been
				// missed, so the error goes on the record.
				if err := o.unitFailed(ctx, r, unit, err); err != nil {
					return err
				}
			default:
				// Most players have no women's-bracket sheet.
				o.logger.Debug().Str("licence", licence).Err(err).Msg("no women sheet")
			}
		}

		r.count("players", 1)
		if err := o.pace(ctx, o.pacing.Unit); err != nil {
			return err
		}
	}

	return o.checkpoint(ctx, r, total, total, "")
}

// syncProfile fetches and reconciles one player sheet.
func (o *Orchestrator) syncProfile(ctx context.Context, r *run, licence string, bracket entities.Bracket) error {
	params := url.Values{}
	params.Set("licence", licence)
	if bracket == entities.BracketWomen {
		params.Set("sexe", "F")
	}

	body, err := o.fetcher.Get(ctx, endpointSheet, params)
	if err != nil {
		return err
	}

	profile, extErrs := extract.PlayerSheet(body, licence, bracket)
	if profile.Player.Name.Present() || len(extErrs) == 0 {
		for _, e := range extErrs {
			r.recordError(e)
		}
	} else {
		// Nothing usable extracted; surface the first diagnostic.
		return extErrs[0]
	}

	if err := o.store.MergePlayer(ctx, profile.Player); err != nil {
		return err
	}
	if len(profile.Matches) > 0 {
		inserted, err := o.store.InsertMatches(ctx, profile.Matches)
		if err != nil {
			return err
		}
		r.count("matches", inserted)
	}
	if len(profile.Stats) > 0 {
		if err := o.store.ReplaceStats(ctx, licence, bracket, profile.Stats); err != nil {
			return err
		}
	}
	return nil
}

// runCompetitions syncs the tournament calendar and each tournament's
// series.
func (o *Orchestrator) runCompetitions(ctx context.Context, r *run) error {
	body, err := o.fetcher.Get(ctx, endpointTournaments, nil)
	if err != nil {
		return err
	}

	tournaments, extErrs := extract.Tournaments(body)
	for _, e := range extErrs {
		r.recordError(e)
	}
	if len(tournaments) == 0 {
		return errors.NewExtractionError("tournaments", "no tournaments extracted")
	}

	total := len(tournaments)
	for i, tournament := range tournaments {
		unit := "tournament " + tournament.Ref
		if err := o.checkpoint(ctx, r, i, total, unit); err != nil {
			return err
		}

		if err := o.syncTournament(ctx, r, tournament); err != nil {
			if err := o.unitFailed(ctx, r, unit, err); err != nil {
				return err
			}
			continue
		}

		if err := o.pace(ctx, o.pacing.Unit); err != nil {
			return err
		}
	}

	return o.checkpoint(ctx, r, total, total, "")
}

// syncTournament merges one tournament and replaces its series from the
// detail page.
func (o *Orchestrator) syncTournament(ctx context.Context, r *run, tournament entities.Tournament) error {
	if err := o.store.MergeTournament(ctx, tournament); err != nil {
		return err
	}
	r.count("tournaments", 1)

	params := url.Values{}
	params.Set("t_id", tournament.Ref)
	body, err := o.fetcher.Get(ctx, endpointTournaments, params)
	if err != nil {
		return err
	}

	series, extErrs := extract.TournamentSeries(body, tournament.Ref)
	for _, e := range extErrs {
		r.recordError(e)
	}
	if len(series) == 0 {
		return nil
	}

	if err := o.store.ReplaceSeries(ctx, tournament.Ref, series); err != nil {
		return err
	}
	r.count("series", len(series))
	return nil
}

// runInterclubs syncs the interclubs season: the division list first, then
// every division's weekly ranking tables. A division whose tables fail is
// skipped; the remaining divisions still sync.
func (o *Orchestrator) runInterclubs(ctx context.Context, r *run) error {
	body, err := o.fetcher.Get(ctx, endpointInterclubs, nil)
	if err != nil {
		return err
	}

	divisions, extErrs := extract.Divisions(body)
	for _, e := range extErrs {
		r.recordError(e)
	}
	if len(divisions) == 0 {
		return errors.NewExtractionError("divisions", "no divisions extracted")
	}

	total := len(divisions)
	for i, division := range divisions {
		unit := "division " + division.Name
		if err := o.checkpoint(ctx, r, i, total, unit); err != nil {
			return err
		}

		if err := o.syncDivision(ctx, r, division); err != nil {
			if err := o.unitFailed(ctx, r, unit, err); err != nil {
				return err
			}
			continue
		}

		if err := o.pace(ctx, o.pacing.Organization); err != nil {
			return err
		}
	}

	return o.checkpoint(ctx, r, total, total, "")
}

// syncDivision merges one division and replaces its ranking table for
// every played week. A week that fails to fetch costs a recorded error;
// a week without a table is simply not played yet.
func (o *Orchestrator) syncDivision(ctx context.Context, r *run, division entities.Division) error {
	if err := o.store.MergeDivision(ctx, division); err != nil {
		return err
	}
	r.count("divisions", 1)

	stored := 0
	for week := 1; week <= interclubsWeeks; week++ {
		if ctx.Err() != nil {
			return errors.ErrCanceled
		}

		params := url.Values{}
		params.Set("division", division.UpstreamID.Or(strconv.Itoa(division.Index)))
		params.Set("week", strconv.Itoa(week))
		body, err := o.fetcher.Get(ctx, endpointInterclubs, params)
		if err != nil {
			if errors.IsCanceled(err) || errors.IsFatal(err) {
				return err
			}
			r.recordError(fmt.Errorf("division %s week %d: %w", division.Name, week, err))
			continue
		}

		standings, extErrs := extract.DivisionStandings(body, division.Index, division.Name, week)
		for _, e := range extErrs {
			r.recordError(e)
		}
		if len(standings) == 0 {
			continue
		}

		if err := o.store.ReplaceStandings(ctx, division.Index, week, standings); err != nil {
			return err
		}
		stored += len(standings)

		if err := o.pace(ctx, o.pacing.Unit); err != nil {
			return err
		}
	}

	r.count("standings", stored)
	r.log("division %s: %d standings", division.Name, stored)
	return nil
}
