package server

import (
	"net/http"
	"strconv"

	"github.com/racketdata/ttsync/internal/server/response"
	"github.com/racketdata/ttsync/pkg/entities"
)

// cached serves a read endpoint from the TTL cache, computing and storing
// the value on a miss. The cache key is the full request URI, so every
// filter combination caches independently.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, compute func() (any, error)) {
	key := r.URL.RequestURI()
	if value, ok := s.cache.Get(key); ok {
		response.OK(w, value)
		return
	}

	value, err := compute()
	if err != nil {
		response.FromError(w, err)
		return
	}
	s.cache.Set(key, value)
	response.OK(w, value)
}

// handleListClubs returns all clubs, optionally filtered by province.
// GET /api/v1/clubs?province=...
func (s *Server) handleListClubs(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func() (any, error) {
		return s.store.ListClubs(r.Context(), r.URL.Query().Get("province"))
	})
}

// GET /api/v1/clubs/{code}
func (s *Server) handleGetClub(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func() (any, error) {
		return s.store.GetClub(r.Context(), r.PathValue("code"))
	})
}

// GET /api/v1/clubs/{code}/members
func (s *Server) handleClubMembers(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	s.cached(w, r, func() (any, error) {
		// 404 on unknown clubs rather than an empty roster.
		if _, err := s.store.GetClub(r.Context(), code); err != nil {
			return nil, err
		}
		return s.store.ListPlayers(r.Context(), code)
	})
}

// GET /api/v1/players/{licence}
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func() (any, error) {
		return s.store.GetPlayer(r.Context(), r.PathValue("licence"))
	})
}

// bracketParam reads the bracket query parameter, defaulting to men.
func bracketParam(r *http.Request) (entities.Bracket, bool) {
	switch r.URL.Query().Get("bracket") {
	case "", string(entities.BracketMen):
		return entities.BracketMen, true
	case string(entities.BracketWomen):
		return entities.BracketWomen, true
	}
	return "", false
}

// GET /api/v1/players/{licence}/matches?bracket=men|women
func (s *Server) handlePlayerMatches(w http.ResponseWriter, r *http.Request) {
	bracket, ok := bracketParam(r)
	if !ok {
		response.BadRequest(w, "unknown bracket", r.URL.Query().Get("bracket"))
		return
	}
	s.cached(w, r, func() (any, error) {
		return s.store.ListMatches(r.Context(), r.PathValue("licence"), bracket)
	})
}

// GET /api/v1/players/{licence}/stats?bracket=men|women
func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	bracket, ok := bracketParam(r)
	if !ok {
		response.BadRequest(w, "unknown bracket", r.URL.Query().Get("bracket"))
		return
	}
	s.cached(w, r, func() (any, error) {
		return s.store.ListStats(r.Context(), r.PathValue("licence"), bracket)
	})
}

// GET /api/v1/tournaments
func (s *Server) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func() (any, error) {
		return s.store.ListTournaments(r.Context())
	})
}

// GET /api/v1/tournaments/{ref}/series
func (s *Server) handleTournamentSeries(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func() (any, error) {
		return s.store.ListSeries(r.Context(), r.PathValue("ref"))
	})
}

// GET /api/v1/interclubs/divisions?category=...&gender=...
func (s *Server) handleListDivisions(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func() (any, error) {
		q := r.URL.Query()
		return s.store.ListDivisions(r.Context(), q.Get("category"), q.Get("gender"))
	})
}

// GET /api/v1/interclubs/divisions/{index}/standings?week=N
func (s *Server) handleDivisionStandings(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		response.BadRequest(w, "invalid division index", r.PathValue("index"))
		return
	}
	week, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil || week < 1 {
		response.BadRequest(w, "invalid week", r.URL.Query().Get("week"))
		return
	}
	s.cached(w, r, func() (any, error) {
		return s.store.ListStandings(r.Context(), index, week)
	})
}

// GET /api/v1/interclubs/teams?q=...&limit=N
func (s *Server) handleSearchTeams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		response.BadRequest(w, "missing search query", "")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.cached(w, r, func() (any, error) {
		return s.store.SearchTeams(r.Context(), q, limit)
	})
}

// GET /api/v1/interclubs/teams/{name}/history?division=N
func (s *Server) handleTeamHistory(w http.ResponseWriter, r *http.Request) {
	division := -1
	if raw := r.URL.Query().Get("division"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid division index", raw)
			return
		}
		division = n
	}
	s.cached(w, r, func() (any, error) {
		return s.store.TeamHistory(r.Context(), r.PathValue("name"), division)
	})
}
