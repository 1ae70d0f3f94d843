package server

import (
	"net/http"

	"github.com/racketdata/ttsync/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /health", s.handleHealth)

	// Task control
	mux.HandleFunc("POST /api/v1/tasks/{kind}", s.handleStartTask)
	mux.HandleFunc("POST /api/v1/tasks/{kind}/cancel", s.handleCancelTask)
	mux.HandleFunc("GET /api/v1/tasks/{kind}/running", s.handleRunningTask)
	mux.HandleFunc("GET /api/v1/tasks/{kind}/logs", s.handleTaskLogs)
	mux.HandleFunc("GET /api/v1/tasks/{id}/status", s.handleTaskStatus)
	mux.HandleFunc("GET /api/v1/tasks", s.handleTaskHistory)

	// Catalog reads
	mux.HandleFunc("GET /api/v1/clubs", s.handleListClubs)
	mux.HandleFunc("GET /api/v1/clubs/{code}", s.handleGetClub)
	mux.HandleFunc("GET /api/v1/clubs/{code}/members", s.handleClubMembers)
	mux.HandleFunc("GET /api/v1/players/{licence}", s.handleGetPlayer)
	mux.HandleFunc("GET /api/v1/players/{licence}/matches", s.handlePlayerMatches)
	mux.HandleFunc("GET /api/v1/players/{licence}/stats", s.handlePlayerStats)
	mux.HandleFunc("GET /api/v1/tournaments", s.handleListTournaments)
	mux.HandleFunc("GET /api/v1/tournaments/{ref}/series", s.handleTournamentSeries)
	mux.HandleFunc("GET /api/v1/interclubs/divisions", s.handleListDivisions)
	mux.HandleFunc("GET /api/v1/interclubs/divisions/{index}/standings", s.handleDivisionStandings)
	mux.HandleFunc("GET /api/v1/interclubs/teams", s.handleSearchTeams)
	mux.HandleFunc("GET /api/v1/interclubs/teams/{name}/history", s.handleTeamHistory)

	return s.applyMiddleware(mux)
}

// applyMiddleware wraps handler with the middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	if s.config.CORSEnabled {
		cors := middleware.DefaultCORSConfig()
		cors.AllowAll = true
		handler = middleware.CORS(cors)(handler)
	}

	handler = middleware.Logger(&s.logger)(handler)
	handler = middleware.Recovery(&s.logger)(handler)
	return handler
}
