package main

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// registerGameGateway mounts the WebSocket upgrade route plus a
// JSON debug-read endpoint (SPEC_FULL.md section 8), replacing the
// teacher's registerCelebrityGame/html-asset registration now that UI
// rendering is out of scope.
func registerGameGateway(cfg *Config, deps *serverDeps, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/games/:id/ws", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		deps.gateway.ServeWS(w, r, p.ByName("id"))
	})

	mux.GET(cfg.prefix+"/games/:id/state", serveGameState(cfg, deps))
}

// serveGameState is an operability read, not a spec.md external
// interface: a JSON snapshot of a game's live state for debugging and
// monitoring, grounded on the teacher's small debug-JSON-endpoint shape
// (serveHealthCheck, serveVersion) rather than on any websocket frame.
func serveGameState(cfg *Config, deps *serverDeps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		gameID := p.ByName("id")

		snapshot, err := deps.engine.Snapshot(r.Context(), gameID)
		if err != nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			deps.log.Errorf("gateway: encode state for %s: %v", gameID, err)
		}
	}
}
