package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dartopia/darts-server/internal/engine"
	"github.com/dartopia/darts-server/internal/registry"
	"github.com/dartopia/darts-server/internal/session"
)

type createGameRequest struct {
	Variant      string           `json:"variant"`
	Players      []session.Player `json:"players"`
	DartsPerTurn int              `json:"dartsPerTurn,omitempty"`
}

type createGameResponse struct {
	GameID string           `json:"gameId"`
	State  session.Snapshot `json:"state"`
}

type throwRequest struct {
	PlayerID string     `json:"playerId"`
	Hit      engine.Hit `json:"hit"`
}

type throwResponse struct {
	Outcome engine.Outcome   `json:"outcome"`
	State   session.Snapshot `json:"state"`
}

func CreateGame(r *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body createGameRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		for i := range body.Players {
			if body.Players[i].ID == "" {
				body.Players[i].ID = uuid.NewString()
			}
		}

		reply := make(chan registry.CreateReply, 1)
		r.Inbox() <- registry.Create{
			Variant:      body.Variant,
			Players:      body.Players,
			DartsPerTurn: body.DartsPerTurn,
			Reply:        reply,
		}
		res := <-reply
		if res.Err != nil {
			writeError(w, statusFor(res.Err), res.Err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createGameResponse{GameID: res.ID, State: res.Snapshot})
	}
}

func ReportThrow(r *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, ok := lookup(w, req, r)
		if !ok {
			return
		}

		var body throwRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}

		reply := make(chan session.ThrowReply, 1)
		sess.Inbox() <- session.Throw{PlayerID: body.PlayerID, Hit: body.Hit, Reply: reply}
		res := <-reply
		if res.Err != nil {
			writeError(w, statusFor(res.Err), res.Err.Error())
			return
		}
		writeJSON(w, throwResponse{Outcome: res.Outcome, State: res.Snapshot})
	}
}

func StartGame(r *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, ok := lookup(w, req, r)
		if !ok {
			return
		}

		reply := make(chan error, 1)
		sess.Inbox() <- session.Start{Reply: reply}
		if err := <-reply; err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		state := make(chan session.Snapshot, 1)
		sess.Inbox() <- session.GetState{Reply: state}
		writeJSON(w, <-state)
	}
}

func GetGame(r *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, ok := lookup(w, req, r)
		if !ok {
			return
		}
		reply := make(chan session.Snapshot, 1)
		sess.Inbox() <- session.GetState{Reply: reply}
		writeJSON(w, <-reply)
	}
}

// RemoveGame is the administrative eviction hook.
func RemoveGame(r *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if _, ok := lookup(w, req, r); !ok {
			return
		}
		r.Inbox() <- registry.Remove{ID: chi.URLParam(req, "id")}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func lookup(w http.ResponseWriter, req *http.Request, r *registry.Registry) (*session.Session, bool) {
	reply := make(chan *session.Session, 1)
	r.Inbox() <- registry.Get{ID: chi.URLParam(req, "id"), Reply: reply}
	sess := <-reply
	if sess == nil {
		writeError(w, http.StatusNotFound, registry.ErrNotFound.Error())
		return nil, false
	}
	return sess, true
}

// statusFor maps the error taxonomy onto HTTP: unknown things are 404,
// malformed input 400, out-of-order state transitions 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, session.ErrUnknownPlayer):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownVariant),
		errors.Is(err, engine.ErrInvalidHit),
		errors.Is(err, registry.ErrInvalidPlayers):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotYourTurn),
		errors.Is(err, session.ErrNotStarted),
		errors.Is(err, session.ErrAlreadyStarted),
		errors.Is(err, session.ErrFinished):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
