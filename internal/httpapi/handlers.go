package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/game/werewolf"
)

type sessionList struct {
	Sessions []int64 `json:"sessions"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Healthz answers 200, or 503 when health fails.
func Healthz(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				log.Warn().Err(err).Msg("httpapi: health check failed")
				writeError(w, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ListSessions returns the chats with a running game.
func ListSessions(s Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := s.ActiveSessions()
		if ids == nil {
			ids = []int64{}
		}
		writeJSON(w, http.StatusOK, sessionList{Sessions: ids})
	}
}

// GetSession returns the public view of a chat's game.
func GetSession(s Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := loadSnapshot(w, r, s)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, snap.Public())
	}
}

// GetSessionFull returns the unredacted state, roles and pending actions
// included.
func GetSessionFull(s Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := loadSnapshot(w, r, s)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// ForceTimeout resolves the current phase as if its timer had fired. In a
// speaking phase only the current speaker's turn ends; the returned
// snapshot shows who speaks next.
func ForceTimeout(s Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatParam(w, r)
		if !ok {
			return
		}
		if err := s.ForceTimeout(r.Context(), chatID); err != nil {
			writeEngineError(w, err)
			return
		}
		log.Info().Int64("chat_id", chatID).Msg("httpapi: forced phase timeout")
		snap, err := s.GetState(chatID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap.Public())
	}
}

// Abort ends the chat's game.
func Abort(s Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatParam(w, r)
		if !ok {
			return
		}
		reason := r.URL.Query().Get("reason")
		if reason == "" {
			reason = "aborted by operator"
		}
		if err := s.Abort(r.Context(), chatID, reason); err != nil {
			writeEngineError(w, err)
			return
		}
		log.Info().Int64("chat_id", chatID).Str("reason", reason).Msg("httpapi: game aborted")
		w.WriteHeader(http.StatusNoContent)
	}
}

func loadSnapshot(w http.ResponseWriter, r *http.Request, s Sessions) (werewolf.Snapshot, bool) {
	chatID, ok := chatParam(w, r)
	if !ok {
		return werewolf.Snapshot{}, false
	}
	snap, err := s.GetState(chatID)
	if err != nil {
		writeEngineError(w, err)
		return werewolf.Snapshot{}, false
	}
	return snap, true
}

func chatParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return 0, false
	}
	return chatID, true
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, werewolf.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, werewolf.ErrPhaseResolved), errors.Is(err, werewolf.ErrUnsupportedAction):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("httpapi: request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
