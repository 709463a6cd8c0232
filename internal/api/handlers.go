package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ticketdrop/session-api/internal/kv"
	"github.com/ticketdrop/session-api/internal/session"
)

// createSessionRequest is the create endpoint's body. Consent is decoded
// untyped so that anything other than the JSON boolean true — false,
// missing, or a string like "yes" — fails validation.
type createSessionRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Consent any    `json:"consent"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	consent, _ := req.Consent.(bool)
	in := session.CreateInput{Name: req.Name, Email: req.Email, Consent: consent}

	res, err := s.manager.Create(r.Context(), in, requestOrigin(r))
	if err != nil {
		s.writeCreateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":  true,
		"id":  res.ID,
		"url": res.URL,
	})
}

func (s *Server) writeCreateError(w http.ResponseWriter, err error) {
	var ve *session.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}
	if errors.Is(err, session.ErrAllocationExhausted) {
		log.Printf("[api] allocation exhausted: %v", err)
		writeError(w, http.StatusInternalServerError, "could not allocate a session id")
		return
	}
	var ue *kv.UnavailableError
	if errors.As(err, &ue) {
		log.Printf("[api] create failed: %v", err)
		writeError(w, http.StatusBadGateway, "session store unavailable")
		return
	}
	log.Printf("[api] create failed: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleReadSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := s.manager.Read(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "Not found")
		case errors.Is(err, session.ErrCorruptRecord):
			log.Printf("[api] corrupt record id=%s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "stored record is corrupt")
		default:
			log.Printf("[api] read failed id=%s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "session store unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"session": view,
	})
}

func (s *Server) handleAlbumMeta(w http.ResponseWriter, r *http.Request) {
	artist := r.URL.Query().Get("artist")
	album := r.URL.Query().Get("album")
	if artist == "" || album == "" {
		writeError(w, http.StatusBadRequest, "artist and album are required")
		return
	}

	meta, err := s.resolver.Resolve(r.Context(), artist, album)
	if err != nil {
		// Catalog outages degrade to an empty result rather than failing
		// the page that embeds the cover.
		log.Printf("[api] album-meta failed artist=%q album=%q: %v", artist, album, err)
		writeJSON(w, http.StatusOK, map[string]any{
			"error":    err.Error(),
			"coverUrl": nil,
		})
		return
	}

	var cover any
	if meta.CoverURL != "" {
		cover = meta.CoverURL
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"artist":   meta.Artist,
		"album":    meta.Album,
		"coverUrl": cover,
		"links":    meta.Links,
		"source":   meta.Source,
	})
}

// statsWindow is the lookback for the creation-volume stats endpoint.
const statsWindow = 24 * time.Hour

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.counter == nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	count, err := s.counter.CountRecent(r.Context(), statsWindow)
	if err != nil {
		log.Printf("[api] stats query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "audit log unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"window":          statsWindow.String(),
		"recentCreations": count,
	})
}

// requestOrigin derives the fallback public origin from the inbound
// request, used when no site base URL is configured.
func requestOrigin(r *http.Request) string {
	return "https://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
