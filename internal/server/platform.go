package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gaogaogoo/sport-log/internal/db/models"
)

// handlePlatformList returns all live platforms, or a sync page when an
// epoch cursor is given. Platforms are shared rows, so no owner filter.
func (s *Server) handlePlatformList(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("epoch"); raw != "" {
		cursor, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, fmt.Errorf("%w: malformed epoch", errValidation))
			return
		}
		rows, err := s.platforms.Sync(r.Context(), cursor)
		if err != nil {
			s.respondError(w, err)
			return
		}
		epoch, err := s.platforms.MaxLastChange(r.Context())
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, syncPage[models.Platform]{Epoch: epoch, Rows: rows})
		return
	}

	platforms, err := s.platforms.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, platforms)
}

// handlePlatformCreate registers a platform. Admins always may; the open
// variant is gated on ap_self_registration at routing time.
func (s *Server) handlePlatformCreate(w http.ResponseWriter, r *http.Request) {
	var platform models.Platform
	if err := decodeJSON(r, &platform); err != nil {
		s.respondError(w, err)
		return
	}

	if err := s.platforms.Create(r.Context(), &platform); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, platform)
}

// handleCredentialList returns the caller's platform credentials, optionally
// restricted to one platform or paged by epoch cursor.
func (s *Server) handleCredentialList(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("platform_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondError(w, fmt.Errorf("%w: malformed platform_id", errValidation))
			return
		}
		creds, err := s.creds.ListByUserAndPlatform(r.Context(), p.UserID, models.PlatformID(id))
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, creds)
		return
	}

	if raw := r.URL.Query().Get("epoch"); raw != "" {
		cursor, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, fmt.Errorf("%w: malformed epoch", errValidation))
			return
		}
		rows, err := s.creds.SyncByUser(r.Context(), p.UserID, cursor)
		if err != nil {
			s.respondError(w, err)
			return
		}
		epoch, err := s.creds.MaxLastChange(r.Context(), p.UserID)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, syncPage[models.PlatformCredential]{Epoch: epoch, Rows: rows})
		return
	}

	creds, err := s.creds.ListByUser(r.Context(), p.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}
