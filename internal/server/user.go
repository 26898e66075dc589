package server

import (
	"net/http"

	"github.com/gaogaogoo/sport-log/internal/auth"
	"github.com/gaogaogoo/sport-log/internal/db/models"
)

// handleUserRegister creates a user account. It backs both open
// self-registration and the admin creation endpoint; the gate is enforced at
// routing time.
func (s *Server) handleUserRegister(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := decodeJSON(r, &user); err != nil {
		s.respondError(w, err)
		return
	}

	hash, err := auth.HashPassword(user.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	user.Password = hash

	if err := s.users.Create(r.Context(), &user); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUserSelfRegister backs open sign-up. With self_registration off the
// route stays mounted and answers 401.
func (s *Server) handleUserSelfRegister(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.SelfRegistration {
		writeStatus(w, http.StatusUnauthorized)
		return
	}
	s.handleUserRegister(w, r)
}

// handleUserGet returns the caller's own account.
func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	user, err := s.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUserUpdate replaces the caller's own account. The password comes in
// plain and is re-hashed on every update.
func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var user models.User
	if err := decodeJSON(r, &user); err != nil {
		s.respondError(w, err)
		return
	}
	if err := auth.VerifyOwner(p, user.ID); err != nil {
		s.respondError(w, err)
		return
	}

	hash, err := auth.HashPassword(user.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	user.Password = hash

	if err := s.users.Update(r.Context(), &user); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUserDelete tombstones the caller's own account.
func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	if err := s.users.SoftDelete(r.Context(), p.UserID); err != nil {
		s.respondError(w, err)
		return
	}
	writeStatus(w, http.StatusOK)
}
