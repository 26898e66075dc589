package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/gaogaogoo/sport-log/internal/auth"
	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/gaogaogoo/sport-log/internal/repository"
)

// handleProviderRegister creates an action provider. Serves both the admin
// endpoint and, when ap_self_registration is enabled, the open one.
func (s *Server) handleProviderRegister(w http.ResponseWriter, r *http.Request) {
	var provider models.ActionProvider
	if err := decodeJSON(r, &provider); err != nil {
		s.respondError(w, err)
		return
	}

	hash, err := auth.HashPassword(provider.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	provider.Password = hash

	if err := s.actions.CreateProvider(r.Context(), &provider); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provider)
}

// handleProviderSelf returns the authenticated provider's own row.
func (s *Server) handleProviderSelf(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	provider, err := s.actions.GetProviderByID(r.Context(), p.ProviderID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provider)
}

// handleProviderList returns all live providers.
func (s *Server) handleProviderList(w http.ResponseWriter, r *http.Request) {
	providers, err := s.actions.ListProviders(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

// handleActionCreate lets a provider register its own actions.
func (s *Server) handleActionCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	actions, many, err := decodeOneOrMany[models.Action](r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	for i := range actions {
		if actions[i].ActionProviderID != p.ProviderID {
			s.respondError(w, auth.ErrForbidden)
			return
		}
	}

	if err := s.actions.CreateActions(r.Context(), actions); err != nil {
		s.respondError(w, err)
		return
	}
	if many {
		writeJSON(w, http.StatusOK, actions)
		return
	}
	writeJSON(w, http.StatusOK, actions[0])
}

// handleActionListForProvider returns the provider's own actions.
func (s *Server) handleActionListForProvider(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	actions, err := s.actions.ListActionsByProvider(r.Context(), p.ProviderID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// handleActionList returns all live actions.
func (s *Server) handleActionList(w http.ResponseWriter, r *http.Request) {
	actions, err := s.actions.ListActions(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// ruleListWithFilter lists the caller's rules, restricted to one provider
// when action_provider_id is given.
func (s *Server) ruleListWithFilter(h *recordHandler[models.ActionRule, *models.ActionRule]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalOr401(w, r)
		if !ok {
			return
		}
		if raw := r.URL.Query().Get("action_provider_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				s.respondError(w, fmt.Errorf("%w: malformed action_provider_id", errValidation))
				return
			}
			rules, err := s.actions.ListRulesByUserAndProvider(r.Context(), p.UserID, models.ActionProviderID(id))
			if err != nil {
				s.respondError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, rules)
			return
		}
		h.list(w, r)
	}
}

func (s *Server) eventListWithFilter(h *recordHandler[models.ActionEvent, *models.ActionEvent]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalOr401(w, r)
		if !ok {
			return
		}
		if raw := r.URL.Query().Get("action_provider_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				s.respondError(w, fmt.Errorf("%w: malformed action_provider_id", errValidation))
				return
			}
			events, err := s.actions.ListEventsByUserAndProvider(r.Context(), p.UserID, models.ActionProviderID(id))
			if err != nil {
				s.respondError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, events)
			return
		}
		h.list(w, r)
	}
}

// handleEventDisableByProvider soft-deletes events owned by the provider's
// actions. The ownership check covers the whole batch before any write.
func (s *Server) handleEventDisableByProvider(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var ids []models.ActionEventID
	if err := decodeJSON(r, &ids); err != nil {
		s.respondError(w, err)
		return
	}

	owned, err := s.actions.EventsBelongToProvider(r.Context(), ids, p.ProviderID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if !owned {
		s.respondError(w, auth.ErrForbidden)
		return
	}

	raw := lo.Map(ids, func(id models.ActionEventID, _ int) int64 { return int64(id) })
	if err := s.events.SoftDeleteMultiple(r.Context(), raw); err != nil {
		s.respondError(w, err)
		return
	}
	writeStatus(w, http.StatusOK)
}

// handleCreatableRules serves the scheduler's rule expansion input.
func (s *Server) handleCreatableRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.actions.CreatableActionRules(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// handleDeletableEvents serves the scheduler's expiry sweep input.
func (s *Server) handleDeletableEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.actions.DeletableActionEvents(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleAdminEventsCreate bulk-inserts scheduler-generated events, skipping
// duplicates.
func (s *Server) handleAdminEventsCreate(w http.ResponseWriter, r *http.Request) {
	events, _, err := decodeOneOrMany[models.ActionEvent](r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	inserted, err := s.actions.CreateEventsIgnoreConflict(r.Context(), events)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"inserted": inserted})
}

// handleAdminEventsDelete soft-deletes events by id.
func (s *Server) handleAdminEventsDelete(w http.ResponseWriter, r *http.Request) {
	var ids []models.ActionEventID
	if err := decodeJSON(r, &ids); err != nil {
		s.respondError(w, err)
		return
	}

	raw := lo.Map(ids, func(id models.ActionEventID, _ int) int64 { return int64(id) })
	if err := s.events.SoftDeleteMultiple(r.Context(), raw); err != nil {
		s.respondError(w, err)
		return
	}
	writeStatus(w, http.StatusOK)
}

// handleGarbageCollection hard-deletes tombstones older than the cutoff.
func (s *Server) handleGarbageCollection(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("last_change")
	cutoff, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: malformed last_change", errValidation))
		return
	}

	deleted, err := repository.HardDeleteOlderThan(r.Context(), s.db, cutoff)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// handleExecutableEvents serves a provider its executable events, optionally
// restricted to a datetime window.
func (s *Server) handleExecutableEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	events, err := s.actions.ExecutableEventsByProvider(r.Context(), p.ProviderID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleExecutableEventsTimespan(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	start, err := time.Parse(time.RFC3339, chi.URLParam(r, "start"))
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: malformed start", errValidation))
		return
	}
	end, err := time.Parse(time.RFC3339, chi.URLParam(r, "end"))
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: malformed end", errValidation))
		return
	}

	events, err := s.actions.ExecutableEventsByProviderTimespan(r.Context(), p.ProviderID, start, end)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
