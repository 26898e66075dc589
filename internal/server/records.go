package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gaogaogoo/sport-log/internal/auth"
	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/gaogaogoo/sport-log/internal/repository"
)

// syncPage is the response for epoch-cursor reads. Clients advance their
// cursor to Epoch only after storing the page.
type syncPage[M any] struct {
	Epoch time.Time `json:"epoch"`
	Rows  []M       `json:"rows"`
}

// epochResponse is the response of the per-table epoch endpoints.
type epochResponse struct {
	Epoch time.Time `json:"epoch"`
}

// recordHandler serves the uniform CRUD and sync surface of one user-owned
// record type.
type recordHandler[M any, T repository.PtrRecord[M]] struct {
	srv       *Server
	repo      *repository.BunRecordRepository[M, T]
	parseTime func(string) (any, error)
}

// mountRecord registers the record routes under path. A non-nil parseTime
// additionally enables the timespan listing.
func mountRecord[M any, T repository.PtrRecord[M]](r chi.Router, path string, srv *Server, repo *repository.BunRecordRepository[M, T], parseTime func(string) (any, error)) {
	h := &recordHandler[M, T]{srv: srv, repo: repo, parseTime: parseTime}

	r.Route(path, func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/epoch", h.epoch)
		if parseTime != nil {
			r.Get("/timespan/{start}/{end}", h.listTimespan)
		}
		r.Get("/{id}", h.get)
		r.Post("/", h.create)
		r.Put("/", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func principalOr401(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized)
	}
	return p, ok
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed id", errValidation)
	}
	return id, nil
}

func (h *recordHandler[M, T]) list(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("epoch"); raw != "" {
		cursor, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.srv.respondError(w, fmt.Errorf("%w: malformed epoch", errValidation))
			return
		}
		rows, err := h.repo.SyncByUser(r.Context(), p.UserID, cursor)
		if err != nil {
			h.srv.respondError(w, err)
			return
		}
		epoch, err := h.repo.MaxLastChange(r.Context(), p.UserID)
		if err != nil {
			h.srv.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, syncPage[M]{Epoch: epoch, Rows: rows})
		return
	}

	rows, err := h.repo.ListByUser(r.Context(), p.UserID)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *recordHandler[M, T]) epoch(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	epoch, err := h.repo.MaxLastChange(r.Context(), p.UserID)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, epochResponse{Epoch: epoch})
}

func (h *recordHandler[M, T]) listTimespan(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	start, err := h.parseTime(chi.URLParam(r, "start"))
	if err != nil {
		h.srv.respondError(w, err)
		return
	}
	end, err := h.parseTime(chi.URLParam(r, "end"))
	if err != nil {
		h.srv.respondError(w, err)
		return
	}

	rows, err := h.repo.ListByUserBetween(r.Context(), p.UserID, start, end)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *recordHandler[M, T]) get(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}

	rec, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}
	if err := auth.VerifyRecordOwner(p, rec); err != nil {
		h.srv.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *recordHandler[M, T]) create(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	recs, many, err := decodeOneOrMany[M](r)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}
	if err := auth.VerifyRecordsOwner[M, T](p, recs); err != nil {
		h.srv.respondError(w, err)
		return
	}

	if many {
		if err := h.repo.CreateMultiple(r.Context(), recs); err != nil {
			h.srv.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
		return
	}

	rec := T(&recs[0])
	if err := h.repo.Create(r.Context(), rec); err != nil {
		h.srv.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *recordHandler[M, T]) update(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}

	recs, many, err := decodeOneOrMany[M](r)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}

	// Ownership is checked against both the stored row and the payload so
	// a row can neither be stolen nor given away.
	for i := range recs {
		incoming := T(&recs[i])
		stored, err := h.repo.GetByID(r.Context(), incoming.RecordID())
		if err != nil {
			h.srv.respondError(w, err)
			return
		}
		if err := auth.VerifyRecordOwner(p, stored); err != nil {
			h.srv.respondError(w, err)
			return
		}
		if err := auth.VerifyRecordOwner(p, incoming); err != nil {
			h.srv.respondError(w, err)
			return
		}
	}

	for i := range recs {
		if err := h.repo.Update(r.Context(), T(&recs[i])); err != nil {
			h.srv.respondError(w, err)
			return
		}
	}

	if many {
		writeJSON(w, http.StatusOK, recs)
		return
	}
	writeJSON(w, http.StatusOK, T(&recs[0]))
}

func (h *recordHandler[M, T]) delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}

	rec, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.srv.respondError(w, err)
		return
	}
	if err := auth.VerifyRecordOwner(p, rec); err != nil {
		h.srv.respondError(w, err)
		return
	}

	if err := h.repo.SoftDelete(r.Context(), id); err != nil {
		h.srv.respondError(w, err)
		return
	}
	writeStatus(w, http.StatusOK)
}

func parseRFC3339(s string) (any, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed datetime", errValidation)
	}
	return t, nil
}

func parseDate(s string) (any, error) {
	d := models.Date(s)
	if !d.Valid() {
		return nil, fmt.Errorf("%w: malformed date", errValidation)
	}
	return string(d), nil
}
