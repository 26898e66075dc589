package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/gaogaogoo/sport-log/internal/repository"
)

func fillRecords[M any, T repository.PtrRecord[M]](ctx context.Context, dest *[]M, repo *repository.BunRecordRepository[M, T], userID models.UserID, cursor time.Time, syncMode bool) error {
	var err error
	if syncMode {
		*dest, err = repo.SyncByUser(ctx, userID, cursor)
	} else {
		*dest, err = repo.ListByUser(ctx, userID)
	}
	return err
}

// accountData is the bootstrap bundle: every row of the account in one
// response so a fresh client can hydrate without walking each endpoint.
type accountData struct {
	User                *models.User                `json:"user"`
	Platforms           []models.Platform           `json:"platforms"`
	PlatformCredentials []models.PlatformCredential `json:"platform_credentials"`
	ActionProviders     []models.ActionProvider     `json:"action_providers"`
	Actions             []models.Action             `json:"actions"`
	ActionRules         []models.ActionRule         `json:"action_rules"`
	ActionEvents        []models.ActionEvent        `json:"action_events"`
	Movements           []models.Movement           `json:"movements"`
	Routes              []models.Route              `json:"routes"`
	CardioSessions      []models.CardioSession      `json:"cardio_sessions"`
	StrengthSessions    []models.StrengthSession    `json:"strength_sessions"`
	StrengthSets        []models.StrengthSet        `json:"strength_sets"`
	Metcons             []models.Metcon             `json:"metcons"`
	MetconMovements     []models.MetconMovement     `json:"metcon_movements"`
	MetconSessions      []models.MetconSession      `json:"metcon_sessions"`
	Diaries             []models.Diary              `json:"diaries"`
	Wods                []models.Wod                `json:"wods"`
}

// handleAccountData assembles the bundle. With an epoch cursor every table
// is read in sync mode, tombstones included.
func (s *Server) handleAccountData(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOr401(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var cursor time.Time
	syncMode := false
	if raw := r.URL.Query().Get("epoch"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, fmt.Errorf("%w: malformed epoch", errValidation))
			return
		}
		cursor, syncMode = t, true
	}

	data := accountData{}
	var err error

	if data.User, err = s.users.GetByID(ctx, p.UserID); err != nil {
		s.respondError(w, err)
		return
	}

	if syncMode {
		data.Platforms, err = s.platforms.Sync(ctx, cursor)
	} else {
		data.Platforms, err = s.platforms.List(ctx)
	}
	if err != nil {
		s.respondError(w, err)
		return
	}

	if data.ActionProviders, err = s.actions.ListProviders(ctx); err != nil {
		s.respondError(w, err)
		return
	}
	if data.Actions, err = s.actions.ListActions(ctx); err != nil {
		s.respondError(w, err)
		return
	}

	if err := fillRecords(ctx, &data.PlatformCredentials, s.creds.BunRecordRepository, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.ActionRules, s.rules, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.ActionEvents, s.events, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.Movements, s.movements, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.Routes, s.routes, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.CardioSessions, s.cardioSessions, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.StrengthSessions, s.strengthSessions, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.StrengthSets, s.strengthSets, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.Metcons, s.metcons, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.MetconMovements, s.metconMovements, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.MetconSessions, s.metconSessions, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.Diaries, s.diaries, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}
	if err := fillRecords(ctx, &data.Wods, s.wods, p.UserID, cursor, syncMode); err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}
