// Package server implements the REST API over the sport-log store. Routing
// is chi, persistence is Bun; each handler verifies ownership before any
// side effect.
package server

import (
	"log"
	"net/http"

	"github.com/uptrace/bun"

	"github.com/gaogaogoo/sport-log/internal/config"
	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/gaogaogoo/sport-log/internal/middleware"
	"github.com/gaogaogoo/sport-log/internal/repository"
)

// Server wires configuration, repositories and the HTTP router.
type Server struct {
	cfg  *config.ServerConfig
	db   *bun.DB
	log  *log.Logger
	auth *middleware.Authenticator

	users     *repository.BunUserRepository
	platforms *repository.BunPlatformRepository
	creds     *repository.BunPlatformCredentialRepository
	actions   *repository.BunActionRepository

	rules  *repository.BunRecordRepository[models.ActionRule, *models.ActionRule]
	events *repository.BunRecordRepository[models.ActionEvent, *models.ActionEvent]

	movements        *repository.BunRecordRepository[models.Movement, *models.Movement]
	routes           *repository.BunRecordRepository[models.Route, *models.Route]
	cardioSessions   *repository.BunRecordRepository[models.CardioSession, *models.CardioSession]
	strengthSessions *repository.BunRecordRepository[models.StrengthSession, *models.StrengthSession]
	strengthSets     *repository.BunRecordRepository[models.StrengthSet, *models.StrengthSet]
	metcons          *repository.BunRecordRepository[models.Metcon, *models.Metcon]
	metconMovements  *repository.BunRecordRepository[models.MetconMovement, *models.MetconMovement]
	metconSessions   *repository.BunRecordRepository[models.MetconSession, *models.MetconSession]
	diaries          *repository.BunRecordRepository[models.Diary, *models.Diary]
	wods             *repository.BunRecordRepository[models.Wod, *models.Wod]
}

// New constructs a fully wired server.
func New(cfg *config.ServerConfig, db *bun.DB, logger *log.Logger) *Server {
	users := repository.NewBunUserRepository(db)
	actions := repository.NewBunActionRepository(db)

	return &Server{
		cfg:  cfg,
		db:   db,
		log:  logger,
		auth: middleware.NewAuthenticator(users, actions, cfg.AdminPassword),

		users:     users,
		platforms: repository.NewBunPlatformRepository(db),
		creds:     repository.NewBunPlatformCredentialRepository(db),
		actions:   actions,

		rules:  repository.NewBunRecordRepository[models.ActionRule](db),
		events: repository.NewBunRecordRepository[models.ActionEvent](db),

		movements:        repository.NewBunRecordRepository[models.Movement](db).WithSharedRows(),
		routes:           repository.NewBunRecordRepository[models.Route](db),
		cardioSessions:   repository.NewBunRecordRepository[models.CardioSession](db).WithTimeColumn("datetime"),
		strengthSessions: repository.NewBunRecordRepository[models.StrengthSession](db),
		strengthSets:     repository.NewBunRecordRepository[models.StrengthSet](db),
		metcons:          repository.NewBunRecordRepository[models.Metcon](db).WithSharedRows(),
		metconMovements:  repository.NewBunRecordRepository[models.MetconMovement](db).WithSharedRows(),
		metconSessions:   repository.NewBunRecordRepository[models.MetconSession](db),
		diaries:          repository.NewBunRecordRepository[models.Diary](db),
		wods:             repository.NewBunRecordRepository[models.Wod](db).WithTimeColumn("date"),
	}
}

// ListenAndServe runs the HTTP server until it fails.
func (s *Server) ListenAndServe() error {
	s.log.Printf("listening on %s", s.cfg.Address)
	return http.ListenAndServe(s.cfg.Address, s.Router())
}
