package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/gaogaogoo/sport-log/internal/middleware"
)

// Router builds the chi router with the full REST surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	// Browser preflights may hit paths that only exist for other methods.
	preflightOr := func(status int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			writeStatus(w, status)
		}
	}
	r.NotFound(preflightOr(http.StatusNotFound))
	r.MethodNotAllowed(preflightOr(http.StatusMethodNotAllowed))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/user", s.handleUserSelfRegister)

		r.Route("/adm", func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.Post("/user", s.handleUserRegister)
			r.Post("/platform", s.handlePlatformCreate)
			r.Post("/action_provider", s.handleProviderRegister)
			r.Get("/creatable_action_rule", s.handleCreatableRules)
			r.Get("/deletable_action_event", s.handleDeletableEvents)
			r.Post("/action_event", s.handleAdminEventsCreate)
			r.Delete("/action_event", s.handleAdminEventsDelete)
			r.Delete("/garbage_collection", s.handleGarbageCollection)
		})

		r.Route("/ap", func(r chi.Router) {
			if s.cfg.APSelfRegistration {
				r.Post("/action_provider", s.handleProviderRegister)
				r.Post("/platform", s.handlePlatformCreate)
			}

			r.Group(func(r chi.Router) {
				r.Use(s.auth.RequireAP)
				r.Get("/action_provider", s.handleProviderSelf)
				r.Get("/platform", s.handlePlatformList)
				r.Get("/action", s.handleActionListForProvider)
				r.Post("/action", s.handleActionCreate)
				r.Get("/executable_action_event", s.handleExecutableEvents)
				r.Get("/executable_action_event/timespan/{start}/{end}", s.handleExecutableEventsTimespan)
				r.Delete("/action_event", s.handleEventDisableByProvider)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireUser)

			// The account itself and the user's platform credentials are
			// off limits to linked providers; they only get the record
			// surface below.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireDirectUser)

				r.Get("/user", s.handleUserGet)
				r.Put("/user", s.handleUserUpdate)
				r.Delete("/user", s.handleUserDelete)
				r.Get("/account_data", s.handleAccountData)

				credH := &recordHandler[models.PlatformCredential, *models.PlatformCredential]{srv: s, repo: s.creds.BunRecordRepository}
				r.Route("/platform_credential", func(r chi.Router) {
					r.Get("/", s.handleCredentialList)
					r.Get("/epoch", credH.epoch)
					r.Get("/{id}", credH.get)
					r.Post("/", credH.create)
					r.Put("/", credH.update)
					r.Delete("/{id}", credH.delete)
				})
			})

			r.Get("/platform", s.handlePlatformList)
			r.Get("/action_provider", s.handleProviderList)
			r.Get("/action", s.handleActionList)

			ruleH := &recordHandler[models.ActionRule, *models.ActionRule]{srv: s, repo: s.rules}
			r.Route("/action_rule", func(r chi.Router) {
				r.Get("/", s.ruleListWithFilter(ruleH))
				r.Get("/epoch", ruleH.epoch)
				r.Get("/{id}", ruleH.get)
				r.Post("/", ruleH.create)
				r.Put("/", ruleH.update)
				r.Delete("/{id}", ruleH.delete)
			})

			eventH := &recordHandler[models.ActionEvent, *models.ActionEvent]{srv: s, repo: s.events}
			r.Route("/action_event", func(r chi.Router) {
				r.Get("/", s.eventListWithFilter(eventH))
				r.Get("/epoch", eventH.epoch)
				r.Get("/{id}", eventH.get)
				r.Post("/", eventH.create)
				r.Put("/", eventH.update)
				r.Delete("/{id}", eventH.delete)
			})

			mountRecord(r, "/movement", s, s.movements, nil)
			mountRecord(r, "/route", s, s.routes, nil)
			mountRecord(r, "/cardio_session", s, s.cardioSessions, parseRFC3339)
			mountRecord(r, "/strength_session", s, s.strengthSessions, nil)
			mountRecord(r, "/strength_set", s, s.strengthSets, nil)
			mountRecord(r, "/metcon", s, s.metcons, nil)
			mountRecord(r, "/metcon_movement", s, s.metconMovements, nil)
			mountRecord(r, "/metcon_session", s, s.metconSessions, nil)
			mountRecord(r, "/diary", s, s.diaries, nil)
			mountRecord(r, "/wod", s, s.wods, parseDate)
		})
	})

	return r
}
