// Package middleware provides the HTTP Basic authentication layers of the
// API server. Each layer resolves the caller to a principal and stores it on
// the request context; handlers never touch credentials themselves.
package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gaogaogoo/sport-log/internal/auth"
	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/gaogaogoo/sport-log/internal/repository"
)

// UserIDHeader carries the target user id when an action provider or the
// admin acts on a user's behalf.
const UserIDHeader = "id"

// Authenticator resolves HTTP Basic credentials to principals.
type Authenticator struct {
	Users         *repository.BunUserRepository
	Actions       *repository.BunActionRepository
	AdminUsername string
	AdminPassword string
}

// NewAuthenticator constructs an authenticator over the given repositories.
func NewAuthenticator(users *repository.BunUserRepository, actions *repository.BunActionRepository, adminPassword string) *Authenticator {
	return &Authenticator{
		Users:         users,
		Actions:       actions,
		AdminUsername: "admin",
		AdminPassword: adminPassword,
	}
}

func (a *Authenticator) isAdmin(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.AdminPassword)) == 1
	return userOK && passOK
}

// RequireUser admits users with their own credentials, action providers
// acting on behalf of a linked user, and the admin acting on behalf of any
// user. The acting-for-user modes select the target with the id header.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}

		if target := r.Header.Get(UserIDHeader); target != "" {
			raw, err := strconv.ParseInt(target, 10, 64)
			if err != nil || raw < 0 {
				unauthorized(w)
				return
			}
			userID := models.UserID(raw)

			if a.isAdmin(username, password) {
				principal := auth.Principal{Kind: auth.KindUserActionProvider, UserID: userID}
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
				return
			}

			provider, err := a.Actions.GetProviderByName(r.Context(), username)
			if err != nil || !auth.VerifyPassword(provider.Password, password) {
				unauthorized(w)
				return
			}
			// A provider without an enabled linking event for the target
			// user fails authentication, not authorization: the response
			// is the same 401 as for bad credentials.
			linked, err := a.Actions.HasEnabledEvent(r.Context(), userID, provider.ID)
			if err != nil || !linked {
				unauthorized(w)
				return
			}

			principal := auth.Principal{
				Kind:       auth.KindUserActionProvider,
				UserID:     userID,
				ProviderID: provider.ID,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
			return
		}

		user, err := a.Users.GetByUsername(r.Context(), username)
		if err != nil || !auth.VerifyPassword(user.Password, password) {
			unauthorized(w)
			return
		}

		principal := auth.Principal{Kind: auth.KindUser, UserID: user.ID}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

// RequireAP admits action providers with their own credentials.
func (a *Authenticator) RequireAP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}

		provider, err := a.Actions.GetProviderByName(r.Context(), username)
		if err != nil || !auth.VerifyPassword(provider.Password, password) {
			unauthorized(w)
			return
		}

		principal := auth.Principal{Kind: auth.KindActionProvider, ProviderID: provider.ID}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin admits only the instance administrator.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !a.isAdmin(username, password) {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.Principal{Kind: auth.KindAdmin})))
	})
}

// RequireDirectUser rejects providers acting through the id header. Account
// settings and platform credentials belong to the user alone; a linked
// provider may only touch the user's training records. The admin acting for
// a user passes.
func RequireDirectUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			unauthorized(w)
			return
		}
		if p.Kind == auth.KindUserActionProvider && p.ProviderID != 0 {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="sport-log"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"status": %d}`+"\n", http.StatusUnauthorized)
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(w, `{"status": %d}`+"\n", http.StatusForbidden)
}
