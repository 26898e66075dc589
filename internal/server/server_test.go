package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/gaogaogoo/sport-log/internal/auth"
	"github.com/gaogaogoo/sport-log/internal/config"
	"github.com/gaogaogoo/sport-log/internal/db/bunx"
	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/gaogaogoo/sport-log/internal/migrations"
	"github.com/gaogaogoo/sport-log/internal/repository"
)

const (
	testAdminPassword    = "admin-pw"
	testProviderPassword = "provider-pw"
)

func setupServer(t *testing.T, opts ...func(*config.ServerConfig)) (*httptest.Server, *bun.DB) {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	ctx := context.Background()
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	cfg := &config.ServerConfig{
		AdminPassword:      testAdminPassword,
		DatabaseURL:        ":memory:",
		Address:            "127.0.0.1:0",
		SelfRegistration:   true,
		APSelfRegistration: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	srv := New(cfg, db, log.New(io.Discard, "", 0))

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, db
}

type request struct {
	method   string
	path     string
	username string
	password string
	asUser   models.UserID
	body     any
}

func doRequest(t *testing.T, ts *httptest.Server, r request) *http.Response {
	t.Helper()

	var payload io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		require.NoError(t, err)
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(r.method, ts.URL+r.path, payload)
	require.NoError(t, err)
	if r.username != "" {
		req.SetBasicAuth(r.username, r.password)
	}
	if r.asUser != 0 {
		req.Header.Set("id", strconv.FormatInt(int64(r.asUser), 10))
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func registerUser(t *testing.T, ts *httptest.Server, username, password string) models.UserID {
	t.Helper()

	user := models.User{
		ID:       models.UserID(models.RandomID()),
		Username: username,
		Password: password,
		Email:    username + "@example.com",
	}
	resp := doRequest(t, ts, request{method: http.MethodPost, path: "/v1/user", body: user})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	return user.ID
}

// seedProvider creates a platform, a provider and one action directly in the
// store and returns them.
func seedProvider(t *testing.T, db *bun.DB, name string) (*models.ActionProvider, *models.Action) {
	t.Helper()
	ctx := context.Background()

	platform := &models.Platform{
		ID:         models.PlatformID(models.RandomID()),
		Name:       name + "-platform",
		Credential: true,
	}
	require.NoError(t, repository.NewBunPlatformRepository(db).Create(ctx, platform))

	hash, err := auth.HashPassword(testProviderPassword)
	require.NoError(t, err)
	provider := &models.ActionProvider{
		ID:         models.ActionProviderID(models.RandomID()),
		Name:       name,
		Password:   hash,
		PlatformID: platform.ID,
	}
	actions := repository.NewBunActionRepository(db)
	require.NoError(t, actions.CreateProvider(ctx, provider))

	action := &models.Action{
		ID:               models.ActionID(models.RandomID()),
		Name:             "fetch",
		ActionProviderID: provider.ID,
		CreateBefore:     (7 * 24 * time.Hour).Milliseconds(),
		DeleteAfter:      0,
	}
	require.NoError(t, actions.CreateAction(ctx, action))
	return provider, action
}

func linkUserToProvider(t *testing.T, db *bun.DB, userID models.UserID, actionID models.ActionID) models.ActionEventID {
	t.Helper()

	event := models.ActionEvent{
		ID:       models.ActionEventID(models.RandomID()),
		UserID:   userID,
		ActionID: actionID,
		Datetime: time.Now().UTC().Add(time.Hour),
		Enabled:  true,
	}
	_, err := repository.NewBunActionRepository(db).CreateEventsIgnoreConflict(context.Background(), []models.ActionEvent{event})
	require.NoError(t, err)
	return event.ID
}

func TestUserEndpoints(t *testing.T) {
	ts, _ := setupServer(t)

	registerUser(t, ts, "ada", "pw-ada")

	t.Run("duplicate username conflicts", func(t *testing.T) {
		dup := models.User{
			ID:       models.UserID(models.RandomID()),
			Username: "ada",
			Password: "other",
			Email:    "other@example.com",
		}
		resp := doRequest(t, ts, request{method: http.MethodPost, path: "/v1/user", body: dup})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("get self", func(t *testing.T) {
		resp := doRequest(t, ts, request{method: http.MethodGet, path: "/v1/user", username: "ada", password: "pw-ada"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var user models.User
		decodeInto(t, resp, &user)
		assert.Equal(t, "ada", user.Username)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		resp := doRequest(t, ts, request{method: http.MethodGet, path: "/v1/user", username: "ada", password: "nope"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRecordOwnership(t *testing.T) {
	ts, _ := setupServer(t)

	adaID := registerUser(t, ts, "ada", "pw-ada")
	registerUser(t, ts, "bert", "pw-bert")

	diary := models.Diary{
		ID:     models.DiaryID(models.RandomID()),
		UserID: adaID,
		Date:   "2024-04-01",
	}
	resp := doRequest(t, ts, request{method: http.MethodPost, path: "/v1/diary", username: "ada", password: "pw-ada", body: diary})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	diaryPath := "/v1/diary/" + strconv.FormatInt(int64(diary.ID), 10)

	t.Run("owner can read", func(t *testing.T) {
		resp := doRequest(t, ts, request{method: http.MethodGet, path: diaryPath, username: "ada", password: "pw-ada"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		resp := doRequest(t, ts, request{method: http.MethodGet, path: diaryPath, username: "bert", password: "pw-bert"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("missing row reads as forbidden", func(t *testing.T) {
		path := "/v1/diary/" + strconv.FormatInt(models.RandomID(), 10)
		resp := doRequest(t, ts, request{method: http.MethodGet, path: path, username: "ada", password: "pw-ada"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("write for another user is forbidden", func(t *testing.T) {
		foreign := models.Diary{
			ID:     models.DiaryID(models.RandomID()),
			UserID: adaID,
			Date:   "2024-04-02",
		}
		resp := doRequest(t, ts, request{method: http.MethodPost, path: "/v1/diary", username: "bert", password: "pw-bert", body: foreign})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestSyncTombstones(t *testing.T) {
	ts, _ := setupServer(t)

	adaID := registerUser(t, ts, "ada", "pw-ada")

	diary := models.Diary{
		ID:     models.DiaryID(models.RandomID()),
		UserID: adaID,
		Date:   "2024-04-01",
	}
	resp := doRequest(t, ts, request{method: http.MethodPost, path: "/v1/diary", username: "ada", password: "pw-ada", body: diary})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	diaryPath := "/v1/diary/" + strconv.FormatInt(int64(diary.ID), 10)
	resp = doRequest(t, ts, request{method: http.MethodDelete, path: diaryPath, username: "ada", password: "pw-ada"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	t.Run("plain list hides the tombstone", func(t *testing.T) {
		resp := doRequest(t, ts, request{method: http.MethodGet, path: "/v1/diary", username: "ada", password: "pw-ada"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rows []models.Diary
		decodeInto(t, resp, &rows)
		assert.Empty(t, rows)
	})

	t.Run("epoch read returns the tombstone", func(t *testing.T) {
		cursor := time.Time{}.Format(time.RFC3339)
		resp := doRequest(t, ts, request{method: http.MethodGet, path: "/v1/diary?epoch=" + cursor, username: "ada", password: "pw-ada"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var page syncPage[models.Diary]
		decodeInto(t, resp, &page)
		require.Len(t, page.Rows, 1)
		assert.True(t, page.Rows[0].Deleted)
		assert.False(t, page.Epoch.IsZero())
	})
}

func TestProviderActingForUser(t *testing.T) {
	ts, db := setupServer(t)

	adaID := registerUser(t, ts, "ada", "pw-ada")
	provider, action := seedProvider(t, db, "tracker")

	session := models.CardioSession{
		ID:         models.CardioSessionID(models.RandomID()),
		UserID:     adaID,
		MovementID: models.MovementID(models.RandomID()),
		CardioType: models.CardioTypeTraining,
		Datetime:   time.Now().UTC(),
	}

	t.Run("without a linking event", func(t *testing.T) {
		resp := doRequest(t, ts, request{
			method: http.MethodPost, path: "/v1/cardio_session",
			username: provider.Name, password: testProviderPassword,
			asUser: adaID, body: session,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("with an enabled event", func(t *testing.T) {
		linkUserToProvider(t, db, adaID, action.ID)

		resp := doRequest(t, ts, request{
			method: http.MethodPost, path: "/v1/cardio_session",
			username: provider.Name, password: testProviderPassword,
			asUser: adaID, body: session,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var created models.CardioSession
		decodeInto(t, resp, &created)
		assert.Equal(t, adaID, created.UserID)
	})
}

func TestProviderScopeLimits(t *testing.T) {
	ts, db := setupServer(t)
	ctx := context.Background()

	adaID := registerUser(t, ts, "ada", "pw-ada")
	provider, action := seedProvider(t, db, "tracker")
	linkUserToProvider(t, db, adaID, action.ID)

	otherPlatform := &models.Platform{
		ID:         models.PlatformID(models.RandomID()),
		Name:       "unrelated-platform",
		Credential: true,
	}
	require.NoError(t, repository.NewBunPlatformRepository(db).Create(ctx, otherPlatform))
	cred := &models.PlatformCredential{
		ID:         models.PlatformCredentialID(models.RandomID()),
		UserID:     adaID,
		PlatformID: otherPlatform.ID,
		Username:   "ada-remote",
		Password:   "remote-secret",
	}
	require.NoError(t, repository.NewBunPlatformCredentialRepository(db).Create(ctx, cred))

	asProvider := func(method, path string, body any) request {
		return request{
			method: method, path: path,
			username: provider.Name, password: testProviderPassword,
			asUser: adaID, body: body,
		}
	}

	t.Run("credentials are not readable", func(t *testing.T) {
		resp := doRequest(t, ts, asProvider(http.MethodGet, "/v1/platform_credential", nil))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("account data is not readable", func(t *testing.T) {
		resp := doRequest(t, ts, asProvider(http.MethodGet, "/v1/account_data", nil))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("account cannot be rewritten", func(t *testing.T) {
		takeover := models.User{ID: adaID, Username: "ada", Password: "stolen", Email: "ada@example.com"}
		resp := doRequest(t, ts, asProvider(http.MethodPut, "/v1/user", takeover))
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = doRequest(t, ts, asProvider(http.MethodDelete, "/v1/user", nil))
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = doRequest(t, ts, request{method: http.MethodGet, path: "/v1/user", username: "ada", password: "pw-ada"})
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "owner keeps their password")
	})

	t.Run("records stay writable", func(t *testing.T) {
		diary := models.Diary{ID: models.DiaryID(models.RandomID()), UserID: adaID, Date: "2024-04-03"}
		resp := doRequest(t, ts, asProvider(http.MethodPost, "/v1/diary", diary))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("admin acting for the user still passes", func(t *testing.T) {
		resp := doRequest(t, ts, request{
			method: http.MethodGet, path: "/v1/platform_credential",
			username: "admin", password: testAdminPassword, asUser: adaID,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var creds []models.PlatformCredential
		decodeInto(t, resp, &creds)
		assert.Len(t, creds, 1)
	})
}

func TestSelfRegistrationDisabled(t *testing.T) {
	ts, _ := setupServer(t, func(cfg *config.ServerConfig) { cfg.SelfRegistration = false })

	user := models.User{
		ID:       models.UserID(models.RandomID()),
		Username: "ada",
		Password: "pw-ada",
		Email:    "ada@example.com",
	}
	resp := doRequest(t, ts, request{method: http.MethodPost, path: "/v1/user", body: user})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "route answers instead of disappearing")

	resp = doRequest(t, ts, request{
		method: http.MethodPost, path: "/v1/adm/user",
		username: "admin", password: testAdminPassword, body: user,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "admin creation is unaffected")
}

func TestProviderDisableEvents(t *testing.T) {
	ts, db := setupServer(t)

	adaID := registerUser(t, ts, "ada", "pw-ada")
	provider, action := seedProvider(t, db, "tracker")
	_, otherAction := seedProvider(t, db, "other")

	ownEvent := linkUserToProvider(t, db, adaID, action.ID)
	foreignEvent := linkUserToProvider(t, db, adaID, otherAction.ID)

	t.Run("foreign event in batch is forbidden", func(t *testing.T) {
		resp := doRequest(t, ts, request{
			method: http.MethodDelete, path: "/v1/ap/action_event",
			username: provider.Name, password: testProviderPassword,
			body: []models.ActionEventID{ownEvent, foreignEvent},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("own events are disabled", func(t *testing.T) {
		resp := doRequest(t, ts, request{
			method: http.MethodDelete, path: "/v1/ap/action_event",
			username: provider.Name, password: testProviderPassword,
			body: []models.ActionEventID{ownEvent},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		events, err := repository.NewBunActionRepository(db).ListEventsByUserAndProvider(context.Background(), adaID, provider.ID)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestAdminSchedulerEndpoints(t *testing.T) {
	ts, db := setupServer(t)

	adaID := registerUser(t, ts, "ada", "pw-ada")
	_, action := seedProvider(t, db, "tracker")

	datetime := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	makeEvent := func() models.ActionEvent {
		return models.ActionEvent{
			ID:       models.ActionEventID(models.RandomID()),
			UserID:   adaID,
			ActionID: action.ID,
			Datetime: datetime,
			Enabled:  true,
		}
	}

	t.Run("requires admin credentials", func(t *testing.T) {
		resp := doRequest(t, ts, request{
			method: http.MethodPost, path: "/v1/adm/action_event",
			username: "admin", password: "wrong",
			body: []models.ActionEvent{makeEvent()},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bulk insert is idempotent", func(t *testing.T) {
		resp := doRequest(t, ts, request{
			method: http.MethodPost, path: "/v1/adm/action_event",
			username: "admin", password: testAdminPassword,
			body: []models.ActionEvent{makeEvent()},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var result map[string]int64
		decodeInto(t, resp, &result)
		assert.EqualValues(t, 1, result["inserted"])

		resp = doRequest(t, ts, request{
			method: http.MethodPost, path: "/v1/adm/action_event",
			username: "admin", password: testAdminPassword,
			body: []models.ActionEvent{makeEvent()},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeInto(t, resp, &result)
		assert.EqualValues(t, 0, result["inserted"], "same slot inserts nothing")
	})
}

func TestPreflightFallback(t *testing.T) {
	ts, _ := setupServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/no/such/path", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
