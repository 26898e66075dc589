package wodifywod

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaogaogoo/sport-log/internal/aputil"
	"github.com/gaogaogoo/sport-log/internal/client"
	"github.com/gaogaogoo/sport-log/internal/db/models"
)

func testFetcher(apiURL string) *Fetcher {
	return &Fetcher{
		log:    zap.NewNop(),
		http:   aputil.NewHTTPClient(),
		apiURL: apiURL,
	}
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var creds loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Username != "ada" || creds.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(loginResponse{Token: "bearer-1"})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := testFetcher(ts.URL)

	t.Run("valid credentials", func(t *testing.T) {
		token, err := f.login(context.Background(), "ada", "pw")
		require.NoError(t, err)
		assert.Equal(t, "bearer-1", token)
	})

	t.Run("rejected credentials yield an empty token", func(t *testing.T) {
		token, err := f.login(context.Background(), "ada", "wrong")
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func TestFetchWod(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wods", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bearer-1", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("type") {
		case "CrossFit":
			w.Write([]byte(`{"components": [
				{"name": "Warmup", "description": "3 rounds easy"},
				{"name": "Metcon", "description": "21-15-9 thrusters and pullups"}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := testFetcher(ts.URL)

	t.Run("components are joined into one text", func(t *testing.T) {
		text, err := f.fetchWod(context.Background(), "bearer-1", "2024-05-04", "CrossFit")
		require.NoError(t, err)
		assert.Equal(t, "Warmup\n3 rounds easy\nMetcon\n21-15-9 thrusters and pullups\n", text)
	})

	t.Run("unpublished wod is empty, not an error", func(t *testing.T) {
		text, err := f.fetchWod(context.Background(), "bearer-1", "2024-05-04", "Weightlifting")
		require.NoError(t, err)
		assert.Empty(t, text)
	})
}

func TestProcessEventWithoutCredential(t *testing.T) {
	f := testFetcher("")

	err := f.processEvent(context.Background(), models.ExecutableActionEvent{ActionEventID: 7, UserID: 3})

	var userErr *aputil.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, models.ActionEventID(7), userErr.EventID)
	assert.Equal(t, aputil.NoCredential, userErr.Reason)
}

// wodifyAPIStub serves a login token and one CrossFit wod.
func wodifyAPIStub() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{Token: "bearer-1"})
	})
	mux.HandleFunc("GET /wods", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"components": [{"name": "Metcon", "description": "21-15-9 thrusters and pullups"}]}`))
	})
	return mux
}

func conflictEvent() models.ExecutableActionEvent {
	user, pass := "ada", "pw"
	return models.ExecutableActionEvent{
		ActionEventID: 1,
		ActionName:    "CrossFit",
		Datetime:      time.Now().UTC(),
		UserID:        10,
		Username:      &user,
		Password:      &pass,
	}
}

func TestProcessEventAppendsOnConflict(t *testing.T) {
	api := httptest.NewServer(wodifyAPIStub())
	defer api.Close()

	existingText := "Warmup\nrow 500m\n"
	existing := models.Wod{
		ID:          models.WodID(models.RandomID()),
		UserID:      10,
		Date:        models.DateOf(time.Now()),
		Description: &existingText,
	}

	var mu sync.Mutex
	var updated *models.Wod
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/wod", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"status": 409}`))
	})
	mux.HandleFunc("GET /v1/wod/timespan/{start}/{end}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Wod{existing})
	})
	mux.HandleFunc("PUT /v1/wod", func(w http.ResponseWriter, r *http.Request) {
		var wod models.Wod
		if err := json.NewDecoder(r.Body).Decode(&wod); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		updated = &wod
		mu.Unlock()
		json.NewEncoder(w).Encode(wod)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := testFetcher(api.URL)
	f.server = client.New(srv.URL, Name, "pw")

	require.NoError(t, f.processEvent(context.Background(), conflictEvent()))

	require.NotNil(t, updated)
	assert.Equal(t, existing.ID, updated.ID)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "Warmup\nrow 500m\nMetcon\n21-15-9 thrusters and pullups\n", *updated.Description)
}

func TestProcessEventConflictWithoutVisibleWod(t *testing.T) {
	api := httptest.NewServer(wodifyAPIStub())
	defer api.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/wod", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"status": 409}`))
	})
	mux.HandleFunc("GET /v1/wod/timespan/{start}/{end}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := testFetcher(api.URL)
	f.server = client.New(srv.URL, Name, "pw")

	err := f.processEvent(context.Background(), conflictEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not listed")
	assert.NotContains(t, err.Error(), "%!w")
}
