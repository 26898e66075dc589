package scheduler

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

	"github.com/gaogaogoo/sport-log/internal/client"
	"github.com/gaogaogoo/sport-log/internal/config"
	"github.com/gaogaogoo/sport-log/internal/db/models"
)

func mondayNoonRule(createBefore time.Duration) models.CreatableActionRule {
	return models.CreatableActionRule{
		ActionRuleID: 1,
		UserID:       2,
		ActionID:     3,
		Weekday:      models.Monday,
		Time:         models.TimeOfDay("12:00:00"),
		CreateBefore: createBefore.Milliseconds(),
	}
}

func TestExpandRule(t *testing.T) {
	rule := mondayNoonRule(14 * 24 * time.Hour)

	t.Run("from sunday midnight", func(t *testing.T) {
		now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

		datetimes := ExpandRule(rule, now)
		require.Len(t, datetimes, 2)
		assert.Equal(t, time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC), datetimes[0])
		assert.Equal(t, time.Date(2023, 1, 9, 12, 0, 0, 0, time.UTC), datetimes[1])
	})

	t.Run("one second past the occurrence skips it", func(t *testing.T) {
		now := time.Date(2023, 1, 2, 12, 0, 1, 0, time.UTC)

		datetimes := ExpandRule(rule, now)
		require.Len(t, datetimes, 2)
		assert.Equal(t, time.Date(2023, 1, 9, 12, 0, 0, 0, time.UTC), datetimes[0])
		assert.Equal(t, time.Date(2023, 1, 16, 12, 0, 0, 0, time.UTC), datetimes[1])
	})

	t.Run("exact occurrence instant still counts", func(t *testing.T) {
		now := time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC)

		datetimes := ExpandRule(rule, now)
		require.Len(t, datetimes, 3)
		assert.Equal(t, now, datetimes[0])
	})

	t.Run("horizon is inclusive", func(t *testing.T) {
		now := time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC)

		datetimes := ExpandRule(mondayNoonRule(7*24*time.Hour), now)
		require.Len(t, datetimes, 2)
		assert.Equal(t, time.Date(2023, 1, 9, 12, 0, 0, 0, time.UTC), datetimes[1])
	})

	t.Run("short horizon yields nothing", func(t *testing.T) {
		now := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)

		datetimes := ExpandRule(mondayNoonRule(24*time.Hour), now)
		assert.Empty(t, datetimes)
	})

	t.Run("emitted datetimes keep weekday and time of day", func(t *testing.T) {
		now := time.Date(2023, 6, 15, 9, 30, 0, 0, time.UTC)

		for _, datetime := range ExpandRule(mondayNoonRule(30*24*time.Hour), now) {
			assert.Equal(t, time.Monday, datetime.Weekday())
			hour, minute, second := datetime.Clock()
			assert.Equal(t, 12, hour)
			assert.Zero(t, minute)
			assert.Zero(t, second)
			assert.False(t, datetime.Before(now))
		}
	})

	t.Run("invalid weekday yields nothing", func(t *testing.T) {
		broken := mondayNoonRule(14 * 24 * time.Hour)
		broken.Weekday = models.Weekday("Holiday")

		assert.Empty(t, ExpandRule(broken, time.Now()))
	})
}

func TestDeleteExpiredEvents(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	events := []models.DeletableActionEvent{
		{ActionEventID: 1, Datetime: now.Add(-time.Hour), DeleteAfter: time.Hour.Milliseconds()},
		{ActionEventID: 2, Datetime: now.Add(-time.Hour), DeleteAfter: (2 * time.Hour).Milliseconds()},
		{ActionEventID: 3, Datetime: now.Add(-3 * time.Hour), DeleteAfter: time.Hour.Milliseconds()},
	}

	var mu sync.Mutex
	var deleted []models.ActionEventID
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/adm/deletable_action_event", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(events)
	})
	mux.HandleFunc("DELETE /v1/adm/action_event", func(w http.ResponseWriter, r *http.Request) {
		var ids []models.ActionEventID
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		mu.Lock()
		deleted = append(deleted, ids...)
		mu.Unlock()
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	s := &Scheduler{
		cfg:    &config.SchedulerConfig{AdminPassword: "pw", ServerURL: ts.URL},
		client: client.NewAdmin(ts.URL, "pw"),
		log:    zap.NewNop(),
	}
	require.NoError(t, s.deleteExpiredEvents(context.Background(), now))

	// Event 1 sits exactly on its retention boundary and counts as expired.
	assert.ElementsMatch(t, []models.ActionEventID{1, 3}, deleted)
}
