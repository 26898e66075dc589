// Package client is the REST client for the sport-log server, used by the
// scheduler (as admin) and the action providers (as themselves or on behalf
// of a user).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gaogaogoo/sport-log/internal/db/models"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.Code)
}

// Client talks to one sport-log server with one set of Basic credentials.
type Client struct {
	base     string
	username string
	password string
	http     *http.Client
}

// New constructs a client. The HTTP client and its connection pool are
// shared by all calls.
func New(serverURL, username, password string) *Client {
	return &Client{
		base:     strings.TrimRight(serverURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// NewAdmin constructs a client authenticated as the instance admin.
func NewAdmin(serverURL, adminPassword string) *Client {
	return New(serverURL, "admin", adminPassword)
}

func (c *Client) do(ctx context.Context, method, path string, asUser *models.UserID, body, dest any) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if asUser != nil {
		req.Header.Set("id", strconv.FormatInt(int64(*asUser), 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode}
	}
	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetCreatableActionRules fetches the scheduler's expansion input. Admin.
func (c *Client) GetCreatableActionRules(ctx context.Context) ([]models.CreatableActionRule, error) {
	var rules []models.CreatableActionRule
	if err := c.do(ctx, http.MethodGet, "/v1/adm/creatable_action_rule", nil, nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// GetDeletableActionEvents fetches the scheduler's expiry sweep input. Admin.
func (c *Client) GetDeletableActionEvents(ctx context.Context) ([]models.DeletableActionEvent, error) {
	var events []models.DeletableActionEvent
	if err := c.do(ctx, http.MethodGet, "/v1/adm/deletable_action_event", nil, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CreateActionEvents bulk-inserts events, skipping duplicates. Admin.
func (c *Client) CreateActionEvents(ctx context.Context, events []models.ActionEvent) error {
	return c.do(ctx, http.MethodPost, "/v1/adm/action_event", nil, events, nil)
}

// DeleteActionEvents soft-deletes events by id. Admin.
func (c *Client) DeleteActionEvents(ctx context.Context, ids []models.ActionEventID) error {
	return c.do(ctx, http.MethodDelete, "/v1/adm/action_event", nil, ids, nil)
}

// GarbageCollection hard-deletes tombstones older than the cutoff. Admin.
func (c *Client) GarbageCollection(ctx context.Context, cutoff time.Time) error {
	path := "/v1/adm/garbage_collection?last_change=" + url.QueryEscape(cutoff.Format(time.RFC3339))
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// GetActionProvider returns the provider's own row. Provider.
func (c *Client) GetActionProvider(ctx context.Context) (*models.ActionProvider, error) {
	provider := new(models.ActionProvider)
	if err := c.do(ctx, http.MethodGet, "/v1/ap/action_provider", nil, nil, provider); err != nil {
		return nil, err
	}
	return provider, nil
}

// GetPlatforms lists all platforms. Provider.
func (c *Client) GetPlatforms(ctx context.Context) ([]models.Platform, error) {
	var platforms []models.Platform
	if err := c.do(ctx, http.MethodGet, "/v1/ap/platform", nil, nil, &platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}

// CreatePlatform self-registers a platform. Unauthenticated; requires
// ap_self_registration on the server.
func (c *Client) CreatePlatform(ctx context.Context, platform *models.Platform) error {
	return c.do(ctx, http.MethodPost, "/v1/ap/platform", nil, platform, platform)
}

// CreateActionProvider self-registers the provider. Unauthenticated;
// requires ap_self_registration on the server.
func (c *Client) CreateActionProvider(ctx context.Context, provider *models.ActionProvider) error {
	return c.do(ctx, http.MethodPost, "/v1/ap/action_provider", nil, provider, provider)
}

// CreateActions registers the provider's actions. Provider.
func (c *Client) CreateActions(ctx context.Context, actions []models.Action) error {
	return c.do(ctx, http.MethodPost, "/v1/ap/action", nil, actions, nil)
}

// GetExecutableEvents returns the provider's executable events within the
// window, ordered by datetime. Provider.
func (c *Client) GetExecutableEvents(ctx context.Context, start, end time.Time) ([]models.ExecutableActionEvent, error) {
	path := fmt.Sprintf("/v1/ap/executable_action_event/timespan/%s/%s",
		url.PathEscape(start.Format(time.RFC3339)),
		url.PathEscape(end.Format(time.RFC3339)))

	var events []models.ExecutableActionEvent
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// DisableEvents soft-deletes the provider's own events. Provider.
func (c *Client) DisableEvents(ctx context.Context, ids []models.ActionEventID) error {
	return c.do(ctx, http.MethodDelete, "/v1/ap/action_event", nil, ids, nil)
}

// GetMovements lists the movements visible to the user. Provider as user.
func (c *Client) GetMovements(ctx context.Context, userID models.UserID) ([]models.Movement, error) {
	var movements []models.Movement
	if err := c.do(ctx, http.MethodGet, "/v1/movement", &userID, nil, &movements); err != nil {
		return nil, err
	}
	return movements, nil
}

// GetCardioSessionsTimespan lists the user's cardio sessions in the window.
// Provider as user.
func (c *Client) GetCardioSessionsTimespan(ctx context.Context, userID models.UserID, start, end time.Time) ([]models.CardioSession, error) {
	path := fmt.Sprintf("/v1/cardio_session/timespan/%s/%s",
		url.PathEscape(start.Format(time.RFC3339)),
		url.PathEscape(end.Format(time.RFC3339)))

	var sessions []models.CardioSession
	if err := c.do(ctx, http.MethodGet, path, &userID, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateCardioSessions writes cardio sessions for the user. Provider as
// user.
func (c *Client) CreateCardioSessions(ctx context.Context, userID models.UserID, sessions []models.CardioSession) error {
	return c.do(ctx, http.MethodPost, "/v1/cardio_session", &userID, sessions, nil)
}

// CreateWod writes a wod for the user. Provider as user.
func (c *Client) CreateWod(ctx context.Context, userID models.UserID, wod *models.Wod) error {
	return c.do(ctx, http.MethodPost, "/v1/wod", &userID, wod, wod)
}

// UpdateWod replaces a wod of the user. Provider as user.
func (c *Client) UpdateWod(ctx context.Context, userID models.UserID, wod *models.Wod) error {
	return c.do(ctx, http.MethodPut, "/v1/wod", &userID, wod, wod)
}

// GetWodsTimespan lists the user's wods with date in [start, end]. Provider
// as user.
func (c *Client) GetWodsTimespan(ctx context.Context, userID models.UserID, start, end models.Date) ([]models.Wod, error) {
	path := fmt.Sprintf("/v1/wod/timespan/%s/%s", url.PathEscape(string(start)), url.PathEscape(string(end)))

	var wods []models.Wod
	if err := c.do(ctx, http.MethodGet, path, &userID, nil, &wods); err != nil {
		return nil, err
	}
	return wods, nil
}
