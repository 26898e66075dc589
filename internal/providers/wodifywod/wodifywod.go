// Package wodifywod fetches the workout of the day from wodify and stores
// it in the invoking user's wods.
package wodifywod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gaogaogoo/sport-log/internal/aputil"
	"github.com/gaogaogoo/sport-log/internal/client"
	"github.com/gaogaogoo/sport-log/internal/config"
	"github.com/gaogaogoo/sport-log/internal/db/models"
)

const (
	// Name is the provider's registered name.
	Name = "wodify-wod"
	// PlatformName is the platform the provider executes against.
	PlatformName = "wodify"

	description = "Wodify Wod can fetch the Workout of the Day and save it in your wods. The action names correspond to the class type the wod should be fetched for."

	defaultAPIURL = "https://app.wodify.com/api"
)

// Fetcher is the wodify action provider.
type Fetcher struct {
	log    *zap.Logger
	cfg    *config.ProviderConfig
	server *client.Client
	http   *http.Client
	apiURL string
}

// New constructs a fetcher from its configuration.
func New(cfg *config.ProviderConfig, log *zap.Logger) *Fetcher {
	return &Fetcher{
		log:    log,
		cfg:    cfg,
		server: client.New(cfg.ServerURL, Name, cfg.Password),
		http:   aputil.NewHTTPClient(),
		apiURL: defaultAPIURL,
	}
}

// Setup registers the platform, the provider and one action per class type.
func (f *Fetcher) Setup(ctx context.Context) error {
	classTypes := []string{"CrossFit", "Weightlifting", "Open Fridge"}

	actions := make([]aputil.ActionSpec, 0, len(classTypes))
	for _, classType := range classTypes {
		actions = append(actions, aputil.ActionSpec{
			Name:         classType,
			Description:  fmt.Sprintf("Fetch and save the %s wod for the current day.", classType),
			CreateBefore: 168 * time.Hour,
			DeleteAfter:  0,
		})
	}

	return aputil.Setup(ctx, f.log, f.cfg.ServerURL, aputil.SetupSpec{
		PlatformName: PlatformName,
		Credential:   true,
		Name:         Name,
		Password:     f.cfg.Password,
		Description:  description,
		Actions:      actions,
	})
}

// Run processes the currently executable events.
func (f *Fetcher) Run(ctx context.Context) error {
	return aputil.ProcessEvents(ctx, f.log, f.server, 0, 24*time.Hour+time.Minute, f.processEvent)
}

func (f *Fetcher) processEvent(ctx context.Context, event models.ExecutableActionEvent) error {
	if event.Username == nil || event.Password == nil {
		return &aputil.UserError{EventID: event.ActionEventID, Reason: aputil.NoCredential}
	}

	token, err := f.login(ctx, *event.Username, *event.Password)
	if err != nil {
		return err
	}
	if token == "" {
		return &aputil.UserError{EventID: event.ActionEventID, Reason: aputil.LoginFailed}
	}

	today := models.DateOf(time.Now())
	wodText, err := f.fetchWod(ctx, token, today, event.ActionName)
	if err != nil {
		return err
	}
	if wodText == "" {
		f.log.Info("no wod found",
			zap.String("class_type", event.ActionName),
			zap.Int64("user_id", int64(event.UserID)))
		return nil
	}

	wod := &models.Wod{
		ID:          models.WodID(models.RandomID()),
		UserID:      event.UserID,
		Date:        today,
		Description: &wodText,
	}
	err = f.server.CreateWod(ctx, event.UserID, wod)
	if err == nil {
		f.log.Info("wod saved", zap.Int64("user_id", int64(event.UserID)))
		return nil
	}

	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusConflict {
		return fmt.Errorf("create wod: %w", err)
	}

	// A wod for today already exists; append instead of overwrite.
	wods, err := f.server.GetWodsTimespan(ctx, event.UserID, today, today)
	if err != nil {
		return fmt.Errorf("get today's wod: %w", err)
	}
	if len(wods) == 0 {
		return fmt.Errorf("wod for %s conflicted on create but is not listed", today)
	}
	existing := wods[0]
	if existing.Description != nil {
		combined := *existing.Description + wodText
		existing.Description = &combined
	} else {
		existing.Description = &wodText
	}
	if err := f.server.UpdateWod(ctx, event.UserID, &existing); err != nil {
		return fmt.Errorf("update wod: %w", err)
	}
	f.log.Info("wod appended", zap.Int64("user_id", int64(event.UserID)))
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type wodResponse struct {
	Components []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"components"`
}

// login exchanges the user's wodify credentials for a bearer token. An
// empty token means the login was rejected.
func (f *Fetcher) login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.apiURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return login.Token, nil
}

// fetchWod returns the wod text for the date and class type, one component
// per block. An empty string means no wod is published.
func (f *Fetcher) fetchWod(ctx context.Context, token string, date models.Date, classType string) (string, error) {
	u := fmt.Sprintf("%s/wods?date=%s&type=%s", f.apiURL, url.QueryEscape(string(date)), url.QueryEscape(classType))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("get wod: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("get wod: unexpected status %d", resp.StatusCode)
	}

	var wod wodResponse
	if err := json.NewDecoder(resp.Body).Decode(&wod); err != nil {
		return "", fmt.Errorf("get wod: %w", err)
	}

	var b strings.Builder
	for _, component := range wod.Components {
		b.WriteString(component.Name)
		b.WriteString("\n")
		b.WriteString(component.Description)
		b.WriteString("\n")
	}
	return b.String(), nil
}
