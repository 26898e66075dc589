// Package sportstracker fetches workouts recorded with sports-tracker.com
// and stores them as cardio sessions of the invoking user.
package sportstracker

import (
	"context"
	"encoding/json"
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
	Name = "sportstracker-fetch"
	// PlatformName is the platform the provider executes against.
	PlatformName = "sportstracker"

	description = "Sportstracker Fetch can fetch the latest workouts recorded with sportstracker and save them in your cardio sessions."

	defaultAPIURL = "https://api.sports-tracker.com/apiserver/v1"
)

// activityMovements maps sportstracker activity ids to movement names.
// Unknown ids are skipped with a log line.
var activityMovements = map[int]string{
	1:  "running",
	2:  "biking",
	11: "hiking",
	22: "trailrunning",
	31: "skitouring",
}

// Fetcher is the sportstracker action provider.
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

// Setup registers the platform, the provider and its fetch action.
func (f *Fetcher) Setup(ctx context.Context) error {
	return aputil.Setup(ctx, f.log, f.cfg.ServerURL, aputil.SetupSpec{
		PlatformName: PlatformName,
		Credential:   true,
		Name:         Name,
		Password:     f.cfg.Password,
		Description:  description,
		Actions: []aputil.ActionSpec{
			{
				Name:         "fetch",
				Description:  "Fetch and save new workouts.",
				CreateBefore: 168 * time.Hour,
				DeleteAfter:  0,
			},
		},
	})
}

// Run processes the currently executable events.
func (f *Fetcher) Run(ctx context.Context) error {
	return aputil.ProcessEvents(ctx, f.log, f.server, 0, time.Hour+time.Minute, f.processEvent)
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

	keys, err := f.workoutKeys(ctx, token)
	if err != nil {
		return err
	}

	movements, err := f.server.GetMovements(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("get movements: %w", err)
	}
	for i := range movements {
		movements[i].Name = NormalizeMovementName(movements[i].Name)
	}

	// Workouts arrive newest first. Once a workout is already stored the
	// older ones are too, so the loop stops at the first known one.
	for _, key := range keys {
		stats, err := f.workoutStats(ctx, token, key)
		if err != nil {
			return err
		}
		track, err := f.workoutTrack(ctx, token, key)
		if err != nil {
			return err
		}

		session, ok := f.toCardioSession(stats, track, event, movements)
		if !ok {
			continue
		}

		known, err := f.server.GetCardioSessionsTimespan(ctx, event.UserID, session.Datetime, session.Datetime)
		if err != nil {
			return fmt.Errorf("get cardio sessions: %w", err)
		}
		upToDate := false
		for _, k := range known {
			if k.MovementID == session.MovementID {
				upToDate = true
				break
			}
		}
		if upToDate {
			f.log.Info("everything up to date", zap.Int64("user_id", int64(event.UserID)))
			break
		}

		if err := f.server.CreateCardioSessions(ctx, event.UserID, []models.CardioSession{session}); err != nil {
			return fmt.Errorf("create cardio session: %w", err)
		}
		f.log.Info("cardio session saved", zap.Int64("user_id", int64(event.UserID)))
	}
	return nil
}

// toCardioSession converts a workout into a cardio session. It fails softly
// when the activity id or the matching movement is unknown.
func (f *Fetcher) toCardioSession(stats workoutStats, track []location, event models.ExecutableActionEvent, movements []models.Movement) (models.CardioSession, bool) {
	movementName, ok := activityMovements[stats.ActivityID]
	if !ok {
		f.log.Info("skipping workout: unknown activity id", zap.Int("activity_id", stats.ActivityID))
		return models.CardioSession{}, false
	}

	var movementID models.MovementID
	found := false
	for _, movement := range movements {
		if movement.Name == movementName {
			movementID = movement.ID
			found = true
			break
		}
	}
	if !found {
		f.log.Info("skipping workout: unknown movement", zap.String("movement", movementName))
		return models.CardioSession{}, false
	}

	cardioType := models.CardioTypeFreetime
	if movementName == "running" || movementName == "trailrunning" {
		cardioType = models.CardioTypeTraining
	}

	var avgCadence *int
	if stats.StepCount > 0 {
		cadence := int(float64(stats.StepCount) / (float64(stats.TotalTime) / 60))
		avgCadence = &cadence
	}

	positions := make(models.Track, 0, len(track))
	for _, l := range track {
		positions = append(positions, models.Position{
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Elevation: float64(l.Height),
			Distance:  float64(l.Distance),
			Time:      l.Seconds * 1000,
		})
	}

	distance := int(stats.TotalDistance)
	ascent := int(stats.TotalAscent)
	descent := int(stats.TotalDescent)
	duration := int(stats.TotalTime) * 1000
	calories := stats.EnergyConsumption

	return models.CardioSession{
		ID:         models.CardioSessionID(models.RandomID()),
		UserID:     event.UserID,
		MovementID: movementID,
		CardioType: cardioType,
		Datetime:   time.UnixMilli(stats.StartTime).UTC(),
		Distance:   &distance,
		Ascent:     &ascent,
		Descent:    &descent,
		Time:       &duration,
		Calories:   &calories,
		Track:      positions,
		AvgCadence: avgCadence,
		Comments:   stats.Description,
	}, true
}

// NormalizeMovementName lowercases a movement name and strips whitespace
// and hyphens so remote activity names match stored movements.
func NormalizeMovementName(name string) string {
	name = strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, name)
}

type loginResponse struct {
	SessionKey *string `json:"sessionkey"`
}

type workoutKeysResponse struct {
	Payload []struct {
		WorkoutKey string `json:"workoutKey"`
	} `json:"payload"`
}

type workoutStats struct {
	Description       *string `json:"description"`
	ActivityID        int     `json:"activityId"`
	StartTime         int64   `json:"startTime"`
	TotalTime         float64 `json:"totalTime"`
	TotalDistance     float64 `json:"totalDistance"`
	TotalAscent       float64 `json:"totalAscent"`
	TotalDescent      float64 `json:"totalDescent"`
	StepCount         int     `json:"stepCount"`
	EnergyConsumption int     `json:"energyConsumption"`
}

type workoutStatsResponse struct {
	Payload workoutStats `json:"payload"`
}

type location struct {
	Seconds   int     `json:"t"`
	Latitude  float64 `json:"la"`
	Longitude float64 `json:"ln"`
	Distance  int     `json:"s"`
	Height    float64 `json:"h"`
}

type workoutTrackResponse struct {
	Payload struct {
		Locations []location `json:"locations"`
	} `json:"payload"`
}

// login exchanges the user's credentials for a session key. An empty key
// means the login was rejected.
func (f *Fetcher) login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("l", username)
	form.Set("p", password)
	form.Set("captchaToken", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.apiURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var user loginResponse
	if err := f.doJSON(req, &user); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if user.SessionKey == nil {
		return "", nil
	}
	return *user.SessionKey, nil
}

func (f *Fetcher) workoutKeys(ctx context.Context, token string) ([]string, error) {
	u := fmt.Sprintf("%s/workouts?token=%s&limited=true&limit=100000", f.apiURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var workouts workoutKeysResponse
	if err := f.doJSON(req, &workouts); err != nil {
		return nil, fmt.Errorf("get workouts: %w", err)
	}

	keys := make([]string, 0, len(workouts.Payload))
	for _, w := range workouts.Payload {
		keys = append(keys, w.WorkoutKey)
	}
	return keys, nil
}

func (f *Fetcher) workoutStats(ctx context.Context, token, key string) (workoutStats, error) {
	u := fmt.Sprintf("%s/workouts/%s?token=%s&samples=100000", f.apiURL, url.PathEscape(key), url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return workoutStats{}, err
	}

	var wrapper workoutStatsResponse
	if err := f.doJSON(req, &wrapper); err != nil {
		return workoutStats{}, fmt.Errorf("get workout stats: %w", err)
	}
	return wrapper.Payload, nil
}

func (f *Fetcher) workoutTrack(ctx context.Context, token, key string) ([]location, error) {
	u := fmt.Sprintf("%s/workouts/%s/data?token=%s&samples=100000", f.apiURL, url.PathEscape(key), url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var wrapper workoutTrackResponse
	if err := f.doJSON(req, &wrapper); err != nil {
		return nil, fmt.Errorf("get workout track: %w", err)
	}
	return wrapper.Payload.Locations, nil
}

func (f *Fetcher) doJSON(req *http.Request, dest any) error {
	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
