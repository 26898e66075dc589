// Package aputil is the shared runtime for action providers: registration
// against the server, fetching executable events, fanning the per-event work
// out into concurrent tasks and disabling the handled events afterwards.
package aputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gaogaogoo/sport-log/internal/client"
	"github.com/gaogaogoo/sport-log/internal/db/models"
)

// UserErrorReason classifies per-user soft failures. They disable the event
// like a success does, because retrying cannot help until the user fixes
// their credential.
type UserErrorReason string

const (
	// NoCredential means the user has no stored platform credential.
	NoCredential UserErrorReason = "no credentials provided"
	// LoginFailed means the stored credential was rejected by the platform.
	LoginFailed UserErrorReason = "login failed"
)

// UserError is a soft, per-event failure.
type UserError struct {
	EventID models.ActionEventID
	Reason  UserErrorReason
}

func (e *UserError) Error() string {
	return fmt.Sprintf("can not log in: %s", e.Reason)
}

// Processor handles one executable event. A returned UserError counts as
// handled; any other error is a hard failure and aborts the whole run
// without disabling anything.
type Processor func(ctx context.Context, event models.ExecutableActionEvent) error

// NewHTTPClient returns the HTTP client shared by a provider's tasks.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// ProcessEvents fetches the provider's executable events in
// [now+startOffset, now+endOffset], runs the processor for each event
// concurrently, joins all tasks and then disables every handled event in one
// call.
func ProcessEvents(ctx context.Context, log *zap.Logger, c *client.Client, startOffset, endOffset time.Duration, process Processor) error {
	now := time.Now().UTC()
	events, err := c.GetExecutableEvents(ctx, now.Add(startOffset), now.Add(endOffset))
	if err != nil {
		return fmt.Errorf("get executable action events: %w", err)
	}
	log.Debug("got executable action events", zap.Int("count", len(events)))
	if len(events) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	handled := make([]models.ActionEventID, len(events))
	for i, event := range events {
		g.Go(func() error {
			if err := process(ctx, event); err != nil {
				var userErr *UserError
				if !errors.As(err, &userErr) {
					return err
				}
				log.Info("user error",
					zap.Int64("action_event_id", int64(userErr.EventID)),
					zap.String("reason", string(userErr.Reason)))
			}
			handled[i] = event.ActionEventID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Debug("disabling action events", zap.Int("count", len(handled)))
	if err := c.DisableEvents(ctx, handled); err != nil {
		return fmt.Errorf("disable action events: %w", err)
	}
	return nil
}

// ActionSpec describes one action a provider registers at setup time.
type ActionSpec struct {
	Name        string
	Description string
	// CreateBefore is how far ahead of the event the scheduler may
	// materialise it; DeleteAfter how long after the event it is kept.
	CreateBefore time.Duration
	DeleteAfter  time.Duration
}

// SetupSpec describes a provider's identity for self-registration.
type SetupSpec struct {
	PlatformName string
	// Credential is true when the provider needs stored user credentials.
	Credential  bool
	Name        string
	Password    string
	Description string
	Actions     []ActionSpec
}

// Setup self-registers the platform, the provider and its actions. Existing
// rows are reused; the server must have ap_self_registration enabled for
// first-time registration.
func Setup(ctx context.Context, log *zap.Logger, serverURL string, spec SetupSpec) error {
	c := client.New(serverURL, spec.Name, spec.Password)

	platform := &models.Platform{
		ID:         models.PlatformID(models.RandomID()),
		Name:       spec.PlatformName,
		Credential: spec.Credential,
	}
	if err := c.CreatePlatform(ctx, platform); err != nil {
		if !isConflict(err) {
			return fmt.Errorf("create platform: %w", err)
		}
		platforms, err := c.GetPlatforms(ctx)
		if err != nil {
			return fmt.Errorf("platform %s exists but lookup failed: %w", spec.PlatformName, err)
		}
		found := false
		for _, p := range platforms {
			if p.Name == spec.PlatformName {
				platform = &p
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("platform %s not visible after conflict", spec.PlatformName)
		}
	}
	log.Info("platform registered", zap.String("name", platform.Name))

	provider := &models.ActionProvider{
		ID:          models.ActionProviderID(models.RandomID()),
		Name:        spec.Name,
		Password:    spec.Password,
		PlatformID:  platform.ID,
		Description: &spec.Description,
	}
	if err := c.CreateActionProvider(ctx, provider); err != nil {
		if !isConflict(err) {
			return fmt.Errorf("create action provider: %w", err)
		}
		provider, err = c.GetActionProvider(ctx)
		if err != nil {
			return fmt.Errorf("action provider %s exists but lookup failed: %w", spec.Name, err)
		}
	}
	log.Info("action provider registered", zap.String("name", provider.Name))

	actions := make([]models.Action, 0, len(spec.Actions))
	for _, a := range spec.Actions {
		description := a.Description
		actions = append(actions, models.Action{
			ID:               models.ActionID(models.RandomID()),
			Name:             a.Name,
			ActionProviderID: provider.ID,
			Description:      &description,
			CreateBefore:     a.CreateBefore.Milliseconds(),
			DeleteAfter:      a.DeleteAfter.Milliseconds(),
		})
	}
	if err := c.CreateActions(ctx, actions); err != nil {
		if !isConflict(err) {
			return fmt.Errorf("create actions: %w", err)
		}
		log.Info("actions already registered")
	} else {
		log.Info("actions registered", zap.Int("count", len(actions)))
	}
	return nil
}

func isConflict(err error) bool {
	var statusErr *client.StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusConflict
}
