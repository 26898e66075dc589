package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
)

// BunActionRepository persists action providers and actions and serves the
// scheduler and provider views over action events. Rule and event CRUD goes
// through the generic record repository; everything that joins across the
// action tables lives here.
type BunActionRepository struct {
	db *bun.DB
}

// NewBunActionRepository constructs a repository backed by Bun.
func NewBunActionRepository(db *bun.DB) *BunActionRepository {
	return &BunActionRepository{db: db}
}

// CreateProvider inserts a new action provider. The password must already be
// hashed.
func (r *BunActionRepository) CreateProvider(ctx context.Context, provider *models.ActionProvider) error {
	if err := provider.ValidateForCreate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	provider.Touch(time.Now().UTC())

	if _, err := r.db.NewInsert().Model(provider).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: action provider %q already exists", ErrConflict, provider.Name)
		}
		return fmt.Errorf("insert action provider: %w", err)
	}
	return nil
}

// GetProviderByID fetches an action provider by id.
func (r *BunActionRepository) GetProviderByID(ctx context.Context, id models.ActionProviderID) (*models.ActionProvider, error) {
	provider := new(models.ActionProvider)
	err := r.db.NewSelect().Model(provider).Where("id = ?", int64(id)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query action provider: %w", err)
	}
	return provider, nil
}

// GetProviderByName fetches a live action provider for authentication.
func (r *BunActionRepository) GetProviderByName(ctx context.Context, name string) (*models.ActionProvider, error) {
	provider := new(models.ActionProvider)
	err := r.db.NewSelect().Model(provider).
		Where("name = ?", name).
		Where("deleted = ?", false).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query action provider: %w", err)
	}
	return provider, nil
}

// ListProviders returns all live action providers ordered by name.
func (r *BunActionRepository) ListProviders(ctx context.Context) ([]models.ActionProvider, error) {
	var providers []models.ActionProvider
	err := r.db.NewSelect().Model(&providers).
		Where("deleted = ?", false).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list action providers: %w", err)
	}
	if providers == nil {
		providers = []models.ActionProvider{}
	}
	return providers, nil
}

// SoftDeleteProvider tombstones an action provider.
func (r *BunActionRepository) SoftDeleteProvider(ctx context.Context, id models.ActionProviderID) error {
	_, err := r.db.NewUpdate().
		Model((*models.ActionProvider)(nil)).
		Set("deleted = ?", true).
		Set("last_change = ?", time.Now().UTC()).
		Where("id = ?", int64(id)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("soft delete action provider: %w", err)
	}
	return nil
}

// CreateAction inserts a single action.
func (r *BunActionRepository) CreateAction(ctx context.Context, action *models.Action) error {
	return r.CreateActions(ctx, []models.Action{*action})
}

// CreateActions inserts a batch of actions.
func (r *BunActionRepository) CreateActions(ctx context.Context, actions []models.Action) error {
	if len(actions) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range actions {
		if err := actions[i].ValidateForCreate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		actions[i].Touch(now)
	}

	if _, err := r.db.NewInsert().Model(&actions).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert actions: %w", err)
	}
	return nil
}

// GetActionByID fetches an action by id.
func (r *BunActionRepository) GetActionByID(ctx context.Context, id models.ActionID) (*models.Action, error) {
	action := new(models.Action)
	err := r.db.NewSelect().Model(action).Where("id = ?", int64(id)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query action: %w", err)
	}
	return action, nil
}

// ListActions returns all live actions ordered by name.
func (r *BunActionRepository) ListActions(ctx context.Context) ([]models.Action, error) {
	var actions []models.Action
	err := r.db.NewSelect().Model(&actions).
		Where("deleted = ?", false).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	if actions == nil {
		actions = []models.Action{}
	}
	return actions, nil
}

// ListActionsByProvider returns a provider's live actions.
func (r *BunActionRepository) ListActionsByProvider(ctx context.Context, providerID models.ActionProviderID) ([]models.Action, error) {
	var actions []models.Action
	err := r.db.NewSelect().Model(&actions).
		Where("action_provider_id = ?", int64(providerID)).
		Where("deleted = ?", false).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	if actions == nil {
		actions = []models.Action{}
	}
	return actions, nil
}

// ListRulesByUserAndProvider returns the user's live rules whose action
// belongs to the given provider.
func (r *BunActionRepository) ListRulesByUserAndProvider(ctx context.Context, userID models.UserID, providerID models.ActionProviderID) ([]models.ActionRule, error) {
	var rules []models.ActionRule
	err := r.db.NewSelect().Model(&rules).
		Where("ar.user_id = ?", int64(userID)).
		Where("ar.deleted = ?", false).
		Where("ar.action_id IN (SELECT id FROM action WHERE action_provider_id = ?)", int64(providerID)).
		Order("ar.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list action rules: %w", err)
	}
	if rules == nil {
		rules = []models.ActionRule{}
	}
	return rules, nil
}

// ListEventsByUserAndProvider returns the user's live events whose action
// belongs to the given provider.
func (r *BunActionRepository) ListEventsByUserAndProvider(ctx context.Context, userID models.UserID, providerID models.ActionProviderID) ([]models.ActionEvent, error) {
	var events []models.ActionEvent
	err := r.db.NewSelect().Model(&events).
		Where("ae.user_id = ?", int64(userID)).
		Where("ae.deleted = ?", false).
		Where("ae.action_id IN (SELECT id FROM action WHERE action_provider_id = ?)", int64(providerID)).
		Order("ae.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list action events: %w", err)
	}
	if events == nil {
		events = []models.ActionEvent{}
	}
	return events, nil
}

// CreateEventsIgnoreConflict bulk-inserts action events, silently skipping
// rows that collide with the (user_id, action_id, datetime) unique index.
// This is the scheduler's idempotency mechanism: conflicts are expected and
// must not be treated as errors on this call path.
func (r *BunActionRepository) CreateEventsIgnoreConflict(ctx context.Context, events []models.ActionEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for i := range events {
		if err := events[i].ValidateForCreate(); err != nil {
			return 0, fmt.Errorf("validation failed: %w", err)
		}
		events[i].Touch(now)
	}

	result, err := r.db.NewInsert().
		Model(&events).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert action events: %w", err)
	}
	inserted, _ := result.RowsAffected()
	return inserted, nil
}

// HasEnabledEvent reports whether at least one enabled, non-deleted event
// links the user to the provider. This is the authorization gate for
// providers acting on a user's behalf.
func (r *BunActionRepository) HasEnabledEvent(ctx context.Context, userID models.UserID, providerID models.ActionProviderID) (bool, error) {
	count, err := r.db.NewSelect().
		Table("action_event").
		Join("JOIN action ON action.id = action_event.action_id").
		Where("action.action_provider_id = ?", int64(providerID)).
		Where("action_event.user_id = ?", int64(userID)).
		Where("action_event.enabled = ?", true).
		Where("action_event.deleted = ?", false).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count linking events: %w", err)
	}
	return count > 0, nil
}

// EventsBelongToProvider reports whether every given event's action belongs
// to the provider.
func (r *BunActionRepository) EventsBelongToProvider(ctx context.Context, ids []models.ActionEventID, providerID models.ActionProviderID) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	raw := lo.Map(ids, func(id models.ActionEventID, _ int) int64 { return int64(id) })

	count, err := r.db.NewSelect().
		Table("action_event").
		Join("JOIN action ON action.id = action_event.action_id").
		Where("action_event.id IN (?)", bun.In(raw)).
		Where("action.action_provider_id = ?", int64(providerID)).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count provider events: %w", err)
	}
	return count == len(ids), nil
}

// CreatableActionRules returns every enabled, non-deleted rule joined with
// its action's create_before horizon.
func (r *BunActionRepository) CreatableActionRules(ctx context.Context) ([]models.CreatableActionRule, error) {
	var rules []models.CreatableActionRule
	err := r.db.NewSelect().
		Table("action_rule").
		Join("JOIN action ON action.id = action_rule.action_id").
		ColumnExpr("action_rule.id AS action_rule_id").
		ColumnExpr("action_rule.user_id AS user_id").
		ColumnExpr("action_rule.action_id AS action_id").
		ColumnExpr("action_rule.weekday AS weekday").
		ColumnExpr("action_rule.time AS time").
		ColumnExpr("action_rule.arguments AS arguments").
		ColumnExpr("action.create_before AS create_before").
		Where("action_rule.enabled = ?", true).
		Where("action_rule.deleted = ?", false).
		Scan(ctx, &rules)
	if err != nil {
		return nil, fmt.Errorf("query creatable action rules: %w", err)
	}
	if rules == nil {
		rules = []models.CreatableActionRule{}
	}
	return rules, nil
}

// DeletableActionEvents returns every non-deleted event joined with its
// action's delete_after expiry.
func (r *BunActionRepository) DeletableActionEvents(ctx context.Context) ([]models.DeletableActionEvent, error) {
	var events []models.DeletableActionEvent
	err := r.db.NewSelect().
		Table("action_event").
		Join("JOIN action ON action.id = action_event.action_id").
		ColumnExpr("action_event.id AS action_event_id").
		ColumnExpr("action_event.datetime AS datetime").
		ColumnExpr("action.delete_after AS delete_after").
		Where("action_event.deleted = ?", false).
		Scan(ctx, &events)
	if err != nil {
		return nil, fmt.Errorf("query deletable action events: %w", err)
	}
	if events == nil {
		events = []models.DeletableActionEvent{}
	}
	return events, nil
}

func (r *BunActionRepository) executableQuery(providerID models.ActionProviderID, dest *[]models.ExecutableActionEvent) *bun.SelectQuery {
	return r.db.NewSelect().
		Table("action_event").
		Join("JOIN action ON action.id = action_event.action_id").
		Join("JOIN action_provider ON action_provider.id = action.action_provider_id").
		Join("LEFT JOIN platform_credential ON platform_credential.platform_id = action_provider.platform_id"+
			" AND platform_credential.user_id = action_event.user_id"+
			" AND platform_credential.deleted = false").
		ColumnExpr("action_event.id AS action_event_id").
		ColumnExpr("action.name AS action_name").
		ColumnExpr("action_event.datetime AS datetime").
		ColumnExpr("action_event.arguments AS arguments").
		ColumnExpr("action_event.user_id AS user_id").
		ColumnExpr("platform_credential.username AS username").
		ColumnExpr("platform_credential.password AS password").
		Where("action_provider.id = ?", int64(providerID)).
		Where("action_event.enabled = ?", true).
		Where("action_event.deleted = ?", false)
}

// ExecutableEventsByProvider returns every executable event of the provider,
// outer-joined with the invoking user's platform credential.
func (r *BunActionRepository) ExecutableEventsByProvider(ctx context.Context, providerID models.ActionProviderID) ([]models.ExecutableActionEvent, error) {
	var events []models.ExecutableActionEvent
	if err := r.executableQuery(providerID, &events).Scan(ctx, &events); err != nil {
		return nil, fmt.Errorf("query executable action events: %w", err)
	}
	if events == nil {
		events = []models.ExecutableActionEvent{}
	}
	return events, nil
}

// ExecutableEventsByProviderTimespan returns the provider's executable
// events with datetime in [start, end], ordered by datetime ascending.
func (r *BunActionRepository) ExecutableEventsByProviderTimespan(ctx context.Context, providerID models.ActionProviderID, start, end time.Time) ([]models.ExecutableActionEvent, error) {
	var events []models.ExecutableActionEvent
	err := r.executableQuery(providerID, &events).
		Where("action_event.datetime BETWEEN ? AND ?", start, end).
		OrderExpr("action_event.datetime").
		Scan(ctx, &events)
	if err != nil {
		return nil, fmt.Errorf("query executable action events: %w", err)
	}
	if events == nil {
		events = []models.ExecutableActionEvent{}
	}
	return events, nil
}
