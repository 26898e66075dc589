// Package scheduler materialises action rules into action events, expires
// stale events and garbage-collects tombstones. One invocation runs each
// phase once; cron or a systemd timer provides the cadence.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gaogaogoo/sport-log/internal/client"
	"github.com/gaogaogoo/sport-log/internal/config"
	"github.com/gaogaogoo/sport-log/internal/db/models"
)

// Scheduler drives the three maintenance phases against one server.
type Scheduler struct {
	cfg    *config.SchedulerConfig
	client *client.Client
	log    *zap.Logger
}

// New constructs a scheduler from its configuration.
func New(cfg *config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		client: client.NewAdmin(cfg.ServerURL, cfg.AdminPassword),
		log:    logger,
	}
}

// Run executes the three phases. Phases are independent: a failure is
// logged and the next phase still runs, so one bad rule cannot starve
// garbage collection.
func (s *Scheduler) Run(ctx context.Context) {
	now := time.Now().UTC()

	if err := s.createEvents(ctx, now); err != nil {
		s.log.Error("create action events", zap.Error(err))
	}
	if err := s.deleteExpiredEvents(ctx, now); err != nil {
		s.log.Error("delete expired action events", zap.Error(err))
	}
	if err := s.garbageCollect(ctx, now); err != nil {
		s.log.Error("garbage collection", zap.Error(err))
	}
}

// createEvents expands every enabled rule into concrete events inside its
// create_before horizon. Duplicates are dropped server-side.
func (s *Scheduler) createEvents(ctx context.Context, now time.Time) error {
	rules, err := s.client.GetCreatableActionRules(ctx)
	if err != nil {
		return err
	}

	var events []models.ActionEvent
	for _, rule := range rules {
		for _, datetime := range ExpandRule(rule, now) {
			events = append(events, models.ActionEvent{
				ID:        models.ActionEventID(models.RandomID()),
				UserID:    rule.UserID,
				ActionID:  rule.ActionID,
				Datetime:  datetime,
				Arguments: rule.Arguments,
				Enabled:   true,
			})
		}
	}
	if len(events) == 0 {
		s.log.Info("no action events to create")
		return nil
	}

	if err := s.client.CreateActionEvents(ctx, events); err != nil {
		return err
	}
	s.log.Info("action events submitted", zap.Int("count", len(events)))
	return nil
}

// deleteExpiredEvents removes events whose datetime plus the action's
// delete_after retention lies in the past.
func (s *Scheduler) deleteExpiredEvents(ctx context.Context, now time.Time) error {
	events, err := s.client.GetDeletableActionEvents(ctx)
	if err != nil {
		return err
	}

	var expired []models.ActionEventID
	for _, event := range events {
		// The retention boundary itself is already expired.
		keepUntil := event.Datetime.Add(time.Duration(event.DeleteAfter) * time.Millisecond)
		if !keepUntil.After(now) {
			expired = append(expired, event.ActionEventID)
		}
	}
	if len(expired) == 0 {
		return nil
	}

	if err := s.client.DeleteActionEvents(ctx, expired); err != nil {
		return err
	}
	s.log.Info("expired action events deleted", zap.Int("count", len(expired)))
	return nil
}

// garbageCollect hard-deletes tombstones older than the configured minimum
// age. Disabled when garbage_collection_min_days is zero.
func (s *Scheduler) garbageCollect(ctx context.Context, now time.Time) error {
	if s.cfg.GarbageCollectionMinDays <= 0 {
		return nil
	}

	cutoff := now.AddDate(0, 0, -s.cfg.GarbageCollectionMinDays)
	if err := s.client.GarbageCollection(ctx, cutoff); err != nil {
		return err
	}
	s.log.Info("garbage collection done", zap.Time("cutoff", cutoff))
	return nil
}

// ExpandRule returns the UTC datetimes at which the rule fires within
// [now, now + create_before]. A datetime equal to now is still emitted.
func ExpandRule(rule models.CreatableActionRule, now time.Time) []time.Time {
	ruleOffset, err := rule.Weekday.Offset()
	if err != nil {
		return nil
	}
	hour, minute, second, err := rule.Time.Clock()
	if err != nil {
		return nil
	}
	now = now.UTC()

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, time.UTC)

	offset := ruleOffset - models.DaysFromMonday(now.Weekday())
	if offset < 0 {
		offset += 7
	}
	candidate = candidate.AddDate(0, 0, offset)
	if candidate.Before(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}

	horizon := now.Add(time.Duration(rule.CreateBefore) * time.Millisecond)

	var datetimes []time.Time
	for !candidate.After(horizon) {
		datetimes = append(datetimes, candidate)
		candidate = candidate.AddDate(0, 0, 7)
	}
	return datetimes
}
