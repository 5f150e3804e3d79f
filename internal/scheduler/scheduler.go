// Package scheduler runs the daily maintenance sweeps: payment
// reminders ahead of upcoming charges, renewal charges for
// custom-interval subscriptions, and expiry of subscriptions whose
// charges have stopped settling.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/service"
	"github.com/sowerhq/sower/internal/telemetry"
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
}

// Config holds scheduler tuning knobs. Hours are in the scheduler's
// location (UTC unless Location is set).
type Config struct {
	// TickInterval is how often the scheduler checks whether a sweep
	// is due. Default: 1 minute.
	TickInterval time.Duration

	// ReminderHour is the hour of day the reminder sweep runs. Default: 9.
	ReminderHour int

	// ChargeHour is the hour of day the renewal charge sweep runs. Default: 1.
	ChargeHour int

	// ExpiryHour is the hour of day the expiry sweep runs. Default: 0.
	ExpiryHour int

	// ReminderWindow is how far ahead the reminder sweep looks. Default: 72h.
	ReminderWindow time.Duration

	// GracePeriod is how long past its next payment date an ACTIVE
	// subscription may sit before the expiry sweep retires it. Default: 7 days.
	GracePeriod time.Duration

	// Location resolves sweep hours. Default: UTC.
	Location *time.Location
}

// Scheduler triggers the daily sweeps. Each sweep runs at most once per
// calendar day, at its configured hour; a restart later in the day picks
// up sweeps that have not run yet.
type Scheduler struct {
	subscriptions service.SubscriptionService
	reconcile     service.ReconcileService
	notifier      service.Notifier
	store         Store
	config        Config
	logger        *slog.Logger

	// now is replaceable in tests
	now func() time.Time

	lastReminder string
	lastCharge   string
	lastExpiry   string
}

// New creates a Scheduler.
func New(subscriptions service.SubscriptionService, reconcile service.ReconcileService, notifier service.Notifier, store Store, config Config, logger *slog.Logger) *Scheduler {
	if config.TickInterval == 0 {
		config.TickInterval = time.Minute
	}
	if config.ReminderHour == 0 {
		config.ReminderHour = 9
	}
	if config.ChargeHour == 0 {
		config.ChargeHour = 1
	}
	if config.ReminderWindow == 0 {
		config.ReminderWindow = 72 * time.Hour
	}
	if config.GracePeriod == 0 {
		config.GracePeriod = 7 * 24 * time.Hour
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = service.NopNotifier{}
	}

	return &Scheduler{
		subscriptions: subscriptions,
		reconcile:     reconcile,
		notifier:      notifier,
		store:         store,
		config:        config,
		logger:        logger,
		now:           time.Now,
	}
}

// Start runs the scheduler until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler starting",
		"tick_interval", s.config.TickInterval,
		"reminder_hour", s.config.ReminderHour,
		"charge_hour", s.config.ChargeHour,
		"expiry_hour", s.config.ExpiryHour,
	)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs any sweep whose hour has arrived and which has not run today.
// Sweeps run sequentially; they share the database and none is latency
// sensitive.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().In(s.config.Location)
	day := now.Format("2006-01-02")

	if now.Hour() >= s.config.ExpiryHour && s.lastExpiry != day {
		s.lastExpiry = day
		if _, err := s.RunExpirySweep(ctx); err != nil {
			s.logger.Error("expiry sweep failed", "error", err)
		}
	}

	if now.Hour() >= s.config.ChargeHour && s.lastCharge != day {
		s.lastCharge = day
		if _, err := s.RunChargeSweep(ctx); err != nil {
			s.logger.Error("charge sweep failed", "error", err)
		}
	}

	if now.Hour() >= s.config.ReminderHour && s.lastReminder != day {
		s.lastReminder = day
		if _, err := s.RunReminderSweep(ctx); err != nil {
			s.logger.Error("reminder sweep failed", "error", err)
		}
	}
}

// RunReminderSweep notifies donors whose next charge falls within the
// reminder window. Returns how many reminders were sent. Per-donor
// failures are logged and skipped.
func (s *Scheduler) RunReminderSweep(ctx context.Context) (int, error) {
	done := s.observeSweep("reminder")
	defer done()

	due, err := s.subscriptions.ListDueWithin(ctx, s.config.ReminderWindow)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		sub := &due[i]
		s.notifier.PaymentReminder(sub)
		if err := s.store.CreateNotification(ctx, reminderNotification(sub)); err != nil {
			s.logger.Error("failed to record reminder notification",
				"subscription_id", sub.ID,
				"error", err,
			)
			continue
		}
		sent++
		if telemetry.Business != nil {
			telemetry.Business.RemindersSent.Inc()
		}
	}

	s.logger.Info("reminder sweep complete", "due", len(due), "sent", sent)
	return sent, nil
}

// RunChargeSweep raises renewal charges for custom-interval
// subscriptions that are past due.
func (s *Scheduler) RunChargeSweep(ctx context.Context) (int, error) {
	done := s.observeSweep("charge")
	defer done()

	charged, err := s.reconcile.ChargeDueSubscriptions(ctx)
	if err != nil {
		return 0, err
	}

	if telemetry.Business != nil {
		telemetry.Business.RenewalsCharged.Add(float64(charged))
	}
	s.logger.Info("charge sweep complete", "charged", charged)
	return charged, nil
}

// RunExpirySweep retires ACTIVE subscriptions whose next payment is
// more than the grace period overdue.
func (s *Scheduler) RunExpirySweep(ctx context.Context) (int64, error) {
	done := s.observeSweep("expiry")
	defer done()

	expired, err := s.subscriptions.ExpireOverdue(ctx, s.config.GracePeriod)
	if err != nil {
		return 0, err
	}

	if telemetry.Business != nil && expired > 0 {
		telemetry.Business.SubscriptionsExpired.Add(float64(expired))
	}
	s.logger.Info("expiry sweep complete", "expired", expired)
	return expired, nil
}

func (s *Scheduler) observeSweep(name string) func() {
	start := s.now()
	return func() {
		if telemetry.Business != nil {
			telemetry.Business.SweepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
	}
}

func reminderNotification(sub *domain.Subscription) *domain.Notification {
	when := "soon"
	if sub.NextPaymentAt != nil {
		when = "on " + sub.NextPaymentAt.Format("2 January 2006")
	}
	return &domain.Notification{
		UserID:  sub.UserID,
		Type:    domain.NotificationPaymentReminder,
		Title:   "Upcoming donation",
		Message: fmt.Sprintf("Your donation of %s %s will be charged %s.", sub.Amount.StringFixed(2), sub.Currency, when),
	}
}
