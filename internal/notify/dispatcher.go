// Package notify delivers donor-facing emails off the request path.
// Reconciliation and the scheduler hand events to the Dispatcher and
// move on; delivery happens on background workers, and a full queue
// drops the event rather than blocking a payment flow.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/email"
	"github.com/sowerhq/sower/internal/service"
	"github.com/sowerhq/sower/internal/telemetry"
)

var _ service.Notifier = (*Dispatcher)(nil)

// ProjectDirectory resolves project names for email copy.
type ProjectDirectory interface {
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
}

// Config holds dispatcher tuning knobs.
type Config struct {
	// QueueSize is the delivery buffer. A full buffer drops new events.
	QueueSize int

	// Workers is how many deliveries run concurrently.
	Workers int

	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration

	// ManageURL is the donor-facing page for pausing or cancelling,
	// included in failure and reminder emails. Optional.
	ManageURL string
}

// Dispatcher queues and delivers notification emails. It satisfies the
// notifier surface the services expect: enqueue methods never block.
type Dispatcher struct {
	emails   *email.Service
	projects ProjectDirectory
	config   Config
	logger   *slog.Logger

	queue chan delivery
	wg    sync.WaitGroup
	once  sync.Once
}

type delivery struct {
	template string
	send     func(ctx context.Context) error
}

// NewDispatcher creates a Dispatcher and starts its workers.
func NewDispatcher(emails *email.Service, projects ProjectDirectory, config Config, logger *slog.Logger) *Dispatcher {
	if config.QueueSize == 0 {
		config.QueueSize = 256
	}
	if config.Workers == 0 {
		config.Workers = 4
	}
	if config.SendTimeout == 0 {
		config.SendTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		emails:   emails,
		projects: projects,
		config:   config,
		logger:   logger,
		queue:    make(chan delivery, config.QueueSize),
	}

	for i := 0; i < config.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for item := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.SendTimeout)
		err := item.send(ctx)
		cancel()

		if err != nil {
			d.logger.Error("notification delivery failed",
				"template", item.template,
				"error", err,
			)
			if telemetry.Business != nil {
				telemetry.Business.EmailFailed.WithLabelValues(item.template).Inc()
			}
			continue
		}
		if telemetry.Business != nil {
			telemetry.Business.EmailSent.WithLabelValues(item.template).Inc()
		}
	}
}

// Close stops accepting events and waits for queued deliveries to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// submit enqueues a delivery without blocking. Events that arrive while
// the queue is full are dropped with a log line; donor email is best
// effort and must never stall reconciliation.
func (d *Dispatcher) submit(template string, send func(ctx context.Context) error) {
	select {
	case d.queue <- delivery{template: template, send: send}:
	default:
		d.logger.Warn("notification queue full, dropping event", "template", template)
	}
}

// PaymentSuccess sends a donation receipt.
func (d *Dispatcher) PaymentSuccess(payment *domain.Payment, sub *domain.Subscription) {
	if sub == nil || sub.DonorEmail == "" {
		return
	}

	ref := payment.ExternalReference
	amount := payment.Amount.StringFixed(2)
	currency := payment.Currency
	paidAt := time.Now().UTC()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}

	d.submit("payment_success", func(ctx context.Context) error {
		return d.emails.SendPaymentSuccess(ctx, email.PaymentSuccessEmail{
			Email:       sub.DonorEmail,
			DonorName:   sub.DonorName,
			ProjectName: d.projectName(ctx, sub.ProjectID),
			Amount:      amount,
			Currency:    currency,
			Reference:   ref,
			PaidAt:      paidAt,
		})
	})
}

// PaymentFailed tells the donor a charge did not go through.
func (d *Dispatcher) PaymentFailed(payment *domain.Payment, sub *domain.Subscription) {
	if sub == nil || sub.DonorEmail == "" {
		return
	}

	amount := payment.Amount.StringFixed(2)
	currency := payment.Currency
	reason := payment.FailureReason

	d.submit("payment_failed", func(ctx context.Context) error {
		return d.emails.SendPaymentFailed(ctx, email.PaymentFailedEmail{
			Email:       sub.DonorEmail,
			DonorName:   sub.DonorName,
			ProjectName: d.projectName(ctx, sub.ProjectID),
			Amount:      amount,
			Currency:    currency,
			Reason:      reason,
			ManageURL:   d.config.ManageURL,
		})
	})
}

// PaymentReminder warns the donor of an upcoming charge.
func (d *Dispatcher) PaymentReminder(sub *domain.Subscription) {
	if sub == nil || sub.DonorEmail == "" || sub.NextPaymentAt == nil {
		return
	}

	amount := sub.Amount.StringFixed(2)
	currency := sub.Currency
	nextPaymentAt := *sub.NextPaymentAt

	d.submit("payment_reminder", func(ctx context.Context) error {
		return d.emails.SendPaymentReminder(ctx, email.PaymentReminderEmail{
			Email:         sub.DonorEmail,
			DonorName:     sub.DonorName,
			ProjectName:   d.projectName(ctx, sub.ProjectID),
			Amount:        amount,
			Currency:      currency,
			NextPaymentAt: nextPaymentAt,
			ManageURL:     d.config.ManageURL,
		})
	})
}

// SubscriptionCancelled confirms the recurring donation has stopped.
func (d *Dispatcher) SubscriptionCancelled(sub *domain.Subscription) {
	if sub == nil || sub.DonorEmail == "" {
		return
	}

	d.submit("subscription_cancelled", func(ctx context.Context) error {
		return d.emails.SendSubscriptionCancelled(ctx, email.SubscriptionCancelledEmail{
			Email:       sub.DonorEmail,
			DonorName:   sub.DonorName,
			ProjectName: d.projectName(ctx, sub.ProjectID),
			CancelledAt: time.Now().UTC(),
		})
	})
}

// projectName resolves the project's display name, falling back to a
// generic label so a lookup failure never blocks delivery.
func (d *Dispatcher) projectName(ctx context.Context, projectID uuid.UUID) string {
	if d.projects == nil {
		return "your project"
	}
	project, err := d.projects.GetProject(ctx, projectID)
	if err != nil {
		d.logger.Warn("failed to resolve project for notification",
			"project_id", projectID,
			"error", err,
		)
		return "your project"
	}
	return project.Name
}
