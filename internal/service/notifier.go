package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ducnx/licgate/internal/clock"
	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
)

// MessageSender delivers one chat message, best effort. The messaging
// session implements this; it reports false instead of raising faults.
type MessageSender interface {
	Send(destination, text string) bool
}

// FallbackMailer delivers a notice over email when chat delivery fails
type FallbackMailer interface {
	SendExpiryNotice(toEmail, name, body string) error
}

// Notifier runs the daily expiry-notification batch: it queries the
// 48-hours-out and just-expired cohorts, renders the configured templates
// and dispatches through the messaging session. It never mutates device
// bindings.
type Notifier struct {
	subRepo   *repository.SubscriptionRepository
	ruleRepo  *repository.RuleRepository
	auditRepo *repository.AuditRepository
	sender    MessageSender
	mailer    FallbackMailer // may be nil
	clk       clock.Clock
	hour      int
}

func NewNotifier(
	subRepo *repository.SubscriptionRepository,
	ruleRepo *repository.RuleRepository,
	auditRepo *repository.AuditRepository,
	sender MessageSender,
	mailer FallbackMailer,
	clk clock.Clock,
	hour int,
) *Notifier {
	return &Notifier{
		subRepo:   subRepo,
		ruleRepo:  ruleRepo,
		auditRepo: auditRepo,
		sender:    sender,
		mailer:    mailer,
		clk:       clk,
		hour:      hour,
	}
}

// RunOnce executes a single notification run for the given time.
// Exposed so tests can drive a run without the wall-clock loop.
func (n *Notifier) RunOnce(now time.Time) error {
	rule, err := n.ruleRepo.Get()
	if err != nil {
		return fmt.Errorf("failed to load notification rule: %w", err)
	}
	if !rule.Enabled {
		log.Println("🔕 Notifications disabled, skipping run")
		return nil
	}

	// Cohort membership is an exact calendar-day match, not a rolling
	// window: a subscription expiring in 47 hours across a day boundary
	// is picked up on the following run.
	n.runCohort("reminder", rule.ReminderTemplate, rule, now.AddDate(0, 0, 2))
	n.runCohort("expired", rule.ExpiredTemplate, rule, now.AddDate(0, 0, -1))
	return nil
}

// runCohort notifies every member of one cohort. A single recipient's
// failure never stops the rest of the batch.
func (n *Notifier) runCohort(name, tmpl string, rule *model.NotificationRule, day time.Time) {
	subs, err := n.subRepo.FindExpiringOn(day)
	if err != nil {
		log.Printf("⚠️  Failed to query %s cohort: %v", name, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	sent := 0
	for _, sub := range subs {
		displayName := NameFromContactKey(sub.ContactKey)
		body := RenderTemplate(tmpl, displayName, sub.Plan, string(sub.Status))

		if n.sender.Send(sub.Phone, body) {
			sent++
			continue
		}

		log.Printf("⚠️  Chat delivery failed for %s", sub.ContactKey)
		if rule.EmailFallback && n.mailer != nil {
			if err := n.mailer.SendExpiryNotice(sub.ContactKey, displayName, body); err != nil {
				log.Printf("⚠️  Email fallback failed for %s: %v", sub.ContactKey, err)
			} else {
				sent++
			}
		}
	}

	n.auditRepo.Append(model.AuditInfo, model.AuditActionNotifyRun, "",
		fmt.Sprintf("%s cohort: %d attempted, %d delivered", name, len(subs), sent))
	log.Printf("📣 Notification run (%s): %d attempted, %d delivered", name, len(subs), sent)
}

// Run fires RunOnce every day at the configured hour until the context
// is cancelled
func (n *Notifier) Run(ctx context.Context) {
	for {
		now := n.clk.Now()
		next := n.nextRun(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := n.RunOnce(n.clk.Now()); err != nil {
				log.Printf("⚠️  Notification run failed: %v", err)
			}
		}
	}
}

// nextRun returns the next occurrence of the configured hour
func (n *Notifier) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), n.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
