package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ducnx/licgate/internal/model"
	"github.com/ducnx/licgate/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	Destination string
	Text        string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (f *fakeSender) Send(destination, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.sent = append(f.sent, sentMessage{Destination: destination, Text: text})
	return true
}

type fakeMailer struct {
	sent []sentMessage
	err  error
}

func (f *fakeMailer) SendExpiryNotice(toEmail, name, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Destination: toEmail, Text: body})
	return nil
}

type notifierEnv struct {
	*licenseEnv
	ruleRepo  *repository.RuleRepository
	auditRepo *repository.AuditRepository
	sender    *fakeSender
	mailer    *fakeMailer
}

func newNotifierEnv(t *testing.T) *notifierEnv {
	t.Helper()

	base := newLicenseEnv(t)
	return &notifierEnv{
		licenseEnv: base,
		ruleRepo:   repository.NewRuleRepository(base.db),
		auditRepo:  repository.NewAuditRepository(base.db),
		sender:     &fakeSender{},
		mailer:     &fakeMailer{},
	}
}

func (e *notifierEnv) notifier(hour int) *Notifier {
	return NewNotifier(e.subRepo, e.ruleRepo, e.auditRepo, e.sender, e.mailer, e.clk, hour)
}

func (e *notifierEnv) enableRule(t *testing.T, emailFallback bool) {
	t.Helper()

	rule := model.DefaultNotificationRule()
	rule.Enabled = true
	rule.EmailFallback = emailFallback
	require.NoError(t, e.ruleRepo.Upsert(rule))
}

func TestNotifierCohortSelection(t *testing.T) {
	env := newNotifierEnv(t)
	env.enableRule(t, false)
	now := env.clk.Now()

	// Exactly two days out and exactly one day past get notified
	env.seedSubscription(t, "soon@example.com", model.StatusActive, future(env.clk, 48*time.Hour), 4)
	env.seedSubscription(t, "gone@example.com", model.StatusExpired, future(env.clk, -24*time.Hour), 4)

	// Everything else stays quiet: expiring today, expiring next week,
	// and a cohort member with no phone on file
	env.seedSubscription(t, "today@example.com", model.StatusActive, &now, 4)
	env.seedSubscription(t, "later@example.com", model.StatusActive, future(env.clk, 7*24*time.Hour), 4)

	// 35 hours out: inside a rolling 48-hour window, but landing on
	// tomorrow's calendar day. Membership is a date match, not a window,
	// so this one is skipped today and picked up on tomorrow's run.
	env.seedSubscription(t, "boundary@example.com", model.StatusActive, future(env.clk, 35*time.Hour), 4)
	silent := env.seedSubscription(t, "nophone@example.com", model.StatusActive, future(env.clk, 48*time.Hour), 4)
	require.NoError(t, env.db.Model(silent).Update("phone", "").Error)

	require.NoError(t, env.notifier(9).RunOnce(now))

	require.Len(t, env.sender.sent, 2)
	assert.Contains(t, env.sender.sent[0].Text, "soon")
	assert.Contains(t, env.sender.sent[0].Text, "expires in 2 days")
	assert.Contains(t, env.sender.sent[1].Text, "gone")
	assert.Contains(t, env.sender.sent[1].Text, "has expired")
	for _, msg := range env.sender.sent {
		assert.NotContains(t, msg.Text, "boundary")
	}

	// One summary audit entry per non-empty cohort
	assert.Equal(t, int64(2), env.auditCount(t, model.AuditInfo, model.AuditActionNotifyRun))
}

func TestNotifierDisabledRuleSkipsRun(t *testing.T) {
	env := newNotifierEnv(t)
	// Default rule is disabled; nothing seeded in the rules table either
	env.seedSubscription(t, "soon@example.com", model.StatusActive, future(env.clk, 48*time.Hour), 4)

	require.NoError(t, env.notifier(9).RunOnce(env.clk.Now()))
	assert.Empty(t, env.sender.sent)
}

func TestNotifierEmailFallback(t *testing.T) {
	env := newNotifierEnv(t)
	env.enableRule(t, true)
	env.sender.fail = true

	env.seedSubscription(t, "soon@example.com", model.StatusActive, future(env.clk, 48*time.Hour), 4)

	require.NoError(t, env.notifier(9).RunOnce(env.clk.Now()))

	assert.Empty(t, env.sender.sent)
	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, "soon@example.com", env.mailer.sent[0].Destination)
	assert.Contains(t, env.mailer.sent[0].Text, "expires in 2 days")
}

func TestNotifierNoFallbackWhenDisabled(t *testing.T) {
	env := newNotifierEnv(t)
	env.enableRule(t, false)
	env.sender.fail = true

	env.seedSubscription(t, "soon@example.com", model.StatusActive, future(env.clk, 48*time.Hour), 4)

	require.NoError(t, env.notifier(9).RunOnce(env.clk.Now()))
	assert.Empty(t, env.mailer.sent)
}

func TestNotifierFallbackFailureIsContained(t *testing.T) {
	env := newNotifierEnv(t)
	env.enableRule(t, true)
	env.sender.fail = true
	env.mailer.err = errors.New("smtp down")

	env.seedSubscription(t, "soon@example.com", model.StatusActive, future(env.clk, 48*time.Hour), 4)

	// Both channels failing must not surface as a run error
	require.NoError(t, env.notifier(9).RunOnce(env.clk.Now()))
}

func TestNotifierNextRun(t *testing.T) {
	env := newNotifierEnv(t)
	n := env.notifier(9)

	// Fake clock starts at 12:00, so 09:00 has passed: next run is tomorrow
	now := env.clk.Now()
	next := n.nextRun(now)
	assert.Equal(t, now.AddDate(0, 0, 1).Day(), next.Day())
	assert.Equal(t, 9, next.Hour())

	// Before the hour, the run stays on the same day
	morning := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, time.UTC)
	next = n.nextRun(morning)
	assert.Equal(t, morning.Day(), next.Day())
	assert.Equal(t, 9, next.Hour())
}
