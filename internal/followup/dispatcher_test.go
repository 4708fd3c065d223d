package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/followup/internal/domain"
	"github.com/shaiso/followup/internal/telemetry"
)

func newTestDispatcher(repo *fakeRepo, notifier *fakeNotifier, clk *clock, opts ...func(*Config)) *Dispatcher {
	cfg := Config{
		Repo:     repo,
		Notifier: notifier,
		Logger:   telemetry.DiscardLogger(),
		Now:      clk.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewDispatcher(cfg)
}

// Сценарий: создан в T, интервал 10 минут.
// T+9 — не due, T+10 — письмо, T+15 — не due, T+20 — снова письмо.
func TestRunPass_EndToEndWalk(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(lead)
	notifier := newFakeNotifier()
	clk := &clock{}
	d := newTestDispatcher(repo, notifier, clk)
	ctx := context.Background()

	clk.Set(t0.Add(9 * time.Minute))
	res, err := d.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 0, notifier.total())
	assert.Nil(t, repo.get(lead.ID).LastContactedAt)

	clk.Set(t0.Add(10 * time.Minute))
	res, err = d.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, notifier.sentTo("a@x.com"))
	got := repo.get(lead.ID)
	require.NotNil(t, got.LastContactedAt)
	assert.Equal(t, t0.Add(10*time.Minute), *got.LastContactedAt)

	clk.Set(t0.Add(15 * time.Minute))
	res, err = d.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, notifier.sentTo("a@x.com"))

	clk.Set(t0.Add(20 * time.Minute))
	res, err = d.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, notifier.sentTo("a@x.com"))
	assert.Equal(t, t0.Add(20*time.Minute), *repo.get(lead.ID).LastContactedAt)
}

func TestRunPass_NonActiveLeadsNeverTouched(t *testing.T) {
	paused := domain.NewLead("paused@x.com", 1, t0)
	paused.Status = domain.LeadStatusPaused
	completed := domain.NewLead("done@x.com", 1, t0)
	completed.Status = domain.LeadStatusCompleted

	repo := newFakeRepo(paused, completed)
	notifier := newFakeNotifier()
	clk := &clock{now: t0.Add(365 * 24 * time.Hour)}
	d := newTestDispatcher(repo, notifier, clk)

	res, err := d.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Evaluated)
	assert.Equal(t, 0, notifier.total())
	assert.Nil(t, repo.get(paused.ID).LastContactedAt)
	assert.Nil(t, repo.get(completed.ID).LastContactedAt)
}

func TestProcessLead_SkipsNonActiveEvenIfFetched(t *testing.T) {
	lead := domain.NewLead("a@x.com", 1, t0)
	lead.Status = domain.LeadStatusPaused

	repo := newFakeRepo(lead)
	notifier := newFakeNotifier()
	d := newTestDispatcher(repo, notifier, &clock{now: t0})

	outcome, err := d.ProcessLead(context.Background(), lead, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 0, notifier.total())
	assert.Equal(t, 0, repo.updateCount(lead.ID))
}

func TestRunPass_IdempotentWithoutDelivery(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(lead)
	notifier := newFakeNotifier()
	notifier.fail["a@x.com"] = errors.New("smtp down")
	clk := &clock{now: t0.Add(12 * time.Minute)}
	d := newTestDispatcher(repo, notifier, clk)

	first, err := d.RunPass(context.Background())
	require.NoError(t, err)
	second, err := d.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Due)
	assert.Equal(t, first.Due, second.Due)
	assert.Equal(t, first.DeliveryFailed, second.DeliveryFailed)
}

func TestRunPass_CommitsOncePerDelivery(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(lead)
	notifier := newFakeNotifier()
	clk := &clock{now: t0.Add(10 * time.Minute)}
	d := newTestDispatcher(repo, notifier, clk)

	_, err := d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updateCount(lead.ID))

	// Повторные проходы внутри интервала не двигают last_contacted_at.
	for _, m := range []time.Duration{10, 11, 15, 19} {
		clk.Set(t0.Add(m*time.Minute + 30*time.Second))
		_, err := d.RunPass(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.updateCount(lead.ID))
	assert.Equal(t, 1, notifier.total())
}

func TestRunPass_DeliveryFailureLeavesStateUntouched(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(lead)
	notifier := newFakeNotifier()
	notifier.fail["a@x.com"] = errors.New("mailbox unavailable")
	clk := &clock{now: t0.Add(10 * time.Minute)}
	d := newTestDispatcher(repo, notifier, clk)

	res, err := d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeliveryFailed)
	assert.Nil(t, repo.get(lead.ID).LastContactedAt)

	// Следующий проход повторяет попытку.
	delete(notifier.fail, "a@x.com")
	clk.Set(t0.Add(11 * time.Minute))
	res, err = d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, t0.Add(11*time.Minute), *repo.get(lead.ID).LastContactedAt)
}

func TestRunPass_UpdateFailureDoesNotBlockOtherLeads(t *testing.T) {
	a := domain.NewLead("a@x.com", 10, t0)
	b := domain.NewLead("b@x.com", 10, t0)
	repo := newFakeRepo(a, b)
	repo.failWrite[a.ID] = errors.New("connection reset")
	notifier := newFakeNotifier()
	clk := &clock{now: t0.Add(10 * time.Minute)}
	d := newTestDispatcher(repo, notifier, clk)

	res, err := d.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.UpdateFailed)
	assert.Equal(t, 1, res.Sent)
	assert.Nil(t, repo.get(a.ID).LastContactedAt)
	require.NotNil(t, repo.get(b.ID).LastContactedAt)
	assert.Equal(t, t0.Add(10*time.Minute), *repo.get(b.ID).LastContactedAt)
}

// Письмо ушло, запись не удалась — следующий проход отправит ещё раз.
// Это принятая at-least-once семантика.
func TestRunPass_UpdateFailureResendsNextPass(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(lead)
	repo.failWrite[lead.ID] = errors.New("write timeout")
	notifier := newFakeNotifier()
	clk := &clock{now: t0.Add(10 * time.Minute)}
	d := newTestDispatcher(repo, notifier, clk)

	_, err := d.RunPass(context.Background())
	require.NoError(t, err)

	delete(repo.failWrite, lead.ID)
	clk.Set(t0.Add(11 * time.Minute))
	_, err = d.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, notifier.sentTo("a@x.com"))
	assert.Equal(t, 1, repo.updateCount(lead.ID))
}

func TestProcessLead_UpdateFailureWrapsError(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(lead)
	repo.failWrite[lead.ID] = errors.New("boom")
	d := newTestDispatcher(repo, newFakeNotifier(), &clock{now: t0})

	outcome, err := d.ProcessLead(context.Background(), lead, t0.Add(10*time.Minute))
	assert.Equal(t, OutcomeUpdateFailed, outcome)
	assert.ErrorIs(t, err, ErrUpdateFailed)
}

func TestRunPass_FetchFailureAbortsPass(t *testing.T) {
	repo := newFakeRepo(domain.NewLead("a@x.com", 1, t0))
	repo.listErr = errors.New("db unreachable")
	notifier := newFakeNotifier()
	d := newTestDispatcher(repo, notifier, &clock{now: t0.Add(time.Hour)})

	_, err := d.RunPass(context.Background())
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
	assert.Equal(t, 0, notifier.total())
}

func TestRunPass_NotifierTimeoutIsPerLead(t *testing.T) {
	a := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(a)
	notifier := newFakeNotifier()
	notifier.block = make(chan struct{}) // никогда не закрывается
	d := newTestDispatcher(repo, notifier, &clock{now: t0.Add(10 * time.Minute)}, func(c *Config) {
		c.OpTimeout = 20 * time.Millisecond
	})

	res, err := d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeliveryFailed)
	assert.Nil(t, repo.get(a.ID).LastContactedAt)
}

func TestRunPass_ExpiredContextSendsNothing(t *testing.T) {
	leads := []*domain.Lead{
		domain.NewLead("a@x.com", 10, t0),
		domain.NewLead("b@x.com", 10, t0),
		domain.NewLead("c@x.com", 10, t0),
	}
	repo := newFakeRepo(leads...)
	notifier := newFakeNotifier()
	d := newTestDispatcher(repo, notifier, &clock{now: t0.Add(10 * time.Minute)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, notifier.total())
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 0, res.DeliveryFailed)
	for _, l := range leads {
		assert.Nil(t, repo.get(l.ID).LastContactedAt)
	}
}

func TestRunPass_DeadlineMidPassDefersRemainingLeads(t *testing.T) {
	a := domain.NewLead("a@x.com", 10, t0)
	b := domain.NewLead("b@x.com", 10, t0)
	c := domain.NewLead("c@x.com", 10, t0)
	repo := newFakeRepo(a, b, c)
	notifier := newFakeNotifier()
	d := newTestDispatcher(repo, notifier, &clock{now: t0.Add(10 * time.Minute)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier.onSend = cancel

	res, err := d.RunPass(ctx)
	require.NoError(t, err)

	// Отправленное письмо фиксируется, остальные ждут следующего прохода.
	assert.Equal(t, 1, notifier.total())
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 0, res.DeliveryFailed)
	assert.Equal(t, t0.Add(10*time.Minute), *repo.get(a.ID).LastContactedAt)
	assert.Nil(t, repo.get(b.ID).LastContactedAt)
	assert.Nil(t, repo.get(c.ID).LastContactedAt)

	notifier.onSend = nil
	res, err = d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, notifier.sentTo("b@x.com"))
	assert.Equal(t, 1, notifier.sentTo("a@x.com"))
}

func TestRunPass_InvalidIntervalSkipped(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	lead.EmailInterval = 0
	repo := newFakeRepo(lead)
	notifier := newFakeNotifier()
	d := newTestDispatcher(repo, notifier, &clock{now: t0.Add(time.Hour)})

	res, err := d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, notifier.total())
}

func TestRunPass_ConcurrentLeads(t *testing.T) {
	var leads []*domain.Lead
	for _, addr := range []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"} {
		leads = append(leads, domain.NewLead(addr, 5, t0))
	}
	repo := newFakeRepo(leads...)
	notifier := newFakeNotifier()
	d := newTestDispatcher(repo, notifier, &clock{now: t0.Add(5 * time.Minute)}, func(c *Config) {
		c.Concurrency = 3
	})

	res, err := d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Sent)
	for _, l := range leads {
		assert.Equal(t, 1, notifier.sentTo(l.Email))
		assert.Equal(t, 1, repo.updateCount(l.ID))
	}
}

func TestRunPass_PublishesAndRecordsMetrics(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(lead)
	pub := &fakePublisher{}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	d := newTestDispatcher(repo, newFakeNotifier(), &clock{now: t0.Add(10 * time.Minute)}, func(c *Config) {
		c.Publisher = pub
		c.Metrics = metrics
	})

	res, err := d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []uuid.UUID{lead.ID}, pub.events)
}

func TestRunPass_PublishFailureIsNotFatal(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)
	repo := newFakeRepo(lead)
	pub := &fakePublisher{err: errors.New("channel closed")}
	d := newTestDispatcher(repo, newFakeNotifier(), &clock{now: t0.Add(10 * time.Minute)}, func(c *Config) {
		c.Publisher = pub
	})

	res, err := d.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.NotNil(t, repo.get(lead.ID).LastContactedAt)
}

func TestFollowUpMessage(t *testing.T) {
	lead := domain.NewLead("a@x.com", 10, t0)

	msg, err := FollowUpMessage(lead)
	require.NoError(t, err)
	assert.Equal(t, "Pool Service Follow-up", msg.Subject)
	assert.Contains(t, msg.Body, "schedule a consultation")
	assert.Contains(t, msg.Body, "a@x.com")

	welcome, err := WelcomeMessage(lead)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Pool Service", welcome.Subject)
}
