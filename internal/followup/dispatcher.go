package followup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/followup/internal/domain"
	"github.com/shaiso/followup/internal/telemetry"
)

// Default configuration values.
const (
	defaultOpTimeout   = 30 * time.Second
	defaultConcurrency = 1
)

// LeadRepository — операции хранилища, нужные рассылке.
type LeadRepository interface {
	ListByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error)
	UpdateLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Notifier доставляет письмо на адрес. Любая ошибка — неудачная доставка.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EventPublisher публикует событие об успешном контакте.
type EventPublisher interface {
	PublishLeadContacted(ctx context.Context, leadID uuid.UUID, email string, at time.Time) error
}

// Outcome — результат обработки одного lead'а в проходе.
type Outcome string

const (
	OutcomeNotDue         Outcome = "not_due"
	OutcomeSent           Outcome = "sent"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeUpdateFailed   Outcome = "update_failed"
	OutcomeSkipped        Outcome = "skipped"
)

// PassResult — итоги одного прохода.
type PassResult struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Evaluated      int           `json:"evaluated"`
	Due            int           `json:"due"`
	Sent           int           `json:"sent"`
	DeliveryFailed int           `json:"delivery_failed"`
	UpdateFailed   int           `json:"update_failed"`
	Skipped        int           `json:"skipped"`
}

func (r *PassResult) add(o Outcome) {
	switch o {
	case OutcomeSkipped:
		r.Skipped++
		return
	case OutcomeNotDue:
		r.Evaluated++
		return
	}

	r.Evaluated++
	r.Due++
	switch o {
	case OutcomeSent:
		r.Sent++
	case OutcomeDeliveryFailed:
		r.DeliveryFailed++
	case OutcomeUpdateFailed:
		r.UpdateFailed++
	}
}

// Dispatcher выполняет проходы рассылки.
type Dispatcher struct {
	repo        LeadRepository
	notifier    Notifier
	publisher   EventPublisher
	metrics     *telemetry.Metrics
	logger      *slog.Logger
	opTimeout   time.Duration
	concurrency int
	now         func() time.Time
}

// Config — конфигурация Dispatcher.
type Config struct {
	Repo      LeadRepository
	Notifier  Notifier
	Publisher EventPublisher     // опционально
	Metrics   *telemetry.Metrics // опционально
	Logger    *slog.Logger

	// OpTimeout ограничивает каждую I/O операцию: выборку, отправку, запись
	// (default: 30s).
	OpTimeout time.Duration

	// Concurrency — сколько lead'ов обрабатывается параллельно внутри прохода
	// (default: 1).
	Concurrency int

	// Now — источник времени (default: time.Now).
	Now func() time.Time
}

// NewDispatcher создаёт новый Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		repo:        cfg.Repo,
		notifier:    cfg.Notifier,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		logger:      logger,
		opTimeout:   opTimeout,
		concurrency: concurrency,
		now:         now,
	}
}

// RunPass выполняет один проход рассылки.
//
// 1. Загружает все active leads
// 2. Для каждого проверяет due
// 3. Отправляет письмо due-lead'ам
// 4. После успешной доставки фиксирует last_contacted_at
//
// Ошибка возвращается только если не удалось получить список leads.
// Ошибки отдельных leads логируются и попадают в PassResult.
func (d *Dispatcher) RunPass(ctx context.Context) (PassResult, error) {
	start := time.Now()
	now := d.now().UTC()
	result := PassResult{ID: uuid.NewString(), StartedAt: now}
	logger := telemetry.WithPassID(d.logger, result.ID)
	ctx = telemetry.WithLogger(ctx, logger)

	fetchCtx, cancel := context.WithTimeout(ctx, d.opTimeout)
	leads, err := d.repo.ListByStatus(fetchCtx, domain.LeadStatusActive)
	cancel()
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	logger.Debug("fetched active leads", "count", len(leads))

	var (
		mu       sync.Mutex
		g        errgroup.Group
		seen     = make(map[uuid.UUID]struct{}, len(leads))
		deferred int
	)
	g.SetLimit(d.concurrency)

	// deferLead откладывает lead до следующего прохода: дедлайн прохода истёк.
	deferLead := func() {
		mu.Lock()
		result.add(OutcomeSkipped)
		deferred++
		mu.Unlock()
	}

	for i := range leads {
		lead := &leads[i]

		// Один lead — одна операция за проход.
		if _, dup := seen[lead.ID]; dup {
			continue
		}
		seen[lead.ID] = struct{}{}

		if ctx.Err() != nil {
			deferLead()
			continue
		}

		g.Go(func() error {
			// g.Go мог ждать свободного слота дольше дедлайна.
			if ctx.Err() != nil {
				deferLead()
				return nil
			}

			outcome, err := d.ProcessLead(ctx, lead, now)
			if err != nil {
				telemetry.WithLeadID(logger, lead.ID.String()).Error("failed to process lead",
					"email", lead.Email,
					"outcome", outcome,
					"error", err,
				)
			}

			mu.Lock()
			result.add(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)

	if deferred > 0 {
		logger.Warn("pass deadline reached, remaining leads deferred to next pass",
			"deferred", deferred,
			"error", ctx.Err(),
		)
	}

	logger.Info("follow-up pass completed",
		"active", len(leads),
		"due", result.Due,
		"sent", result.Sent,
		"delivery_failed", result.DeliveryFailed,
		"update_failed", result.UpdateFailed,
		"skipped", result.Skipped,
	)

	return result, nil
}

// ProcessLead обрабатывает один lead на момент now.
//
// Возвращает Outcome и ошибку для неудачных исходов. Состояние lead'а
// меняется только после успешной доставки.
func (d *Dispatcher) ProcessLead(ctx context.Context, lead *domain.Lead, now time.Time) (Outcome, error) {
	if !lead.IsActive() {
		return OutcomeSkipped, nil
	}
	if lead.EmailInterval <= 0 {
		return OutcomeSkipped, fmt.Errorf("%w: %d", ErrInvalidInterval, lead.EmailInterval)
	}

	due := IsLeadDue(lead, now)
	d.metrics.LeadEvaluated(due)
	if !due {
		return OutcomeNotDue, nil
	}

	msg, err := FollowUpMessage(lead)
	if err != nil {
		d.metrics.DeliveryFailed()
		return OutcomeDeliveryFailed, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opTimeout)
	err = d.notifier.Send(sendCtx, lead.Email, msg.Subject, msg.Body)
	cancel()
	if err != nil {
		d.metrics.DeliveryFailed()
		return OutcomeDeliveryFailed, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	// Отмена прохода не должна оставить отправленное письмо без записи.
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opTimeout)
	err = d.repo.UpdateLastContacted(updateCtx, lead.ID, now)
	cancel()
	if err != nil {
		d.metrics.UpdateFailed()
		return OutcomeUpdateFailed, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	lead.RecordContact(now)
	d.metrics.EmailSent()

	logger := telemetry.FromContext(ctx, d.logger)
	logger.Info("follow-up sent",
		"lead_id", lead.ID,
		"email", lead.Email,
		"next_due_at", NextDueAt(lead),
	)

	if d.publisher != nil {
		if err := d.publisher.PublishLeadContacted(ctx, lead.ID, lead.Email, now); err != nil {
			// Не фатально: контакт уже записан в БД.
			logger.Warn("failed to publish lead.contacted",
				"lead_id", lead.ID,
				"error", err,
			)
		}
	}

	return OutcomeSent, nil
}

// IsFetchError сообщает, что проход прерван на этапе выборки.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}
