package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/followup/internal/followup"
	"github.com/shaiso/followup/internal/lock"
	"github.com/shaiso/followup/internal/telemetry"
)

// Ошибки Loop.
var (
	// ErrBusy — предыдущий проход ещё выполняется, тик пропущен.
	ErrBusy = errors.New("pass already running")

	// ErrLockHeld — проход выполняет другая реплика.
	ErrLockHeld = errors.New("pass lock held by another instance")

	// ErrAlreadyStarted — Start вызван повторно.
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrStopped — Loop остановлен, новые проходы не запускаются.
	ErrStopped = errors.New("scheduler stopped")
)

const (
	defaultPassTimeout = 10 * time.Minute

	// DefaultReleaseTimeout ограничивает освобождение блокировки прохода.
	DefaultReleaseTimeout = 10 * time.Second
)

// LockTTL — минимальный TTL блокировки с истечением (Redis) для прохода.
//
// Запись last_contacted_at после отправки может идти до opTimeout уже после
// дедлайна прохода, а затем ещё releaseTimeout занимает освобождение.
func LockTTL(passTimeout, opTimeout time.Duration) time.Duration {
	if passTimeout <= 0 {
		passTimeout = defaultPassTimeout
	}
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return passTimeout + opTimeout + DefaultReleaseTimeout
}

// Runner выполняет один проход. Реализация: followup.Dispatcher.
type Runner interface {
	RunPass(ctx context.Context) (followup.PassResult, error)
}

// Config — конфигурация Loop.
type Config struct {
	Runner Runner
	Locker lock.Locker // default: lock.Noop

	// Schedule — cron-выражение (default: "@every 1m").
	Schedule string

	// PassTimeout — верхняя граница длительности прохода (default: 10m).
	PassTimeout time.Duration

	// RunOnStart — выполнить проход сразу после Start, не дожидаясь тика.
	RunOnStart bool

	// ReleaseTimeout ограничивает Release блокировки (default: 10s).
	ReleaseTimeout time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Loop — планировщик проходов рассылки.
type Loop struct {
	runner         Runner
	locker         lock.Locker
	spec           string
	schedule       cron.Schedule
	passTimeout    time.Duration
	releaseTimeout time.Duration
	runOnStart     bool
	metrics        *telemetry.Metrics
	logger         *slog.Logger

	// busy удерживается на время прохода.
	busy sync.Mutex

	mu      sync.Mutex
	cron    *cron.Cron
	baseCtx context.Context
	started bool
	stopped bool
	last    *followup.PassResult
	wg      sync.WaitGroup
}

// New создаёт Loop. Возвращает ошибку для некорректного расписания.
func New(cfg Config) (*Loop, error) {
	if cfg.Runner == nil {
		return nil, errors.New("scheduler: runner is required")
	}

	spec := cfg.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}

	locker := cfg.Locker
	if locker == nil {
		locker = lock.Noop{}
	}

	passTimeout := cfg.PassTimeout
	if passTimeout <= 0 {
		passTimeout = defaultPassTimeout
	}

	releaseTimeout := cfg.ReleaseTimeout
	if releaseTimeout <= 0 {
		releaseTimeout = DefaultReleaseTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		runner:         cfg.Runner,
		locker:         locker,
		spec:           spec,
		schedule:       schedule,
		passTimeout:    passTimeout,
		releaseTimeout: releaseTimeout,
		runOnStart:     cfg.RunOnStart,
		metrics:        cfg.Metrics,
		logger:         logger,
	}, nil
}

// Start запускает периодические проходы. Не блокирует.
//
// ctx задаёт значения для проходов; его отмена не прерывает текущий проход.
// Для остановки используется Stop.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrStopped
	}
	if l.started {
		return ErrAlreadyStarted
	}

	cl := cronLogger{logger: l.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	c.Schedule(l.schedule, cron.FuncJob(l.tick))

	l.cron = c
	l.baseCtx = ctx
	l.started = true

	c.Start()

	if l.runOnStart {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.tick()
		}()
	}

	l.logger.Info("scheduler started", "schedule", l.spec, "pass_timeout", l.passTimeout)
	return nil
}

// Stop останавливает тики и дожидается завершения текущего прохода.
// Если ctx истекает раньше, возвращает ctx.Err(); проход при этом
// продолжает выполняться до конца.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	c := l.cron
	l.mu.Unlock()

	l.logger.Info("stopping scheduler...")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if c != nil {
			<-c.Stop().Done()
		}
		l.wg.Wait()
		// Ждём ручной проход, запущенный через Tick.
		l.busy.Lock()
		l.busy.Unlock()
	}()

	select {
	case <-done:
		l.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for in-flight pass: %w", ctx.Err())
	}
}

// Tick выполняет один проход синхронно.
//
// Если проход уже идёт, возвращает ErrBusy сразу, не дожидаясь его.
// Отмена ctx не прерывает начатый проход; его ограничивает PassTimeout.
func (l *Loop) Tick(ctx context.Context) (followup.PassResult, error) {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return followup.PassResult{}, ErrStopped
	}

	if !l.busy.TryLock() {
		l.metrics.ObservePass(telemetry.PassSkipped, 0)
		return followup.PassResult{}, ErrBusy
	}
	defer l.busy.Unlock()

	l.mu.Lock()
	stopped = l.stopped
	l.mu.Unlock()
	if stopped {
		return followup.PassResult{}, ErrStopped
	}

	passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.passTimeout)
	defer cancel()

	release, ok, err := l.locker.TryAcquire(passCtx)
	if err != nil {
		l.metrics.ObservePass(telemetry.PassFailed, 0)
		return followup.PassResult{}, fmt.Errorf("acquire pass lock: %w", err)
	}
	if !ok {
		l.metrics.ObservePass(telemetry.PassSkipped, 0)
		return followup.PassResult{}, ErrLockHeld
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(passCtx), l.releaseTimeout)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			l.logger.Warn("failed to release pass lock", "error", err)
		}
	}()

	start := time.Now()
	result, err := l.runner.RunPass(passCtx)
	if err != nil {
		l.metrics.ObservePass(telemetry.PassFailed, time.Since(start))
		return result, err
	}
	l.metrics.ObservePass(telemetry.PassCompleted, time.Since(start))

	l.mu.Lock()
	l.last = &result
	l.mu.Unlock()

	return result, nil
}

// LastResult возвращает итоги последнего успешного прохода.
func (l *Loop) LastResult() (followup.PassResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return followup.PassResult{}, false
	}
	return *l.last, true
}

// tick — обработчик cron-тика.
func (l *Loop) tick() {
	l.mu.Lock()
	ctx := l.baseCtx
	l.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := l.Tick(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		l.logger.Warn("previous pass still running, tick skipped")
	case errors.Is(err, ErrLockHeld):
		l.logger.Debug("pass lock held elsewhere, tick skipped")
	case errors.Is(err, ErrStopped):
	default:
		// Ошибка выборки: следующий тик повторит попытку.
		l.logger.Error("follow-up pass failed", "error", err)
	}
}
