// Package scheduler запускает проходы рассылки по расписанию.
//
// Loop вызывает followup.Dispatcher.RunPass с фиксированной периодичностью
// (cron-выражение, по умолчанию "@every 1m") и гарантирует, что проходы
// не пересекаются:
//
//   - внутри процесса — тик, пришедший во время прохода, пропускается
//     (ErrBusy), очереди тиков нет;
//   - между репликами — проход выполняется под lock.Locker (ErrLockHeld).
//
// Использование:
//
//	loop, err := scheduler.New(scheduler.Config{
//	    Runner:   dispatcher,
//	    Locker:   lock.Noop{},
//	    Schedule: "@every 1m",
//	    Logger:   logger,
//	})
//
//	loop.Start(ctx)
//	defer loop.Stop(shutdownCtx) // дожидается текущего прохода
//
// Tick запускает один проход синхронно. Его используют тесты и ручной
// запуск через API.
package scheduler
