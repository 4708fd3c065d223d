package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrStaleUpdate — обновление отклонено: lead больше не active
	// или last_contacted_at уже новее переданного времени.
	ErrStaleUpdate = errors.New("stale update")
)
