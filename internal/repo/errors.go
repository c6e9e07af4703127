package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrLockHeld — advisory lock удерживается другим экземпляром.
	ErrLockHeld = errors.New("lock held by another instance")

	// ErrLockLost — соединение с lock оборвалось или lock не захвачен.
	ErrLockLost = errors.New("advisory lock lost")
)
