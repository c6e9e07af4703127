package launcher

import "errors"

// Ошибки launcher.
var (
	// ErrAlreadyLaunched — run для этого окна уже был создан (idempotency).
	ErrAlreadyLaunched = errors.New("run already launched for this window")
)
