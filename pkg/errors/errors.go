package errors

import "errors"

// ErrLockNotAcquired another process holds the lock
var ErrLockNotAcquired = errors.New("lock is held by another process")
