package repository

import "context"

// OrderLocker serialises read-modify-write cycles on one order across
// processes. Lock returns ErrLockNotAcquired when the order stays locked
// past the wait budget.
type OrderLocker interface {
	Lock(ctx context.Context, orderID string) (unlock func(), err error)
}
