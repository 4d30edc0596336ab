package repository

import "context"

// TxRepos are the repositories bound to one transaction.
type TxRepos interface {
	Orders() OrderRepository
	AuditLogs() AuditLogRepository
}

// TransactionManager hides begin/commit/rollback from usecases.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
