package usecase

import (
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

// Deps carries the stores and clocks every usecase shares.
type Deps struct {
	Orders    repo.OrderRepository
	Products  repo.ProductRepository
	Users     repo.UserRepository
	AuditLogs repo.AuditLogRepository
	Tx        repo.TransactionManager
	Locker    repo.OrderLocker
	Clock     Clock
	IDs       IDGenerator
	Log       *logrus.Logger
}

func (d Deps) writer() *orderWriter {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &orderWriter{
		orders: d.Orders,
		tx:     d.Tx,
		locker: d.Locker,
		clock:  d.Clock,
		ids:    d.IDs,
		log:    log,
	}
}

type ListOutput[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func pageOrDefault(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
