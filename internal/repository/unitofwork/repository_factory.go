package unitofwork

import "context"

// RepositoryFactory hands out a fresh UnitOfWork per durable write or read.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
