package unitofwork

import "context"

// RepositoryFactory opens one UnitOfWork per request.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
