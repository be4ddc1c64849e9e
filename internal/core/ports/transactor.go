package ports

import "context"

// Transactor runs fn inside one storage transaction. Repositories called
// with the context handed to fn take part in it. Any error returned by fn
// rolls the transaction back and is returned unchanged.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithinSnapshot runs read-only fn against one consistent view of the store.
	WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serialises engine operations on the same movie or client.
type Locker interface {
	// Lock acquires every key, in sorted order, and returns a function releasing them.
	// Failing to acquire before ctx is done yields domain.ErrUnavailable.
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is everything a storage backend provides to the engine.
type Store interface {
	RentalRepository
	MovieCatalog
	InventoryLedger
	ClientDirectory
	QuotaCounter
	AuditRepository
	Transactor
	Pinger
	Close(ctx context.Context) error
}
