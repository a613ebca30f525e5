package ports

import (
	"context"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
)

// ContractReader defines the read side of contract persistence
type ContractReader interface {
	// GetContract retrieves a contract with its attachments and creator name
	GetContract(ctx context.Context, id string) (*domain.Contract, error)

	// ListContracts returns one page of contracts and the total matching the filter
	ListContracts(ctx context.Context, filter domain.ContractFilter) ([]*domain.Contract, int, error)

	// GetAttachment retrieves attachment metadata by its ID
	GetAttachment(ctx context.Context, id string) (*domain.Attachment, error)

	// ListContractLogs returns the audit trail of one contract, oldest first
	ListContractLogs(ctx context.Context, contractID string) ([]*domain.OperationLogEntry, error)

	// ListOperationLogs returns the global audit feed, newest first, and its total
	ListOperationLogs(ctx context.Context, filter domain.OperationLogFilter) ([]*domain.OperationLogEntry, int, error)

	// ListExpiredContractIDs returns active contracts whose expiry date is before asOf
	ListExpiredContractIDs(ctx context.Context, asOf time.Time) ([]string, error)
}

// ContractTx is the write scope of a single unit of work. Every status change
// and its audit row go through the same ContractTx.
type ContractTx interface {
	// LockContract loads a contract and holds it until the unit of work ends
	LockContract(ctx context.Context, id string) (*domain.Contract, error)

	// InsertContract saves a new contract
	InsertContract(ctx context.Context, contract *domain.Contract) error

	// UpdateContract updates the mutable fields and status of a contract
	UpdateContract(ctx context.Context, contract *domain.Contract) error

	// DeleteContract removes the contract, its logs and its attachment rows,
	// returning the storage keys of the removed attachments
	DeleteContract(ctx context.Context, id string) ([]string, error)

	// InsertAttachment saves attachment metadata
	InsertAttachment(ctx context.Context, attachment *domain.Attachment) error

	// AppendLog appends an audit row
	AppendLog(ctx context.Context, log *domain.OperationLog) error
}

// ContractStore combines reads with explicit transaction scopes
type ContractStore interface {
	ContractReader

	// WithinTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx ContractTx) error) error
}

// ActorRepository defines the interface for actor persistence
type ActorRepository interface {
	// Create saves a new actor, failing with Conflict on a taken username
	Create(ctx context.Context, actor *domain.Actor) error

	FindByID(ctx context.Context, id string) (*domain.Actor, error)

	FindByUsername(ctx context.Context, username string) (*domain.Actor, error)

	// List returns all actors, newest first
	List(ctx context.Context) ([]*domain.Actor, error)

	// Update saves role and credential changes
	Update(ctx context.Context, actor *domain.Actor) error

	Delete(ctx context.Context, id string) error
}
