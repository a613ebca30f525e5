package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/contractflow/contractflow/internal/adapter/memory"
	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memBlobs is a BlobStorage keeping content in a map
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	saveErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Save(ctx context.Context, key string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return "", b.saveErr
	}
	b.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (b *memBlobs) Read(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, domain.NotFound("object not found")
	}
	return data, nil
}

func (b *memBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

// failingLogStore accepts every write except audit rows
type failingLogStore struct {
	*memory.Store
}

func (s failingLogStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.ContractTx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx ports.ContractTx) error {
		return fn(ctx, failingLogTx{tx})
	})
}

type failingLogTx struct {
	ports.ContractTx
}

func (failingLogTx) AppendLog(ctx context.Context, log *domain.OperationLog) error {
	return errors.New("audit sink unavailable")
}

type fixture struct {
	ctx     context.Context
	actors  *memory.ActorRepository
	store   *memory.Store
	blobs   *memBlobs
	engine  *ContractEngine
	query   *ContractQueryService
	admin   *domain.Actor
	finance *domain.Actor
	alice   *domain.Actor
	bob     *domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		actors: memory.NewActorRepository(),
		blobs:  newMemBlobs(),
	}
	f.store = memory.NewStore(f.actors)
	f.engine = NewContractEngine(f.store, f.blobs, nil, nil)
	f.query = NewContractQueryService(f.store, nil)

	f.admin = f.addActor(t, "admin", domain.RoleAdministrator)
	f.finance = f.addActor(t, "fin", domain.RoleFinance)
	f.alice = f.addActor(t, "alice", domain.RoleNormal)
	f.bob = f.addActor(t, "bob", domain.RoleNormal)
	return f
}

func (f *fixture) addActor(t *testing.T, username string, role domain.Role) *domain.Actor {
	t.Helper()
	a, err := domain.NewActor(username, "hash-"+username, role)
	require.NoError(t, err)
	require.NoError(t, f.actors.Create(f.ctx, a))
	return a
}

func contractRequest(title string) CreateContractRequest {
	return CreateContractRequest{
		Fields: domain.ContractFields{
			Title:      title,
			ContractNo: "HT-001",
			PartyA:     "Acme",
			PartyB:     "Globex",
			Amount:     decimal.RequireFromString("1000.00"),
			Note:       "first draft",
		},
	}
}

func (f *fixture) create(t *testing.T, owner *domain.Actor) *domain.Contract {
	t.Helper()
	c, err := f.engine.Create(f.ctx, owner, contractRequest("Lease"))
	require.NoError(t, err)
	return c
}

// setStatus forces a status without an audit row, for arranging tests.
func (f *fixture) setStatus(t *testing.T, id string, status domain.ContractStatus) {
	t.Helper()
	require.NoError(t, f.store.WithinTx(f.ctx, func(ctx context.Context, tx ports.ContractTx) error {
		c, err := tx.LockContract(ctx, id)
		if err != nil {
			return err
		}
		c.Status = status
		return tx.UpdateContract(ctx, c)
	}))
}

func (f *fixture) logs(t *testing.T, id string) []*domain.OperationLogEntry {
	t.Helper()
	entries, err := f.store.ListContractLogs(f.ctx, id)
	require.NoError(t, err)
	return entries
}

func (f *fixture) status(t *testing.T, id string) domain.ContractStatus {
	t.Helper()
	c, err := f.store.GetContract(f.ctx, id)
	require.NoError(t, err)
	return c.Status
}

func statusPtr(s domain.ContractStatus) *domain.ContractStatus {
	return &s
}
