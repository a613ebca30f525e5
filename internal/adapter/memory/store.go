// Package memory provides process-local implementations of the persistence
// ports. Transactions are serialized, which gives the same per-contract
// linearizability the Postgres store gets from row locks.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/ports"
)

type state struct {
	contracts   map[string]domain.Contract
	attachments map[string]domain.Attachment
	logs        []domain.OperationLog
}

func (s *state) clone() *state {
	c := &state{
		contracts:   make(map[string]domain.Contract, len(s.contracts)),
		attachments: make(map[string]domain.Attachment, len(s.attachments)),
		logs:        make([]domain.OperationLog, len(s.logs)),
	}
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.attachments {
		c.attachments[k] = v
	}
	copy(c.logs, s.logs)
	return c
}

// Store keeps contracts, attachments, logs and actors in memory
type Store struct {
	mu     sync.RWMutex
	data   *state
	actors *ActorRepository
}

// NewStore creates an empty store joined with actors for display names.
func NewStore(actors *ActorRepository) *Store {
	return &Store{
		data: &state{
			contracts:   map[string]domain.Contract{},
			attachments: map[string]domain.Attachment{},
		},
		actors: actors,
	}
}

var _ ports.ContractStore = (*Store)(nil)

// WithinTx runs fn against a private copy and publishes it on success.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.ContractTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{data: s.data.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) GetContract(ctx context.Context, id string) (*domain.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data.contracts[id]
	if !ok {
		return nil, domain.NotFound("contract not found")
	}
	out := s.decorate(c)
	out.Attachments = s.attachmentsOf(id)
	return out, nil
}

func (s *Store) ListContracts(ctx context.Context, filter domain.ContractFilter) ([]*domain.Contract, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Contract
	for _, c := range s.data.contracts {
		c := c
		if filter.Matches(&c) {
			matched = append(matched, s.decorate(c))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	total := len(matched)
	return page(matched, filter.Skip, filter.Limit), total, nil
}

func (s *Store) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data.attachments[id]
	if !ok {
		return nil, domain.NotFound("attachment not found")
	}
	return &a, nil
}

func (s *Store) ListContractLogs(ctx context.Context, contractID string) ([]*domain.OperationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OperationLogEntry
	for _, l := range s.data.logs {
		if l.ContractID == contractID {
			out = append(out, s.entry(l))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListOperationLogs(ctx context.Context, filter domain.OperationLogFilter) ([]*domain.OperationLogEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OperationLogEntry
	for i := len(s.data.logs) - 1; i >= 0; i-- {
		l := s.data.logs[i]
		if filter.ContractID != nil && l.ContractID != *filter.ContractID {
			continue
		}
		if filter.ActorID != nil && l.ActorID != *filter.ActorID {
			continue
		}
		out = append(out, s.entry(l))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := len(out)
	return page(out, filter.Skip, filter.Limit), total, nil
}

func (s *Store) ListExpiredContractIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, c := range s.data.contracts {
		c := c
		if c.IsExpiredAt(asOf) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) decorate(c domain.Contract) *domain.Contract {
	if s.actors != nil {
		c.CreatedByUsername = s.actors.usernameOf(c.CreatedBy)
	}
	return &c
}

func (s *Store) entry(l domain.OperationLog) *domain.OperationLogEntry {
	e := &domain.OperationLogEntry{OperationLog: l}
	if s.actors != nil {
		e.Username = s.actors.usernameOf(l.ActorID)
	}
	if c, ok := s.data.contracts[l.ContractID]; ok {
		e.ContractNo = c.ContractNo
	}
	return e
}

func (s *Store) attachmentsOf(contractID string) []domain.Attachment {
	var out []domain.Attachment
	for _, a := range s.data.attachments {
		if a.ContractID == contractID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}

type memTx struct {
	data *state
}

func (t *memTx) LockContract(ctx context.Context, id string) (*domain.Contract, error) {
	c, ok := t.data.contracts[id]
	if !ok {
		return nil, domain.NotFound("contract not found")
	}
	return &c, nil
}

func (t *memTx) InsertContract(ctx context.Context, contract *domain.Contract) error {
	if _, exists := t.data.contracts[contract.ID]; exists {
		return domain.Conflict("contract already exists")
	}
	c := *contract
	c.Attachments = nil
	c.CreatedByUsername = ""
	t.data.contracts[c.ID] = c
	return nil
}

func (t *memTx) UpdateContract(ctx context.Context, contract *domain.Contract) error {
	if _, exists := t.data.contracts[contract.ID]; !exists {
		return domain.NotFound("contract not found")
	}
	c := *contract
	c.Attachments = nil
	c.CreatedByUsername = ""
	t.data.contracts[c.ID] = c
	return nil
}

func (t *memTx) DeleteContract(ctx context.Context, id string) ([]string, error) {
	if _, exists := t.data.contracts[id]; !exists {
		return nil, domain.NotFound("contract not found")
	}

	kept := t.data.logs[:0:0]
	for _, l := range t.data.logs {
		if l.ContractID != id {
			kept = append(kept, l)
		}
	}
	t.data.logs = kept

	var keys []string
	for aid, a := range t.data.attachments {
		if a.ContractID == id {
			keys = append(keys, a.StorageKey)
			delete(t.data.attachments, aid)
		}
	}
	sort.Strings(keys)

	delete(t.data.contracts, id)
	return keys, nil
}

func (t *memTx) InsertAttachment(ctx context.Context, attachment *domain.Attachment) error {
	if _, exists := t.data.contracts[attachment.ContractID]; !exists {
		return domain.NotFound("contract not found")
	}
	t.data.attachments[attachment.ID] = *attachment
	return nil
}

func (t *memTx) AppendLog(ctx context.Context, log *domain.OperationLog) error {
	if _, exists := t.data.contracts[log.ContractID]; !exists {
		return domain.NotFound("contract not found")
	}
	t.data.logs = append(t.data.logs, *log)
	return nil
}

// ActorRepository keeps actors in memory
type ActorRepository struct {
	mu     sync.RWMutex
	actors map[string]domain.Actor
}

func NewActorRepository() *ActorRepository {
	return &ActorRepository{actors: map[string]domain.Actor{}}
}

var _ ports.ActorRepository = (*ActorRepository)(nil)

func (r *ActorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.actors {
		if a.Username == actor.Username {
			return domain.Conflict("username already exists")
		}
	}
	r.actors[actor.ID] = *actor
	return nil
}

func (r *ActorRepository) FindByID(ctx context.Context, id string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actors[id]
	if !ok {
		return nil, domain.NotFound("user not found")
	}
	return &a, nil
}

func (r *ActorRepository) FindByUsername(ctx context.Context, username string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.actors {
		if a.Username == username {
			a := a
			return &a, nil
		}
	}
	return nil, domain.NotFound("user not found")
}

func (r *ActorRepository) List(ctx context.Context) ([]*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Actor, 0, len(r.actors))
	for _, a := range r.actors {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ActorRepository) Update(ctx context.Context, actor *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actors[actor.ID]; !ok {
		return domain.NotFound("user not found")
	}
	r.actors[actor.ID] = *actor
	return nil
}

func (r *ActorRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actors[id]; !ok {
		return domain.NotFound("user not found")
	}
	delete(r.actors, id)
	return nil
}

func (r *ActorRepository) usernameOf(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actors[id].Username
}
