package usecase

import (
	"context"
	"fmt"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/policy"
	"github.com/contractflow/contractflow/internal/ports"
)

// ContractListResult is one page of contracts
type ContractListResult struct {
	Items []*domain.Contract `json:"items"`
	Total int                `json:"total"`
	Skip  int                `json:"skip"`
	Limit int                `json:"limit"`
}

// OperationFeedResult is one page of the global audit feed
type OperationFeedResult struct {
	Items []*domain.OperationLogEntry `json:"items"`
	Total int                         `json:"total"`
	Skip  int                         `json:"skip"`
	Limit int                         `json:"limit"`
}

// ContractQueryService serves the read side of contracts and their audit trail
type ContractQueryService struct {
	store    ports.ContractReader
	renderer ports.DocumentRenderer
}

func NewContractQueryService(store ports.ContractReader, renderer ports.DocumentRenderer) *ContractQueryService {
	return &ContractQueryService{store: store, renderer: renderer}
}

// Get returns a contract visible to actor.
func (s *ContractQueryService) Get(ctx context.Context, actor *domain.Actor, id string) (*domain.Contract, error) {
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, contract) {
		return nil, domain.Forbidden(errNoViewPermission)
	}
	return contract, nil
}

// List returns the contracts actor may see matching filter. Normal actors are
// always restricted to their own contracts.
func (s *ContractQueryService) List(ctx context.Context, actor *domain.Actor, filter domain.ContractFilter) (*ContractListResult, error) {
	if actor == nil {
		return nil, domain.Forbidden("authentication required")
	}
	filter.VisibleTo = nil
	if !policy.SeesAll(actor) {
		owner := actor.ID
		filter.VisibleTo = &owner
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, domain.Validation("invalid status filter: " + string(*filter.Status))
	}
	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	items, total, err := s.store.ListContracts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	if items == nil {
		items = []*domain.Contract{}
	}

	return &ContractListResult{
		Items: items,
		Total: total,
		Skip:  filter.Skip,
		Limit: filter.Limit,
	}, nil
}

// ContractLogs returns the audit trail of one contract, oldest first.
func (s *ContractQueryService) ContractLogs(ctx context.Context, actor *domain.Actor, id string) ([]*domain.OperationLogEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.store.ListContractLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list contract logs: %w", err)
	}
	if entries == nil {
		entries = []*domain.OperationLogEntry{}
	}
	return entries, nil
}

// OperationFeed returns the global audit feed, newest first. Administrators only.
func (s *ContractQueryService) OperationFeed(ctx context.Context, actor *domain.Actor, filter domain.OperationLogFilter) (*OperationFeedResult, error) {
	if !policy.CanViewGlobalLog(actor) {
		return nil, domain.Forbidden("only administrators can view the operation log")
	}
	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	items, total, err := s.store.ListOperationLogs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list operation logs: %w", err)
	}
	if items == nil {
		items = []*domain.OperationLogEntry{}
	}

	return &OperationFeedResult{
		Items: items,
		Total: total,
		Skip:  filter.Skip,
		Limit: filter.Limit,
	}, nil
}

// ExportDocument renders a visible contract.
func (s *ContractQueryService) ExportDocument(ctx context.Context, actor *domain.Actor, id string) ([]byte, string, *domain.Contract, error) {
	contract, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", nil, err
	}
	if s.renderer == nil {
		return nil, "", nil, fmt.Errorf("no document renderer configured")
	}
	data, err := s.renderer.Render(contract)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to render contract: %w", err)
	}
	return data, s.renderer.ContentType(), contract, nil
}
