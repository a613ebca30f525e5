package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/policy"
	"github.com/contractflow/contractflow/internal/ports"
)

// CreateContractRequest represents the request to create a contract
type CreateContractRequest struct {
	Fields domain.ContractFields
	Status domain.ContractStatus
}

var forbiddenReasons = map[domain.Action]string{
	domain.ActionCreate:          "finance users cannot create contracts",
	domain.ActionEdit:            "only draft or rejected contracts can be edited",
	domain.ActionSubmit:          "only the creator can submit this contract",
	domain.ActionWithdrawCreator: "only the creator can withdraw this contract",
	domain.ActionApproveFinance:  "only finance or administrators can review this contract",
	domain.ActionRejectFinance:   "only finance or administrators can review this contract",
	domain.ActionWithdrawFinance: "only finance or administrators can withdraw this approval",
	domain.ActionApproveAdmin:    "only administrators can approve this contract",
	domain.ActionRejectAdmin:     "only administrators can reject this contract",
	domain.ActionTerminate:       "only administrators can terminate this contract",
	domain.ActionDelete:          "no permission to delete this contract",
}

const errNoViewPermission = "no permission to view this contract"

// ContractEngine runs every status-changing operation on contracts. Each
// operation is one transaction: the status precondition, the write and the
// audit row commit together or not at all.
type ContractEngine struct {
	store    ports.ContractStore
	blobs    ports.BlobStorage
	observer ports.TransitionObserver
	log      logger.Logger
	now      func() time.Time
}

// NewContractEngine creates a new contract engine
func NewContractEngine(
	store ports.ContractStore,
	blobs ports.BlobStorage,
	observer ports.TransitionObserver,
	log logger.Logger,
) *ContractEngine {
	if observer == nil {
		observer = nopObserver{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ContractEngine{
		store:    store,
		blobs:    blobs,
		observer: observer,
		log:      log.WithFields(map[string]interface{}{"component": "contract_engine"}),
		now:      time.Now,
	}
}

// Create stores a new contract owned by actor and records the create action.
func (e *ContractEngine) Create(ctx context.Context, actor *domain.Actor, req CreateContractRequest) (*domain.Contract, error) {
	start := e.now()
	var created *domain.Contract

	err := func() error {
		if !policy.CanCreate(actor) {
			return domain.Forbidden(forbiddenReasons[domain.ActionCreate])
		}
		contract, err := domain.NewContract(req.Fields, req.Status, actor.ID)
		if err != nil {
			return err
		}
		return e.store.WithinTx(ctx, func(ctx context.Context, tx ports.ContractTx) error {
			if err := tx.InsertContract(ctx, contract); err != nil {
				return fmt.Errorf("failed to insert contract: %w", err)
			}
			entry := domain.NewOperationLog(contract.ID, actor.ID, domain.ActionCreate, nil, contract.Status, "")
			if err := tx.AppendLog(ctx, entry); err != nil {
				return fmt.Errorf("failed to append operation log: %w", err)
			}
			created = contract
			return nil
		})
	}()

	id := ""
	if created != nil {
		id = created.ID
	}
	e.finish(ctx, domain.ActionCreate, id, actor, start, err)
	if err != nil {
		return nil, err
	}
	return e.reload(ctx, created), nil
}

// Edit applies the present fields of patch. A status in the patch is an
// administrator override and is honored for administrators only.
func (e *ContractEngine) Edit(ctx context.Context, actor *domain.Actor, id string, patch domain.ContractPatch) (*domain.Contract, error) {
	start := e.now()
	var updated *domain.Contract

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ports.ContractTx) error {
		contract, err := e.lock(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !policy.CanEdit(actor, contract) {
			return domain.Forbidden(forbiddenReasons[domain.ActionEdit])
		}

		from := contract.Status
		if patch.Status != nil && *patch.Status != contract.Status {
			if !actor.IsAdministrator() {
				return domain.Forbidden("only administrators can change the status directly")
			}
			if !patch.Status.IsValid() {
				return domain.Validation("invalid contract status: " + string(*patch.Status))
			}
			contract.Status = *patch.Status
		}
		if err := contract.ApplyPatch(patch); err != nil {
			return err
		}
		contract.Touch()

		if err := tx.UpdateContract(ctx, contract); err != nil {
			return fmt.Errorf("failed to update contract: %w", err)
		}
		entry := domain.NewOperationLog(contract.ID, actor.ID, domain.ActionEdit, &from, contract.Status, "")
		if err := tx.AppendLog(ctx, entry); err != nil {
			return fmt.Errorf("failed to append operation log: %w", err)
		}
		updated = contract
		return nil
	})

	e.finish(ctx, domain.ActionEdit, id, actor, start, err)
	if err != nil {
		return nil, err
	}
	return e.reload(ctx, updated), nil
}

func (e *ContractEngine) Submit(ctx context.Context, actor *domain.Actor, id string) (*domain.Contract, error) {
	return e.transition(ctx, actor, id, domain.ActionSubmit, "")
}

func (e *ContractEngine) WithdrawByCreator(ctx context.Context, actor *domain.Actor, id, remark string) (*domain.Contract, error) {
	return e.transition(ctx, actor, id, domain.ActionWithdrawCreator, remark)
}

func (e *ContractEngine) FinanceApprove(ctx context.Context, actor *domain.Actor, id, remark string) (*domain.Contract, error) {
	return e.transition(ctx, actor, id, domain.ActionApproveFinance, remark)
}

func (e *ContractEngine) FinanceReject(ctx context.Context, actor *domain.Actor, id, remark string) (*domain.Contract, error) {
	return e.transition(ctx, actor, id, domain.ActionRejectFinance, remark)
}

func (e *ContractEngine) WithdrawByFinance(ctx context.Context, actor *domain.Actor, id, remark string) (*domain.Contract, error) {
	return e.transition(ctx, actor, id, domain.ActionWithdrawFinance, remark)
}

func (e *ContractEngine) AdminApprove(ctx context.Context, actor *domain.Actor, id, remark string) (*domain.Contract, error) {
	return e.transition(ctx, actor, id, domain.ActionApproveAdmin, remark)
}

func (e *ContractEngine) AdminReject(ctx context.Context, actor *domain.Actor, id, remark string) (*domain.Contract, error) {
	return e.transition(ctx, actor, id, domain.ActionRejectAdmin, remark)
}

// Terminate ends an active contract on an administrator's decision. It is an
// out-of-band edge like Expire, outside the approval workflow.
func (e *ContractEngine) Terminate(ctx context.Context, actor *domain.Actor, id, remark string) (*domain.Contract, error) {
	return e.apply(ctx, actor, id, domain.ActionTerminate, remark, domain.ExternalTransition)
}

// Run dispatches a transition action by name.
func (e *ContractEngine) Run(ctx context.Context, actor *domain.Actor, id string, action domain.Action, remark string) (*domain.Contract, error) {
	switch action {
	case domain.ActionSubmit:
		remark = ""
	case domain.ActionTerminate:
		return e.Terminate(ctx, actor, id, remark)
	}
	return e.transition(ctx, actor, id, action, remark)
}

func (e *ContractEngine) transition(ctx context.Context, actor *domain.Actor, id string, action domain.Action, remark string) (*domain.Contract, error) {
	return e.apply(ctx, actor, id, action, remark, edgeFor)
}

func (e *ContractEngine) apply(
	ctx context.Context,
	actor *domain.Actor,
	id string,
	action domain.Action,
	remark string,
	resolve func(domain.Action) (domain.Transition, error),
) (*domain.Contract, error) {
	start := e.now()
	var updated *domain.Contract

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ports.ContractTx) error {
		edge, err := resolve(action)
		if err != nil {
			return err
		}
		contract, err := e.lock(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !policy.Allows(actor, contract, action) {
			return domain.Forbidden(forbiddenReasons[action])
		}
		from, to, err := contract.Transition(edge)
		if err != nil {
			return err
		}
		if err := tx.UpdateContract(ctx, contract); err != nil {
			return fmt.Errorf("failed to update contract: %w", err)
		}
		if err := tx.AppendLog(ctx, domain.NewOperationLog(contract.ID, actor.ID, action, &from, to, remark)); err != nil {
			return fmt.Errorf("failed to append operation log: %w", err)
		}
		updated = contract
		return nil
	})

	e.finish(ctx, action, id, actor, start, err)
	if err != nil {
		return nil, err
	}
	return e.reload(ctx, updated), nil
}

// Delete removes the contract together with its logs and attachments.
// Stored attachment content is removed after the commit.
func (e *ContractEngine) Delete(ctx context.Context, actor *domain.Actor, id string) error {
	start := e.now()
	var keys []string

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ports.ContractTx) error {
		contract, err := e.lock(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !policy.CanManage(actor, contract) {
			return domain.Forbidden(forbiddenReasons[domain.ActionDelete])
		}
		if !actor.IsAdministrator() && !contract.Status.IsEditable() {
			return domain.Forbidden("only draft or rejected contracts can be deleted")
		}
		keys, err = tx.DeleteContract(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete contract: %w", err)
		}
		return nil
	})

	e.finish(ctx, domain.ActionDelete, id, actor, start, err)
	if err != nil {
		return err
	}

	e.purgeBlobs(ctx, id, keys)
	return nil
}

// Expire moves one active contract past its expiry date to expired. It
// returns false without error when the contract no longer qualifies.
func (e *ContractEngine) Expire(ctx context.Context, actor *domain.Actor, id string, asOf time.Time) (bool, error) {
	start := e.now()
	expired := false

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ports.ContractTx) error {
		edge, err := domain.ExternalTransition(domain.ActionExpire)
		if err != nil {
			return err
		}
		contract, err := tx.LockContract(ctx, id)
		if err != nil {
			return err
		}
		if !contract.IsExpiredAt(asOf) {
			return nil
		}
		from, to, err := contract.Transition(edge)
		if err != nil {
			return err
		}
		if err := tx.UpdateContract(ctx, contract); err != nil {
			return fmt.Errorf("failed to update contract: %w", err)
		}
		remark := "expired on " + contract.ExpireDate.Format("2006-01-02")
		if err := tx.AppendLog(ctx, domain.NewOperationLog(contract.ID, actor.ID, domain.ActionExpire, &from, to, remark)); err != nil {
			return fmt.Errorf("failed to append operation log: %w", err)
		}
		expired = true
		return nil
	})

	if err != nil || expired {
		e.finish(ctx, domain.ActionExpire, id, actor, start, err)
	}
	return expired, err
}

// lock loads the contract for update and applies the visibility gate before
// anything else about it is revealed.
func (e *ContractEngine) lock(ctx context.Context, tx ports.ContractTx, actor *domain.Actor, id string) (*domain.Contract, error) {
	contract, err := tx.LockContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, contract) {
		return nil, domain.Forbidden(errNoViewPermission)
	}
	return contract, nil
}

func (e *ContractEngine) reload(ctx context.Context, contract *domain.Contract) *domain.Contract {
	fresh, err := e.store.GetContract(ctx, contract.ID)
	if err != nil {
		return contract
	}
	return fresh
}

func (e *ContractEngine) purgeBlobs(ctx context.Context, contractID string, keys []string) {
	if e.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := e.blobs.Delete(ctx, key); err != nil {
			e.log.Warn(ctx, "Failed to remove attachment content", map[string]interface{}{
				"contract_id": contractID,
				"key":         key,
				"error":       err.Error(),
			})
		}
	}
}

func (e *ContractEngine) finish(ctx context.Context, action domain.Action, id string, actor *domain.Actor, start time.Time, err error) {
	out := outcome(err)
	e.observer.ObserveTransition(action, out, e.now().Sub(start))
	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	logger.LogTransition(ctx, e.log, string(action), id, actorID, out, err)
}

func edgeFor(action domain.Action) (domain.Transition, error) {
	edge, ok := domain.Transitions[action]
	if !ok {
		return domain.Transition{}, domain.Validation("unknown contract action: " + string(action))
	}
	return edge, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(domain.Action, string, time.Duration) {}
