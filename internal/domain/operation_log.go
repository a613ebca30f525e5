package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action names an audited operation on a contract
type Action string

const (
	ActionCreate          Action = "create"
	ActionEdit            Action = "edit"
	ActionSubmit          Action = "submit"
	ActionWithdrawCreator Action = "withdraw_creator"
	ActionApproveFinance  Action = "approve_finance"
	ActionRejectFinance   Action = "reject_finance"
	ActionWithdrawFinance Action = "withdraw_finance"
	ActionApproveAdmin    Action = "approve_admin"
	ActionRejectAdmin     Action = "reject_admin"
	ActionExpire          Action = "expire"
	ActionTerminate       Action = "terminate"
	ActionDelete          Action = "delete"
)

// Transition is an edge of the contract state machine
type Transition struct {
	Action Action
	From   ContractStatus
	To     ContractStatus
	Reason string
}

// Transitions holds the approval workflow edges. None of them leaves a
// terminal state.
var Transitions = map[Action]Transition{
	ActionSubmit:          {ActionSubmit, StatusDraft, StatusPendingFinance, "only draft contracts can be submitted"},
	ActionWithdrawCreator: {ActionWithdrawCreator, StatusPendingFinance, StatusDraft, "only contracts pending finance review can be withdrawn"},
	ActionApproveFinance:  {ActionApproveFinance, StatusPendingFinance, StatusFinanceApproved, "only contracts pending finance review can be approved"},
	ActionRejectFinance:   {ActionRejectFinance, StatusPendingFinance, StatusRejected, "only contracts pending finance review can be rejected"},
	ActionWithdrawFinance: {ActionWithdrawFinance, StatusFinanceApproved, StatusPendingFinance, "only finance approved contracts can be withdrawn by finance"},
	ActionApproveAdmin:    {ActionApproveAdmin, StatusFinanceApproved, StatusActive, "only finance approved contracts can be approved"},
	ActionRejectAdmin:     {ActionRejectAdmin, StatusFinanceApproved, StatusRejected, "only finance approved contracts can be rejected"},
}

// externalTransitions are the out-of-band edges from active to a final state.
var externalTransitions = map[Action]Transition{
	ActionExpire:    {ActionExpire, StatusActive, StatusExpired, "only active contracts can expire"},
	ActionTerminate: {ActionTerminate, StatusActive, StatusTerminated, "only active contracts can be terminated"},
}

// ExternalTransition validates a status change driven from outside the
// approval workflow. Only expired and terminated are reachable this way.
func ExternalTransition(action Action) (Transition, error) {
	edge, ok := externalTransitions[action]
	if !ok {
		return Transition{}, InvalidState("action " + string(action) + " is not an out-of-band terminal transition")
	}
	return edge, nil
}

// OperationLog is one immutable audit record of a contract change
type OperationLog struct {
	ID         string          `json:"id"`
	ContractID string          `json:"contract_id"`
	ActorID    string          `json:"user_id"`
	Action     Action          `json:"action"`
	FromStatus *ContractStatus `json:"from_status"`
	ToStatus   *ContractStatus `json:"to_status"`
	Remark     *string         `json:"remark"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OperationLogEntry is an OperationLog joined with display fields.
type OperationLogEntry struct {
	OperationLog
	Username   string `json:"username"`
	ContractNo string `json:"contract_no,omitempty"`
}

// NewOperationLog builds a log row. from is nil only for create.
func NewOperationLog(contractID, actorID string, action Action, from *ContractStatus, to ContractStatus, remark string) *OperationLog {
	toCopy := to
	var fromCopy *ContractStatus
	if from != nil {
		f := *from
		fromCopy = &f
	}
	var remarkPtr *string
	if remark != "" {
		r := remark
		remarkPtr = &r
	}
	return &OperationLog{
		ID:         uuid.NewString(),
		ContractID: contractID,
		ActorID:    actorID,
		Action:     action,
		FromStatus: fromCopy,
		ToStatus:   &toCopy,
		Remark:     remarkPtr,
		CreatedAt:  time.Now().UTC(),
	}
}

// OperationLogFilter represents filters for the global operation feed
type OperationLogFilter struct {
	ContractID *string `json:"contract_id,omitempty"`
	ActorID    *string `json:"user_id,omitempty"`
	Skip       int     `json:"skip"`
	Limit      int     `json:"limit"`
}

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 200
)

// Normalize applies pagination defaults and bounds.
func (f *OperationLogFilter) Normalize() error {
	if f.Skip < 0 {
		return Validation("skip must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = DefaultLogLimit
	}
	if f.Limit < 0 || f.Limit > MaxLogLimit {
		return Validation("limit must be between 1 and 200")
	}
	return nil
}
