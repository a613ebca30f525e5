package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractStatus represents the status of a contract
type ContractStatus string

const (
	StatusDraft           ContractStatus = "draft"
	StatusPendingFinance  ContractStatus = "pending_finance"
	StatusFinanceApproved ContractStatus = "finance_approved"
	StatusActive          ContractStatus = "active"
	StatusRejected        ContractStatus = "rejected"
	StatusExpired         ContractStatus = "expired"
	StatusTerminated      ContractStatus = "terminated"
)

// AllStatuses lists every state of the contract lifecycle.
var AllStatuses = []ContractStatus{
	StatusDraft,
	StatusPendingFinance,
	StatusFinanceApproved,
	StatusActive,
	StatusRejected,
	StatusExpired,
	StatusTerminated,
}

var statusLabels = map[ContractStatus]string{
	StatusDraft:           "草稿",
	StatusPendingFinance:  "待财务审批",
	StatusFinanceApproved: "待管理员审批",
	StatusActive:          "已生效",
	StatusRejected:        "已驳回",
	StatusExpired:         "已到期",
	StatusTerminated:      "已终止",
}

// IsValid reports whether s is a member of the state set.
func (s ContractStatus) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsTerminal reports whether no workflow action leaves s. An active contract
// still moves on through the out-of-band expire and terminate paths.
func (s ContractStatus) IsTerminal() bool {
	return s == StatusActive || s == StatusExpired || s == StatusTerminated
}

// IsEditable reports whether the owner may still change the contract.
func (s ContractStatus) IsEditable() bool {
	return s == StatusDraft || s == StatusRejected
}

// Label returns the display label of the status.
func (s ContractStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (ContractStatus, error) {
	s := ContractStatus(strings.TrimSpace(raw))
	if !s.IsValid() {
		return "", Validation("invalid contract status: " + raw)
	}
	return s, nil
}

// Attachment is the metadata of a file stored for a contract
type Attachment struct {
	ID         string    `json:"id"`
	ContractID string    `json:"contract_id"`
	FileName   string    `json:"file_name"`
	StorageKey string    `json:"-"`
	FileSize   int64     `json:"file_size"`
	CreatedAt  time.Time `json:"created_at"`
}

// Contract represents a business contract going through approval
type Contract struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	ContractNo        string          `json:"contract_no"`
	PartyA            string          `json:"party_a"`
	PartyB            string          `json:"party_b"`
	Amount            decimal.Decimal `json:"amount"`
	SignDate          *time.Time      `json:"sign_date,omitempty"`
	ExpireDate        *time.Time      `json:"expire_date,omitempty"`
	Status            ContractStatus  `json:"status"`
	Note              string          `json:"note"`
	CreatedBy         string          `json:"created_by"`
	CreatedByUsername string          `json:"created_by_username"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Attachments       []Attachment    `json:"attachments,omitempty"`
}

// ContractFields carries the business attributes of a contract.
type ContractFields struct {
	Title      string
	ContractNo string
	PartyA     string
	PartyB     string
	Amount     decimal.Decimal
	SignDate   *time.Time
	ExpireDate *time.Time
	Note       string
}

// NewContract creates a contract owned by createdBy. Only draft and rejected
// are accepted as initial states; anything else falls back to draft.
func NewContract(fields ContractFields, requested ContractStatus, createdBy string) (*Contract, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	status := StatusDraft
	if requested == StatusRejected {
		status = StatusRejected
	}
	now := time.Now().UTC()
	return &Contract{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(fields.Title),
		ContractNo: strings.TrimSpace(fields.ContractNo),
		PartyA:     strings.TrimSpace(fields.PartyA),
		PartyB:     strings.TrimSpace(fields.PartyB),
		Amount:     fields.Amount,
		SignDate:   DateOnly(fields.SignDate),
		ExpireDate: DateOnly(fields.ExpireDate),
		Status:     status,
		Note:       fields.Note,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// maxAmount is the first value that no longer fits numeric(18,2).
var maxAmount = decimal.New(1, 16)

// Validate checks the attributes required on creation.
func (f ContractFields) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return Validation("title is required")
	}
	if strings.TrimSpace(f.ContractNo) == "" {
		return Validation("contract_no is required")
	}
	if strings.TrimSpace(f.PartyA) == "" || strings.TrimSpace(f.PartyB) == "" {
		return Validation("party_a and party_b are required")
	}
	return ValidateAmount(f.Amount)
}

// ValidateAmount enforces a non-negative amount with at most two decimals.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Validation("amount must not be negative")
	}
	if !amount.Round(2).Equal(amount) {
		return Validation("amount must have at most two decimal places")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return Validation("amount is too large")
	}
	return nil
}

// ContractPatch lists the fields an edit may overwrite; nil means untouched.
// The Clear flags reset a date to unset and win over a value.
type ContractPatch struct {
	Title           *string
	ContractNo      *string
	PartyA          *string
	PartyB          *string
	Amount          *decimal.Decimal
	SignDate        *time.Time
	ExpireDate      *time.Time
	ClearSignDate   bool
	ClearExpireDate bool
	Note            *string
	Status          *ContractStatus
}

// ApplyPatch overwrites the present fields. Status is handled by the caller.
func (c *Contract) ApplyPatch(p ContractPatch) error {
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return Validation("title must not be empty")
		}
		c.Title = strings.TrimSpace(*p.Title)
	}
	if p.ContractNo != nil {
		if strings.TrimSpace(*p.ContractNo) == "" {
			return Validation("contract_no must not be empty")
		}
		c.ContractNo = strings.TrimSpace(*p.ContractNo)
	}
	if p.PartyA != nil {
		if strings.TrimSpace(*p.PartyA) == "" {
			return Validation("party_a must not be empty")
		}
		c.PartyA = strings.TrimSpace(*p.PartyA)
	}
	if p.PartyB != nil {
		if strings.TrimSpace(*p.PartyB) == "" {
			return Validation("party_b must not be empty")
		}
		c.PartyB = strings.TrimSpace(*p.PartyB)
	}
	if p.Amount != nil {
		if err := ValidateAmount(*p.Amount); err != nil {
			return err
		}
		c.Amount = *p.Amount
	}
	switch {
	case p.ClearSignDate:
		c.SignDate = nil
	case p.SignDate != nil:
		c.SignDate = DateOnly(p.SignDate)
	}
	switch {
	case p.ClearExpireDate:
		c.ExpireDate = nil
	case p.ExpireDate != nil:
		c.ExpireDate = DateOnly(p.ExpireDate)
	}
	if p.Note != nil {
		c.Note = *p.Note
	}
	return nil
}

// Transition moves the contract along edge, failing with InvalidState when the
// current status is not the edge's source.
func (c *Contract) Transition(edge Transition) (from, to ContractStatus, err error) {
	if c.Status != edge.From {
		return c.Status, c.Status, InvalidState(edge.Reason)
	}
	from = c.Status
	c.Status = edge.To
	c.Touch()
	return from, edge.To, nil
}

// Touch bumps updated_at.
func (c *Contract) Touch() {
	c.UpdatedAt = time.Now().UTC()
}

// IsExpiredAt reports whether an active contract is past its expiry date.
func (c *Contract) IsExpiredAt(asOf time.Time) bool {
	if c.Status != StatusActive || c.ExpireDate == nil {
		return false
	}
	return c.ExpireDate.Before(truncateDay(asOf))
}

// ContractFilter represents filters for listing contracts
type ContractFilter struct {
	VisibleTo    *string         `json:"visible_to,omitempty"`
	Keyword      string          `json:"keyword,omitempty"`
	Status       *ContractStatus `json:"status,omitempty"`
	SignDateFrom *time.Time      `json:"sign_date_from,omitempty"`
	SignDateTo   *time.Time      `json:"sign_date_to,omitempty"`
	Skip         int             `json:"skip"`
	Limit        int             `json:"limit"`
}

const (
	DefaultContractLimit = 20
	MaxContractLimit     = 500
)

// Normalize applies pagination defaults and bounds.
func (f *ContractFilter) Normalize() error {
	if f.Skip < 0 {
		return Validation("skip must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = DefaultContractLimit
	}
	if f.Limit < 0 || f.Limit > MaxContractLimit {
		return Validation("limit must be between 1 and 500")
	}
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.SignDateFrom = DateOnly(f.SignDateFrom)
	f.SignDateTo = DateOnly(f.SignDateTo)
	return nil
}

// Matches evaluates the filter against a single contract, used by stores
// without a query engine.
func (f ContractFilter) Matches(c *Contract) bool {
	if f.VisibleTo != nil && c.CreatedBy != *f.VisibleTo {
		return false
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		hit := false
		for _, field := range []string{c.Title, c.ContractNo, c.PartyA, c.PartyB} {
			if strings.Contains(strings.ToLower(field), kw) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.SignDateFrom != nil && (c.SignDate == nil || c.SignDate.Before(*f.SignDateFrom)) {
		return false
	}
	if f.SignDateTo != nil && (c.SignDate == nil || c.SignDate.After(*f.SignDateTo)) {
		return false
	}
	return true
}

// DateOnly strips the time of day, keeping calendar dates comparable.
func DateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := truncateDay(*t)
	return &d
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
