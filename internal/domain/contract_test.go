package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testFields() ContractFields {
	return ContractFields{
		Title:      "Office lease",
		ContractNo: "HT-2024-001",
		PartyA:     "Acme",
		PartyB:     "Globex",
		Amount:     decimal.RequireFromString("1000.00"),
	}
}

func TestNewContract(t *testing.T) {
	c, err := NewContract(testFields(), "", "user1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if c.Status != StatusDraft {
		t.Errorf("Expected status %s, got %s", StatusDraft, c.Status)
	}
	if c.CreatedBy != "user1" {
		t.Errorf("Expected createdBy user1, got %s", c.CreatedBy)
	}
	if c.ID == "" {
		t.Error("Expected ID to be generated")
	}
	if !c.CreatedAt.Equal(c.UpdatedAt) {
		t.Error("Expected created_at and updated_at to match on creation")
	}
}

func TestNewContract_InitialStatus(t *testing.T) {
	tests := []struct {
		requested ContractStatus
		expected  ContractStatus
	}{
		{"", StatusDraft},
		{StatusDraft, StatusDraft},
		{StatusRejected, StatusRejected},
		{StatusActive, StatusDraft},
		{StatusPendingFinance, StatusDraft},
	}

	for _, tt := range tests {
		t.Run(string(tt.requested), func(t *testing.T) {
			c, err := NewContract(testFields(), tt.requested, "user1")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c.Status != tt.expected {
				t.Errorf("Expected status %s, got %s", tt.expected, c.Status)
			}
		})
	}
}

func TestContractFields_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *ContractFields)
	}{
		{"empty title", func(f *ContractFields) { f.Title = "  " }},
		{"empty contract number", func(f *ContractFields) { f.ContractNo = "" }},
		{"missing party", func(f *ContractFields) { f.PartyB = "" }},
		{"negative amount", func(f *ContractFields) { f.Amount = decimal.RequireFromString("-1") }},
		{"three decimals", func(f *ContractFields) { f.Amount = decimal.RequireFromString("1.005") }},
		{"too large", func(f *ContractFields) { f.Amount = decimal.RequireFromString("10000000000000000") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFields()
			tt.mutate(&f)
			err := f.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestContract_Transition(t *testing.T) {
	c, _ := NewContract(testFields(), "", "user1")
	before := c.UpdatedAt
	time.Sleep(time.Millisecond)

	from, to, err := c.Transition(Transitions[ActionSubmit])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if from != StatusDraft || to != StatusPendingFinance {
		t.Errorf("Expected draft -> pending_finance, got %s -> %s", from, to)
	}
	if !c.UpdatedAt.After(before) {
		t.Error("Expected updated_at to be bumped")
	}

	_, _, err = c.Transition(Transitions[ActionSubmit])
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected invalid state error, got %v", err)
	}
	if c.Status != StatusPendingFinance {
		t.Errorf("Expected status to stay pending_finance, got %s", c.Status)
	}
}

func TestTransitions_StayInsideStateSet(t *testing.T) {
	for action, edge := range Transitions {
		if edge.Action != action {
			t.Errorf("Transition keyed %s carries action %s", action, edge.Action)
		}
		if !edge.From.IsValid() || !edge.To.IsValid() {
			t.Errorf("Transition %s leaves the state set: %s -> %s", action, edge.From, edge.To)
		}
		if edge.From.IsTerminal() {
			t.Errorf("Workflow action %s must not leave terminal state %s", action, edge.From)
		}
	}
	for _, action := range []Action{ActionExpire, ActionTerminate} {
		if _, ok := Transitions[action]; ok {
			t.Errorf("Out-of-band action %s must not be a workflow edge", action)
		}
	}
}

func TestExternalTransition(t *testing.T) {
	if _, err := ExternalTransition(ActionExpire); err != nil {
		t.Errorf("Expected expire to be allowed, got %v", err)
	}
	if _, err := ExternalTransition(ActionTerminate); err != nil {
		t.Errorf("Expected terminate to be allowed, got %v", err)
	}
	if _, err := ExternalTransition(ActionApproveAdmin); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected approve_admin to be rejected, got %v", err)
	}
	if _, err := ExternalTransition(ActionSubmit); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected submit to be rejected, got %v", err)
	}
}

func TestContract_ApplyPatch(t *testing.T) {
	c, _ := NewContract(testFields(), "", "user1")
	title := "Renamed"
	amount := decimal.RequireFromString("25.50")

	if err := c.ApplyPatch(ContractPatch{Title: &title, Amount: &amount}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.Title != "Renamed" {
		t.Errorf("Expected title Renamed, got %s", c.Title)
	}
	if !c.Amount.Equal(amount) {
		t.Errorf("Expected amount 25.50, got %s", c.Amount)
	}
	if c.PartyA != "Acme" {
		t.Errorf("Expected untouched party_a, got %s", c.PartyA)
	}

	empty := ""
	if err := c.ApplyPatch(ContractPatch{Title: &empty}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error for empty title, got %v", err)
	}
}

func TestContract_ApplyPatch_BlankParties(t *testing.T) {
	c, _ := NewContract(testFields(), "", "user1")
	blank := "   "

	if err := c.ApplyPatch(ContractPatch{PartyA: &blank}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error for blank party_a, got %v", err)
	}
	if err := c.ApplyPatch(ContractPatch{PartyB: &blank}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error for blank party_b, got %v", err)
	}
	if c.PartyA != "Acme" || c.PartyB != "Globex" {
		t.Errorf("Expected parties untouched, got %s / %s", c.PartyA, c.PartyB)
	}
}

func TestContract_ApplyPatch_ClearsDates(t *testing.T) {
	sign := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	expire := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fields := testFields()
	fields.SignDate = &sign
	fields.ExpireDate = &expire
	fields.Note = "draft"
	c, _ := NewContract(fields, "", "user1")

	empty := ""
	other := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	err := c.ApplyPatch(ContractPatch{
		ClearSignDate:   true,
		ClearExpireDate: true,
		ExpireDate:      &other,
		Note:            &empty,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.SignDate != nil || c.ExpireDate != nil {
		t.Errorf("Expected both dates cleared, got %v / %v", c.SignDate, c.ExpireDate)
	}
	if c.Note != "" {
		t.Errorf("Expected note cleared, got %q", c.Note)
	}
}

func TestContractFilter_Matches(t *testing.T) {
	sign := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	c, _ := NewContract(testFields(), "", "user1")
	c.SignDate = DateOnly(&sign)

	owner := "user1"
	other := "user2"
	active := StatusActive
	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   ContractFilter
		expected bool
	}{
		{"no filter", ContractFilter{}, true},
		{"owner visibility", ContractFilter{VisibleTo: &owner}, true},
		{"foreign visibility", ContractFilter{VisibleTo: &other}, false},
		{"keyword on party", ContractFilter{Keyword: "glob"}, true},
		{"keyword case insensitive", ContractFilter{Keyword: "ht-2024"}, true},
		{"keyword miss", ContractFilter{Keyword: "initech"}, false},
		{"status miss", ContractFilter{Status: &active}, false},
		{"inclusive date range", ContractFilter{SignDateFrom: &from, SignDateTo: &to}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(c); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestContractFilter_Normalize(t *testing.T) {
	f := ContractFilter{}
	if err := f.Normalize(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Limit != DefaultContractLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultContractLimit, f.Limit)
	}

	f = ContractFilter{Limit: MaxContractLimit + 1}
	if err := f.Normalize(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}

	f = ContractFilter{Skip: -1}
	if err := f.Normalize(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestContract_IsExpiredAt(t *testing.T) {
	c, _ := NewContract(testFields(), "", "user1")
	expire := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	c.ExpireDate = &expire
	c.Status = StatusActive

	if c.IsExpiredAt(time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)) {
		t.Error("Expected contract to be valid on its expiry date")
	}
	if !c.IsExpiredAt(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("Expected contract to be expired the day after")
	}

	c.Status = StatusDraft
	if c.IsExpiredAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("Expected only active contracts to expire")
	}
}

func TestDomainError_Is(t *testing.T) {
	err := Forbidden("only the creator can submit")
	if !errors.Is(err, ErrForbidden) {
		t.Error("Expected forbidden error to match ErrForbidden")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Expected forbidden error not to match ErrNotFound")
	}
	if KindOf(err) != KindForbidden {
		t.Errorf("Expected kind forbidden, got %s", KindOf(err))
	}
	if MessageOf(err) != "only the creator can submit" {
		t.Errorf("Unexpected message %s", MessageOf(err))
	}
	if KindOf(errors.New("boom")) != "" {
		t.Error("Expected plain errors to have no kind")
	}
}
