// Package policy holds the authorization matrix of the contract workflow.
package policy

import "github.com/contractflow/contractflow/internal/domain"

// Capabilities is the set of things an actor may do, optionally with respect
// to one contract.
type Capabilities struct {
	View          bool
	Edit          bool
	Manage        bool
	Create        bool
	Submit        bool
	FinanceReview bool
	AdminReview   bool
	ViewGlobalLog bool
	ManageActors  bool
}

type strategy func(actor *domain.Actor, c *domain.Contract) Capabilities

var strategies = map[domain.Role]strategy{
	domain.RoleAdministrator: func(actor *domain.Actor, c *domain.Contract) Capabilities {
		return Capabilities{
			View:          true,
			Edit:          true,
			Manage:        true,
			Create:        true,
			Submit:        actor.Owns(c),
			FinanceReview: true,
			AdminReview:   true,
			ViewGlobalLog: true,
			ManageActors:  true,
		}
	},
	domain.RoleFinance: func(actor *domain.Actor, c *domain.Contract) Capabilities {
		return Capabilities{
			View:          true,
			FinanceReview: true,
		}
	},
	domain.RoleNormal: func(actor *domain.Actor, c *domain.Contract) Capabilities {
		owns := actor.Owns(c)
		return Capabilities{
			View:   owns,
			Edit:   owns && c.Status.IsEditable(),
			Manage: owns,
			Create: true,
			Submit: owns,
		}
	},
}

// For evaluates the capabilities of actor over c. c may be nil for
// contract-independent checks. Unknown roles get nothing.
func For(actor *domain.Actor, c *domain.Contract) Capabilities {
	if actor == nil {
		return Capabilities{}
	}
	s, ok := strategies[actor.Role]
	if !ok {
		return Capabilities{}
	}
	return s(actor, c)
}

// CanManage governs delete and attachment upload.
func CanManage(actor *domain.Actor, c *domain.Contract) bool {
	return For(actor, c).Manage
}

func CanEdit(actor *domain.Actor, c *domain.Contract) bool {
	return For(actor, c).Edit
}

func CanView(actor *domain.Actor, c *domain.Contract) bool {
	return For(actor, c).View
}

func CanCreate(actor *domain.Actor) bool {
	return For(actor, nil).Create
}

func CanViewGlobalLog(actor *domain.Actor) bool {
	return For(actor, nil).ViewGlobalLog
}

func CanManageActors(actor *domain.Actor) bool {
	return For(actor, nil).ManageActors
}

// SeesAll reports whether listing needs no ownership filter.
func SeesAll(actor *domain.Actor) bool {
	return actor != nil && (actor.Role == domain.RoleAdministrator || actor.Role == domain.RoleFinance)
}

// Allows checks the role precondition of a transition action.
func Allows(actor *domain.Actor, c *domain.Contract, action domain.Action) bool {
	caps := For(actor, c)
	switch action {
	case domain.ActionSubmit, domain.ActionWithdrawCreator:
		return caps.Submit
	case domain.ActionApproveFinance, domain.ActionRejectFinance, domain.ActionWithdrawFinance:
		return caps.FinanceReview
	case domain.ActionApproveAdmin, domain.ActionRejectAdmin, domain.ActionTerminate:
		return caps.AdminReview
	case domain.ActionEdit:
		return caps.Edit
	case domain.ActionDelete:
		return caps.Manage
	case domain.ActionCreate:
		return caps.Create
	}
	return false
}
