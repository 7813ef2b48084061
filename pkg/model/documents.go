package model

import "fmt"

// Action is a lifecycle change an operator can request for plan items.
type Action int

const (
	ActionActivate Action = iota
	ActionMoveToAvailable
	ActionTerminate
)

// Actions lists every action in button order.
var Actions = []Action{ActionActivate, ActionMoveToAvailable, ActionTerminate}

func (a Action) String() string {
	switch a {
	case ActionActivate:
		return "activate"
	case ActionMoveToAvailable:
		return "available"
	case ActionTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Title is the button caption for the action.
func (a Action) Title() string {
	switch a {
	case ActionActivate:
		return "Activate"
	case ActionMoveToAvailable:
		return "Move to available"
	case ActionTerminate:
		return "Terminate"
	default:
		return a.String()
	}
}

// ParseAction accepts the names printed by Action.String plus a few aliases.
func ParseAction(s string) (Action, error) {
	switch s {
	case "activate", "a":
		return ActionActivate, nil
	case "available", "move-to-available", "v":
		return ActionMoveToAvailable, nil
	case "terminate", "t":
		return ActionTerminate, nil
	default:
		return 0, fmt.Errorf("unknown action %q (want activate, available or terminate)", s)
	}
}

// ChangeStateDocument is the body of a change-state POST. Exactly one field is set.
type ChangeStateDocument struct {
	ActivatePlanItemDefinitionIDs        []string `json:"activatePlanItemDefinitionIds,omitempty"`
	MoveToAvailablePlanItemDefinitionIDs []string `json:"moveToAvailablePlanItemDefinitionIds,omitempty"`
	TerminatePlanItemDefinitionIDs       []string `json:"terminatePlanItemDefinitionIds,omitempty"`
}

// NewChangeStateDocument puts ids into the field matching the action.
func NewChangeStateDocument(a Action, ids []string) ChangeStateDocument {
	var doc ChangeStateDocument
	switch a {
	case ActionActivate:
		doc.ActivatePlanItemDefinitionIDs = ids
	case ActionMoveToAvailable:
		doc.MoveToAvailablePlanItemDefinitionIDs = ids
	case ActionTerminate:
		doc.TerminatePlanItemDefinitionIDs = ids
	}
	return doc
}

// PlanItemDefinitionRef wraps one id inside a migration document bucket.
type PlanItemDefinitionRef struct {
	PlanItemDefinitionID string `json:"planItemDefinitionId"`
}

// MigrationDocument is the body of a migrate or batch-migrate POST.
type MigrationDocument struct {
	ToCaseDefinitionID                 string                  `json:"toCaseDefinitionId"`
	ActivatePlanItemDefinitions        []PlanItemDefinitionRef `json:"activatePlanItemDefinitions"`
	MoveToAvailablePlanItemDefinitions []PlanItemDefinitionRef `json:"moveToAvailablePlanItemDefinitions"`
	TerminatePlanItemDefinitions       []PlanItemDefinitionRef `json:"terminatePlanItemDefinitions"`
}
