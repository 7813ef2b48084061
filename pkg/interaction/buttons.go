package interaction

import (
	"strings"

	"github.com/vanderheijden86/caseview/pkg/model"
)

// Buttons is the visibility of the three change-state actions.
type Buttons struct {
	Activate  bool
	Available bool
	Terminate bool
}

// buttonTable maps a lifecycle to the actions it allows.
var buttonTable = map[model.Lifecycle]Buttons{
	model.LifecycleCurrent:   {Terminate: true},
	model.LifecycleAvailable: {Available: true, Terminate: true},
	model.LifecycleCompleted: {Activate: true},
	model.LifecycleOther:     {Activate: true, Available: true},
}

// ButtonsFor returns the button visibility for an element.
func ButtonsFor(e model.Element) Buttons {
	return buttonTable[model.LifecycleOf(e)]
}

// Shown reports whether the button for action a is visible.
func (b Buttons) Shown(a model.Action) bool {
	switch a {
	case model.ActionActivate:
		return b.Activate
	case model.ActionMoveToAvailable:
		return b.Available
	case model.ActionTerminate:
		return b.Terminate
	default:
		return false
	}
}

// Any reports whether at least one button is visible.
func (b Buttons) Any() bool {
	return b.Activate || b.Available || b.Terminate
}

func (b Buttons) String() string {
	var parts []string
	for _, a := range model.Actions {
		if b.Shown(a) {
			parts = append(parts, a.String())
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
