package dispatch

import (
	stderrors "errors"

	"github.com/wippyai/objbridge/value"
)

// ErrNotHandled is returned by a static or custom action handler that does
// not recognize the action name.
var ErrNotHandled = stderrors.New("action not handled")

// Properties enables the get and set built-ins. Both methods validate the
// name and, for Set, the value.
type Properties interface {
	Get(name string) (value.Cell, error)
	Set(name string, v value.Cell) error
}

// PropertyLister lets the default save and load walk every property
// through Get and Set.
type PropertyLister interface {
	PropertyNames() []string
}

// Saver overrides the default save snapshot.
type Saver interface {
	Save() (value.Cell, error)
}

// Loader restores a snapshot produced by Save.
type Loader interface {
	Load(snapshot value.Cell) error
}

// ActionHandler runs custom instance actions. It returns ErrNotHandled for
// names it does not know.
type ActionHandler interface {
	Action(call *Call) error
}

// Action names with built-in meaning.
const (
	ActionDelete = "delete"
	ActionGet    = "get"
	ActionSet    = "set"
	ActionSave   = "save"
	ActionLoad   = "load"
)

// Reserved reports whether name is one of the reserved instance actions.
func Reserved(name string) bool {
	switch name {
	case ActionDelete, ActionGet, ActionSet, ActionSave, ActionLoad:
		return true
	}
	return false
}
