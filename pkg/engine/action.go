package engine

import "fmt"

// Action is the single result of a run, interpreted by the host. The numeric
// values are a contract with the host simulation.
type Action int

const (
	ActionError    Action = -1
	ActionNone     Action = 0 // no-op / stop
	ActionUp       Action = 1
	ActionDown     Action = 2
	ActionLeft     Action = 3
	ActionRight    Action = 4
	ActionInteract Action = 5
	ActionAttack   Action = 6
	ActionFork     Action = 7
)

var actionNames = [...]string{"error", "none", "up", "down", "left", "right", "interact", "attack", "fork"}

// Clamp maps a raw ret value to an Action. Anything outside [-1, 7] is
// ActionNone.
func Clamp(v int32) Action {
	if v < int32(ActionError) || v > int32(ActionFork) {
		return ActionNone
	}
	return Action(v)
}

func (a Action) String() string {
	if a < ActionError || a > ActionFork {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a+1]
}

// Delta returns the grid step of a move action; y grows downward.
func (a Action) Delta() (dx, dy int) {
	switch a {
	case ActionUp:
		return 0, -1
	case ActionDown:
		return 0, 1
	case ActionLeft:
		return -1, 0
	case ActionRight:
		return 1, 0
	}
	return 0, 0
}

// IsMove reports whether a moves the character.
func (a Action) IsMove() bool {
	return a >= ActionUp && a <= ActionRight
}
