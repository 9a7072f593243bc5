// Package lifecycle holds the pickup state machine.
//
//	pending ──assign──▶ assigned ──▶ completed
//	   │                   │
//	   └──────▶ cancelled ◀┘
//
// completed and cancelled are terminal. Assignment is its own operation
// (it also records the volunteer); every other move goes through Validate.
package lifecycle

import (
	"github.com/foodshare/pickup-api/internal/apperror"
	"github.com/foodshare/pickup-api/internal/model"
)

// transitions lists, per status, the statuses a status change may move to.
// pending→assigned is absent on purpose: only Assign may do that.
var transitions = map[model.PickupStatus][]model.PickupStatus{
	model.StatusPending:  {model.StatusCancelled},
	model.StatusAssigned: {model.StatusCompleted, model.StatusCancelled},
}

// CanTransition reports whether a status change from → to is allowed.
func CanTransition(from, to model.PickupStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns apperror.ErrInvalidTransition when from → to has no edge.
func Validate(from, to model.PickupStatus) error {
	if !CanTransition(from, to) {
		return apperror.InvalidTransition(string(from), string(to))
	}
	return nil
}

// IsTerminal reports whether no further change is possible from s.
func IsTerminal(s model.PickupStatus) bool {
	return len(transitions[s]) == 0
}
