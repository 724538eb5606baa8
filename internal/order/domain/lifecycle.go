package domain

import "strings"

// StockEffect is the inventory movement a transition requires.
type StockEffect int

const (
	EffectNone StockEffect = iota
	EffectRemove
	EffectRestore
)

const (
	ReasonPicking     = "picking"
	ReasonFulfillment = "fulfillment"
	ReasonCancelled   = "cancelled"
)

// Plan describes one accepted transition before anything is written.
type Plan struct {
	From   Status
	To     Status
	Effect StockEffect
	Reason string
	Noop   bool
}

// ParseStatus accepts the four lifecycle states, case-insensitively.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusCreated, StatusPicking, StatusFulfilled, StatusCancelled:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// PlanTransition decides whether current may move to target and which stock
// movement that implies. Stock leaves the shelf at most once: the first of picking
// or fulfilled removes it, cancellation returns it only if it was removed.
func PlanTransition(current Status, stockAdjusted bool, target Status) (Plan, error) {
	plan := Plan{From: current, To: target}
	if current.Terminal() {
		return plan, ErrOrderClosed
	}
	if current == target {
		plan.Noop = true
		return plan, nil
	}

	switch target {
	case StatusPicking:
		if current != StatusCreated {
			return plan, ErrInvalidTransition
		}
		if !stockAdjusted {
			plan.Effect = EffectRemove
			plan.Reason = ReasonPicking
		}
	case StatusFulfilled:
		if !stockAdjusted {
			plan.Effect = EffectRemove
			plan.Reason = ReasonFulfillment
		}
	case StatusCancelled:
		if stockAdjusted {
			plan.Effect = EffectRestore
			plan.Reason = ReasonCancelled
		}
	default:
		// created is only ever an initial state
		return plan, ErrInvalidTransition
	}
	return plan, nil
}
