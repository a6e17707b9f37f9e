package ferry

import (
	"fmt"
	"strings"

	"github.com/OCAP2/ferry/pkg/core"
)

// Predicate reports whether v may board while the ferry is moored at ferrySide.
// Capacity is checked separately.
type Predicate func(v *core.Vehicle, ferrySide core.Side) bool

// DirectionGated admits a vehicle only for the crossing A->B as its first leg
// and B->A as its second. A vehicle that starts on side B can never board.
func DirectionGated(v *core.Vehicle, ferrySide core.Side) bool {
	if v.Side != ferrySide {
		return false
	}
	return (v.Side == core.SideA && v.Legs == 0) || (v.Side == core.SideB && v.Legs == 1)
}

// SideGated admits any unfinished vehicle waiting on the ferry's shore.
func SideGated(v *core.Vehicle, ferrySide core.Side) bool {
	return v.Side == ferrySide && v.Legs < core.RequiredLegs
}

// Rule pairs an eligibility predicate with the scope of the scheduler's
// termination check.
type Rule struct {
	Name     string
	Eligible Predicate
	// GlobalTermination makes the scheduler cross empty to the other shore
	// when nothing is eligible locally but unfinished vehicles remain there.
	GlobalTermination bool
}

var (
	// DirectionRule is the original protocol: direction-gated admission and a
	// termination check local to the current shore.
	DirectionRule = Rule{Name: "direction", Eligible: DirectionGated}

	// RoundTripRule lets a vehicle start from either shore and only stops once
	// every vehicle has finished.
	RoundTripRule = Rule{Name: "roundtrip", Eligible: SideGated, GlobalTermination: true}
)

// RuleByName returns the rule registered under name.
func RuleByName(name string) (Rule, error) {
	switch strings.ToLower(name) {
	case DirectionRule.Name:
		return DirectionRule, nil
	case RoundTripRule.Name:
		return RoundTripRule, nil
	default:
		return Rule{}, fmt.Errorf("unknown rule: %s", name)
	}
}

// Admission decides which waiting vehicle may take an offered berth.
type Admission int

const (
	// Ordered offers each berth to one named vehicle, the first that fits in
	// scan order.
	Ordered Admission = iota
	// Open lets any eligible waiter that fits take the berth.
	Open
)

func (a Admission) String() string {
	if a == Open {
		return "open"
	}
	return "ordered"
}

// AdmissionByName parses an admission mode.
func AdmissionByName(name string) (Admission, error) {
	switch strings.ToLower(name) {
	case "ordered":
		return Ordered, nil
	case "open":
		return Open, nil
	default:
		return Ordered, fmt.Errorf("unknown admission mode: %s", name)
	}
}
