package vgroup

// Outcome classifies how a reservation was satisfied.
type Outcome string

// Reservation outcomes.
const (
	// OutcomeShared means an existing group with identical bounds and chunk was reused.
	OutcomeShared Outcome = "shared"
	// OutcomeNewChild means a logical group was nested under a containing group.
	OutcomeNewChild Outcome = "new_child"
	// OutcomeNewRoot means a fresh forest root was allocated.
	OutcomeNewRoot Outcome = "new_root"
)

// Observer receives allocator events. Implementations must not call back
// into the allocator.
type Observer interface {
	// Reserved is called once per successful Reserve.
	Reserved(outcome Outcome, size int)
	// Conflict is called when a share search hits an incompatible group.
	Conflict()
	// Released is called once per Release; destroyed reports whether the group went away.
	Released(destroyed bool)
	// Dissolved is called once per Dissolve with the number of other handles invalidated.
	Dissolved(invalidated int)
	// Resynced is called after a resync with the number of groups whose range moved.
	Resynced(moved int)
	// GroupsChanged reports the change in the number of live groups.
	GroupsChanged(delta int)
}

// NopObserver ignores every event.
type NopObserver struct{}

// Reserved implements Observer.
func (NopObserver) Reserved(Outcome, int) {}

// Conflict implements Observer.
func (NopObserver) Conflict() {}

// Released implements Observer.
func (NopObserver) Released(bool) {}

// Dissolved implements Observer.
func (NopObserver) Dissolved(int) {}

// Resynced implements Observer.
func (NopObserver) Resynced(int) {}

// GroupsChanged implements Observer.
func (NopObserver) GroupsChanged(int) {}
