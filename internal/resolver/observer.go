package resolver

// Outcome is the result class of one resolution call.
type Outcome int

const (
	OutcomeResolved Outcome = iota + 1
	OutcomeNotFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes one completed resolution call.
type Event struct {
	Element    ElementKind
	Identifier string
	// Target is the entity type or operation the call was scoped to, if any.
	Target  string
	Outcome Outcome
	// Matches is the number of elements returned.
	Matches int
	Err     error
}

// Observer is notified synchronously after every resolution call.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	ObserveResolution(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) ObserveResolution(e Event) { f(e) }

// Observers fans an event out to several observers in order.
type Observers []Observer

func (o Observers) ObserveResolution(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveResolution(e)
		}
	}
}

type noopObserver struct{}

func (noopObserver) ObserveResolution(Event) {}

func outcomeOf(matches int, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFailed
	case matches == 0:
		return OutcomeNotFound
	default:
		return OutcomeResolved
	}
}
