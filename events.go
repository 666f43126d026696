package convex

const (
	OVERLAP_ENTER EventType = iota
	OVERLAP_STAY
	OVERLAP_EXIT
)

type pairKey struct {
	bodyA *Body
	bodyB *Body
}

type EventType uint8

func (t EventType) String() string {
	switch t {
	case OVERLAP_ENTER:
		return "enter"
	case OVERLAP_STAY:
		return "stay"
	case OVERLAP_EXIT:
		return "exit"
	}
	return "unknown"
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

type OverlapEnterEvent struct {
	BodyA *Body
	BodyB *Body
}

func (e OverlapEnterEvent) Type() EventType { return OVERLAP_ENTER }

type OverlapStayEvent struct {
	BodyA *Body
	BodyB *Body
}

func (e OverlapStayEvent) Type() EventType { return OVERLAP_STAY }

type OverlapExitEvent struct {
	BodyA *Body
	BodyB *Body
}

func (e OverlapExitEvent) Type() EventType { return OVERLAP_EXIT }

// EventListener - callback for events
type EventListener func(event Event)

type delivery struct {
	listener EventListener
	event    Event
}

// Events tracks the overlapping pairs from one Scene.Overlaps call to the
// next and turns the differences into events.
type Events struct {
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 64),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordOverlaps marks the pairs, given as indices into bodies, active for
// the current step.
func (e *Events) recordOverlaps(bodies []*Body, pairs []Pair) {
	for _, p := range pairs {
		e.currentActivePairs[pairKey{bodyA: bodies[p.A], bodyB: bodies[p.B]}] = true
	}
}

// removeBody forgets the pairs of body without emitting exit events.
func (e *Events) removeBody(body *Body) {
	for pair := range e.previousActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.previousActivePairs, pair)
		}
	}
}

// processOverlapEvents compares current and previous pairs to detect
// Enter/Stay/Exit, then makes the current pairs the previous ones.
func (e *Events) processOverlapEvents() {
	for pair := range e.currentActivePairs {
		if e.previousActivePairs[pair] {
			e.buffer = append(e.buffer, OverlapStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		} else {
			e.buffer = append(e.buffer, OverlapEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	for pair := range e.previousActivePairs {
		if !e.currentActivePairs[pair] {
			e.buffer = append(e.buffer, OverlapExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Swap for next step and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// flush processes the step and returns the listener calls to make. They are
// made by the caller once the scene is unlocked, so that listeners may call
// back into the scene.
func (e *Events) flush() []delivery {
	e.processOverlapEvents()

	var deliveries []delivery
	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			deliveries = append(deliveries, delivery{listener: listener, event: event})
		}
	}
	e.buffer = e.buffer[:0]
	return deliveries
}

func deliver(deliveries []delivery) {
	for _, d := range deliveries {
		d.listener(d.event)
	}
}
