package impact

import "github.com/akmonengine/impact/narrowphase"

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case TRIGGER_ENTER:
		return "trigger_enter"
	case COLLISION_ENTER:
		return "collision_enter"
	case TRIGGER_STAY:
		return "trigger_stay"
	case COLLISION_STAY:
		return "collision_stay"
	case TRIGGER_EXIT:
		return "trigger_exit"
	case COLLISION_EXIT:
		return "collision_exit"
	}
	return "unknown"
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
	Pair() PairEvent
}

// PairEvent is the payload shared by every event. Result.Normal points from
// ShapeA toward ShapeB; Exit events carry the last positive result.
type PairEvent struct {
	ShapeA, ShapeB ShapeID
	OwnerA, OwnerB Owner
	Result         narrowphase.Result
}

func (e PairEvent) Pair() PairEvent { return e }

// Other returns the id and owner of the party facing id
func (e PairEvent) Other(id ShapeID) (ShapeID, Owner) {
	if id == e.ShapeA {
		return e.ShapeB, e.OwnerB
	}
	return e.ShapeA, e.OwnerA
}

// Trigger events
type TriggerEnterEvent struct{ PairEvent }

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct{ PairEvent }

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct{ PairEvent }

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events
type CollisionEnterEvent struct{ PairEvent }

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct{ PairEvent }

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct{ PairEvent }

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// EventListener - callback for events
type EventListener func(event Event)

// Listener is implemented by owners that want the events of their own shapes.
// other is the owner of the second party.
type Listener interface {
	OnCollisionEvent(event Event, other Owner)
}

// Events buffers the events of a step and dispatches them once the step is
// complete.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event
}

func NewEvents() Events {
	return Events{
		listeners: make(map[EventType][]EventListener),
		buffer:    make([]Event, 0, 256),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Events) enter(pair *CollisionPair) {
	payload := pairEvent(pair)
	if pair.Trigger {
		e.buffer = append(e.buffer, TriggerEnterEvent{payload})
	} else {
		e.buffer = append(e.buffer, CollisionEnterEvent{payload})
	}
}

func (e *Events) stay(pair *CollisionPair) {
	payload := pairEvent(pair)
	if pair.Trigger {
		e.buffer = append(e.buffer, TriggerStayEvent{payload})
	} else {
		e.buffer = append(e.buffer, CollisionStayEvent{payload})
	}
}

func (e *Events) exit(pair *CollisionPair) {
	payload := pairEvent(pair)
	if pair.Trigger {
		e.buffer = append(e.buffer, TriggerExitEvent{payload})
	} else {
		e.buffer = append(e.buffer, CollisionExitEvent{payload})
	}
}

func pairEvent(pair *CollisionPair) PairEvent {
	result := pair.Result
	if !result.Collided {
		result = pair.last
	}
	return PairEvent{
		ShapeA: pair.A,
		ShapeB: pair.B,
		OwnerA: pair.shapeA.owner,
		OwnerB: pair.shapeB.owner,
		Result: result,
	}
}

// flush sends all buffered events, to the subscribers first and then to the
// owners implementing Listener, and clears the buffer
func (e *Events) flush() {
	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}

		payload := event.Pair()
		if listener, ok := payload.OwnerA.(Listener); ok && payload.OwnerA.Alive() {
			listener.OnCollisionEvent(event, payload.OwnerB)
		}
		if listener, ok := payload.OwnerB.(Listener); ok && payload.OwnerB.Alive() {
			listener.OnCollisionEvent(event, payload.OwnerA)
		}
	}
	clear(e.buffer)
	e.buffer = e.buffer[:0]
}
