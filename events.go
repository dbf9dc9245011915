package formulagraph

// EventType names something an engine reports to its listeners.
type EventType uint8

// Engine events.
const (
	SheetAdded EventType = iota
	SheetRemoved
	SheetRenamed
	ValuesUpdated
	NamedExpressionAdded
	NamedExpressionRemoved
)

func (t EventType) String() string {
	switch t {
	case SheetAdded:
		return "SheetAdded"
	case SheetRemoved:
		return "SheetRemoved"
	case SheetRenamed:
		return "SheetRenamed"
	case ValuesUpdated:
		return "ValuesUpdated"
	case NamedExpressionAdded:
		return "NamedExpressionAdded"
	case NamedExpressionRemoved:
		return "NamedExpressionRemoved"
	}
	return "Unknown"
}

// Event is passed to listeners. Sheet events carry the sheet, name events
// the upper-cased name and ValuesUpdated the exported changes.
type Event struct {
	Type      EventType
	SheetID   int
	SheetName string
	// OldName is the name before a rename.
	OldName string
	Name    string
	Changes []ExportedChange
}

// EventHandler receives engine events on the goroutine mutating the engine.
type EventHandler func(Event)

type emitter struct {
	handlers map[EventType][]EventHandler
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventType][]EventHandler)}
}

func (em *emitter) on(t EventType, h EventHandler) {
	em.handlers[t] = append(em.handlers[t], h)
}

func (em *emitter) emit(ev Event) {
	for _, h := range em.handlers[ev.Type] {
		h(ev)
	}
}
