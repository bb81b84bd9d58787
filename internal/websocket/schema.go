package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionClear    Action = "clear"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionMark     Action = "mark"
	ActionJump     Action = "jump"
	ActionFinish   Action = "finish"
	ActionPing     Action = "ping"
)

// RequestPayload is every client message. Option is used by select and
// Index by jump.
type RequestPayload struct {
	Action Action `json:"action"`
	Option string `json:"option,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventTick carries the periodic snapshot.
	EventTick Event = "tick"
	// EventState carries the snapshot after an applied action.
	EventState Event = "state"
	// EventRejected carries the unchanged snapshot after an ignored action.
	EventRejected Event = "rejected"
	// EventCompleted carries the final result, sent once.
	EventCompleted Event = "completed"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// ResponsePayload is every server message.
type ResponsePayload struct {
	Event  Event       `json:"event"`
	Action Action      `json:"action,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}
