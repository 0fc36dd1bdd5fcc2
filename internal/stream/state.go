package stream

// State of the stream connection.
//
//	Disconnected → Connecting → Open → Closing → Disconnected → ...
//
// GaveUp is terminal.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateGaveUp
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateGaveUp:
		return "gave up"
	default:
		return "unknown"
	}
}
