package client

// Texts shown before any fragment arrives and when no token is available.
const (
	LoadingText      = "…loading"
	AuthRequiredText = "Authentication required"
)

// Phase is the lifecycle position of a mounted session.
type Phase int

const (
	Idle Phase = iota
	Authenticating
	Connecting
	Streaming
	Completed
	Aborted
	Errored
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen from p.
func (p Phase) Terminal() bool {
	return p == Completed || p == Aborted || p == Errored
}

// State is the single observable value of a session. Text is the
// concatenation of every fragment received on the current connection, or
// one of LoadingText and AuthRequiredText.
type State struct {
	Phase   Phase
	Text    string
	Err     error
	Attempt int
}
