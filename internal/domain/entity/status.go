package entity

type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

func (s MessageStatus) rank() int {
	switch s {
	case StatusSending:
		return 1
	case StatusSent:
		return 2
	case StatusDelivered:
		return 3
	case StatusRead:
		return 4
	}
	return 0
}

func (s MessageStatus) Valid() bool {
	return s == StatusFailed || s.rank() > 0
}

// CanTransition reports whether a message may move from one status to another.
// The lattice only moves forward; failed is reachable from any non-terminal
// status and is itself terminal. Same-status moves are not transitions.
func CanTransition(from, to MessageStatus) bool {
	if from == StatusFailed || !to.Valid() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return to.rank() > from.rank()
}
