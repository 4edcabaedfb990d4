package event

// Type identifies the type of domain event
type Type string

const (
	TypeApplicationStatusChanged Type = "application.status_changed"
	TypeWaitlistRanked           Type = "waitlist.ranked"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationStatusChanged, TypeWaitlistRanked:
		return true
	default:
		return false
	}
}
