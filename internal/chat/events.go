package chat

// EventType identifies an event arriving from the chat gateway
type EventType string

const (
	// EventCredentials carries updated session credentials to persist
	EventCredentials EventType = "credentials"
	// EventChallenge carries a pairing challenge (QR code PNG)
	EventChallenge EventType = "challenge"
	// EventReady means the gateway authenticated the session
	EventReady EventType = "ready"
	// EventClosed means the gateway connection ended
	EventClosed EventType = "closed"
)

// CloseReasonLogout is the one terminal close reason: the account was
// logged out on the network side and stored credentials are void.
const CloseReasonLogout = "logged_out"

// Event is a single gateway event, decoded off the wire or injected
// synthetically by tests
type Event struct {
	Type        EventType
	Credentials []byte // EventCredentials
	Challenge   []byte // EventChallenge, PNG image bytes
	CloseReason string // EventClosed
}

// Terminal reports whether a close event voids the session credentials
func (e *Event) Terminal() bool {
	return e.Type == EventClosed && e.CloseReason == CloseReasonLogout
}
