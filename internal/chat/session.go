package chat

import (
	"context"
	"log"
	"sync"
	"time"
)

// State is the connection state of the messaging session
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StatePairing      State = "pairing"
	StateConnected    State = "connected"
)

// Status is a point-in-time snapshot safe to expose to dashboards.
// It never carries raw credentials or the raw pairing payload.
type Status struct {
	State        State  `json:"state"`
	ChallengeURL string `json:"challenge_url,omitempty"`
}

// CredentialStore persists session credentials across restarts
type CredentialStore interface {
	Load() ([]byte, error)
	Save(blob []byte) error
	Clear() error
}

// ChallengePublisher turns a raw pairing challenge image into a
// renderable reference (a public URL) for operators to scan
type ChallengePublisher interface {
	Publish(ctx context.Context, png []byte) (string, error)
}

// StateListener is invoked after every state transition
type StateListener func(state State, challengeURL string)

// Session is the process-wide messaging session: a state machine over one
// gateway connection, with automatic reconnect on every non-terminal close.
// Only an explicit logout from the network tears it down for good.
type Session struct {
	transport  Transport
	creds      CredentialStore
	challenges ChallengePublisher

	sendTimeout time.Duration
	retryDelay  time.Duration

	mu           sync.RWMutex
	state        State
	challengeURL string
	conn         Conn

	listeners []StateListener

	// Pending listener notifications, drained by a single goroutine so
	// transitions reach listeners in the order they happened.
	notifyMu  sync.Mutex
	pending   []stateChange
	notifying bool
}

type stateChange struct {
	state State
	url   string
}

// NewSession creates the messaging session manager
func NewSession(transport Transport, creds CredentialStore, challenges ChallengePublisher, sendTimeout, retryDelay time.Duration) *Session {
	return &Session{
		transport:   transport,
		creds:       creds,
		challenges:  challenges,
		sendTimeout: sendTimeout,
		retryDelay:  retryDelay,
		state:       StateDisconnected,
	}
}

// OnStateChange registers a transition listener. Must be called before Run.
func (s *Session) OnStateChange(fn StateListener) {
	s.listeners = append(s.listeners, fn)
}

// Run drives the session until the context is cancelled or the network
// signals a terminal logout. Reconnects after every other disconnect.
func (s *Session) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			s.setState(StateDisconnected, "")
			return
		}

		s.setState(StateConnecting, "")

		blob, err := s.creds.Load()
		if err != nil {
			log.Printf("⚠️  Failed to load session credentials: %v", err)
			blob = nil
		}

		conn, err := s.transport.Dial(ctx, blob)
		if err != nil {
			log.Printf("⚠️  Gateway connection failed: %v (retrying in %s)", err, s.retryDelay)
			if !s.sleep(ctx) {
				s.setState(StateDisconnected, "")
				return
			}
			continue
		}

		terminal := s.handleConn(ctx, conn)
		conn.Close()
		s.clearConn()

		if terminal {
			// Explicit logout from the network: discard credentials so the
			// next start begins with a fresh pairing.
			if err := s.creds.Clear(); err != nil {
				log.Printf("⚠️  Failed to clear session credentials: %v", err)
			}
			log.Println("🛑 Messaging session logged out, credentials discarded")
			s.setState(StateDisconnected, "")
			return
		}

		// Drop back to connecting for the retry wait so status reads
		// don't report a connection that is already gone
		s.setState(StateConnecting, "")
		if !s.sleep(ctx) {
			s.setState(StateDisconnected, "")
			return
		}
	}
}

// handleConn consumes gateway events until the connection ends.
// Returns true when the close was terminal (explicit logout).
func (s *Session) handleConn(ctx context.Context, conn Conn) bool {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	for {
		event, err := conn.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			log.Printf("⚠️  Gateway read error: %v (reconnecting)", err)
			return false
		}

		switch event.Type {
		case EventCredentials:
			if err := s.creds.Save(event.Credentials); err != nil {
				log.Printf("⚠️  Failed to persist session credentials: %v", err)
			}

		case EventChallenge:
			url := ""
			if s.challenges != nil {
				published, err := s.challenges.Publish(ctx, event.Challenge)
				if err != nil {
					log.Printf("⚠️  Failed to publish pairing challenge: %v", err)
				} else {
					url = published
				}
			}
			log.Println("📱 Pairing challenge received, waiting for operator scan")
			s.setState(StatePairing, url)

		case EventReady:
			log.Println("✅ Messaging session connected")
			s.setState(StateConnected, "")

		case EventClosed:
			if event.Terminal() {
				return true
			}
			log.Printf("⚠️  Gateway closed connection (%s), reconnecting", event.CloseReason)
			return false
		}
	}
}

// Send delivers one message if the session is connected. Returns false
// immediately otherwise; delivery failures are logged, never raised.
func (s *Session) Send(destination, text string) bool {
	s.mu.RLock()
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.RUnlock()

	if !connected || conn == nil {
		return false
	}

	if err := conn.SendText(destination, text, s.sendTimeout); err != nil {
		log.Printf("⚠️  Failed to send message to %s: %v", destination, err)
		return false
	}
	return true
}

// StatusSnapshot returns the current state without blocking on the
// session loop
func (s *Session) StatusSnapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{State: s.state, ChallengeURL: s.challengeURL}
}

// Logout asks the gateway to terminate the session. The terminal close
// event then flows back through the event loop, which clears credentials.
// When no connection is live the credentials are discarded directly.
func (s *Session) Logout() error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn != nil {
		return conn.Logout()
	}
	return s.creds.Clear()
}

func (s *Session) setState(state State, challengeURL string) {
	s.mu.Lock()
	changed := s.state != state || s.challengeURL != challengeURL
	s.state = state
	s.challengeURL = challengeURL
	listeners := s.listeners
	s.mu.Unlock()

	if !changed || len(listeners) == 0 {
		return
	}

	// Queue the transition and make sure exactly one drain goroutine is
	// working the queue, so listeners see transitions in order without
	// ever blocking the session loop.
	s.notifyMu.Lock()
	s.pending = append(s.pending, stateChange{state: state, url: challengeURL})
	if s.notifying {
		s.notifyMu.Unlock()
		return
	}
	s.notifying = true
	s.notifyMu.Unlock()

	go s.drainNotifications(listeners)
}

func (s *Session) drainNotifications(listeners []StateListener) {
	for {
		s.notifyMu.Lock()
		if len(s.pending) == 0 {
			s.notifying = false
			s.notifyMu.Unlock()
			return
		}
		change := s.pending[0]
		s.pending = s.pending[1:]
		s.notifyMu.Unlock()

		for _, fn := range listeners {
			fn(change.state, change.url)
		}
	}
}

func (s *Session) clearConn() {
	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
}

// sleep waits out the retry delay; false means the context ended first
func (s *Session) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.retryDelay):
		return true
	}
}
