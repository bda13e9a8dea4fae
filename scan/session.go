// Package scan tracks camera scanning sessions and decodes uploaded images.
//
// The camera itself lives with the client. A session acquires a Device when
// it starts and releases it exactly once, whether the scan succeeds or is
// cancelled. Only a successful delivery produces an analytics event.
package scan

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrvision/qrvision/analytics"
)

var (
	ErrSessionNotFound = errors.New("scan: session not found")
	ErrSessionClosed   = errors.New("scan: session already closed")
)

// Device is the capture resource a session holds while active.
type Device interface {
	Open() error
	Close() error
}

// RemoteDevice stands in for a camera owned by the browser; it holds nothing.
type RemoteDevice struct{}

func (RemoteDevice) Open() error  { return nil }
func (RemoteDevice) Close() error { return nil }

// State of a session.
type State string

const (
	StateActive    State = "active"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
)

// Result is what a successful scan yields.
type Result struct {
	Text  string `json:"text"`
	IsURL bool   `json:"is_url"`
}

// Session is one scanning attempt.
type Session struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at"`
	Failures  int       `json:"failures"`

	device  Device
	endedAt time.Time
}

const (
	// closedRetention is how long finished sessions stay visible to Get.
	closedRetention = 10 * time.Minute
	// activeTTL bounds how long an abandoned session may hold its device.
	activeTTL = 30 * time.Minute
)

// Manager owns the active sessions.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	newDevice func() Device
	events    chan<- analytics.Kind
	log       *slog.Logger
	now       func() time.Time
}

// NewManager creates a Manager that reports successful scans on events.
// A nil newDevice uses RemoteDevice.
func NewManager(events chan<- analytics.Kind, newDevice func() Device, log *slog.Logger) *Manager {
	if newDevice == nil {
		newDevice = func() Device { return RemoteDevice{} }
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		newDevice: newDevice,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// Start opens a device and registers a new active session.
func (m *Manager) Start() (Session, error) {
	dev := m.newDevice()
	if err := dev.Open(); err != nil {
		return Session{}, fmt.Errorf("open device: %w", err)
	}
	s := &Session{
		ID:        uuid.NewString(),
		State:     StateActive,
		StartedAt: m.now().UTC(),
		device:    dev,
	}
	m.mu.Lock()
	expired := m.pruneLocked()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	for _, old := range expired {
		m.release(old)
	}
	return *s, nil
}

// Get returns a snapshot of session id.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *s, nil
}

// Deliver completes session id with decoded text. It succeeds once per
// session; later calls return ErrSessionClosed.
func (m *Manager) Deliver(id, text string) (Result, error) {
	if err := m.finish(id, StateDone); err != nil {
		return Result{}, err
	}
	m.Emit()
	return Result{Text: text, IsURL: IsURL(text)}, nil
}

// Cancel ends session id without recording anything.
func (m *Manager) Cancel(id string) error {
	return m.finish(id, StateCancelled)
}

// Fail notes a decode failure. The session stays active.
func (m *Manager) Fail(id string, cause error) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if s.State != StateActive {
		m.mu.Unlock()
		return ErrSessionClosed
	}
	s.Failures++
	m.mu.Unlock()

	m.log.Debug("scan: decode failed", slog.String("session", id), slog.Any("error", cause))
	return nil
}

// Emit reports one successful scan that happened outside a session, such
// as a decoded upload. It never blocks: when nothing drains the events
// channel the event is dropped and logged.
func (m *Manager) Emit() {
	if m.events == nil {
		return
	}
	select {
	case m.events <- analytics.KindScanned:
	default:
		m.log.Warn("scan: analytics queue full, event dropped")
	}
}

func (m *Manager) finish(id string, to State) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if s.State != StateActive {
		m.mu.Unlock()
		return ErrSessionClosed
	}
	s.State = to
	s.endedAt = m.now()
	m.mu.Unlock()

	m.release(s)
	return nil
}

func (m *Manager) release(s *Session) {
	if err := s.device.Close(); err != nil {
		m.log.Warn("scan: release device", slog.String("session", s.ID), slog.Any("error", err))
	}
}

// pruneLocked forgets finished sessions past their retention and cancels
// active ones older than activeTTL. It returns the sessions it cancelled;
// the caller releases their devices after dropping m.mu.
func (m *Manager) pruneLocked() []*Session {
	now := m.now()
	closedCutoff := now.Add(-closedRetention)
	activeCutoff := now.Add(-activeTTL)

	var expired []*Session
	for id, s := range m.sessions {
		switch {
		case s.State == StateActive && s.StartedAt.Before(activeCutoff):
			s.State = StateCancelled
			s.endedAt = now
			expired = append(expired, s)
		case s.State != StateActive && s.endedAt.Before(closedCutoff):
			delete(m.sessions, id)
		}
	}
	if len(expired) > 0 {
		m.log.Info("scan: expired abandoned sessions", slog.Int("count", len(expired)))
	}
	return expired
}

// Active returns the number of sessions still holding a device.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.State == StateActive {
			n++
		}
	}
	return n
}

// Close cancels every active session.
func (m *Manager) Close() {
	m.mu.Lock()
	var ids []string
	for id, s := range m.sessions {
		if s.State == StateActive {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	for _, id := range ids {
		_ = m.Cancel(id)
	}
}

// IsURL reports whether text parses as an absolute URL, such as
// "https://example.com" or "mailto:a@b.c".
func IsURL(text string) bool {
	u, err := url.Parse(text)
	if err != nil {
		return false
	}
	return u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}
