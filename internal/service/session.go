package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/joeblew999/bikemap/internal/checkbox"
	"github.com/joeblew999/bikemap/internal/layers"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Session is one browser's layer widget. Operations on a session run one at
// a time, so each click settles before the next is applied.
type Session struct {
	ID      string
	Created time.Time

	mu     sync.Mutex
	widget *layers.Widget
	buf    *layers.CommandBuffer
}

// Do runs fn against the widget and returns the map calls it produced.
func (s *Session) Do(fn func(w *layers.Widget)) []MapCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.widget)
	return s.buf.Drain()
}

// Sync returns the calls that bring a fresh map to the current state.
func (s *Session) Sync() []MapCommand {
	return s.Do(func(w *layers.Widget) { w.Attach(s.buf) })
}

// State returns a snapshot of the widget.
func (s *Session) State() WidgetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() WidgetState {
	return WidgetState{
		Session:    s.ID,
		Nodes:      nodeStates(s.widget.Tree()),
		Filters:    s.widget.Filters(),
		Visibility: s.widget.Visibility(),
	}
}

// SessionService holds a layer widget per browser session and expires
// idle ones.
type SessionService struct {
	cache  *ttlcache.Cache[string, *Session]
	bus    *EventBus
	logger *slog.Logger
}

// NewSessionService creates a session service. bus may be nil.
func NewSessionService(ttl time.Duration, bus *EventBus) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &SessionService{
		cache:  ttlcache.New[string, *Session](ttlcache.WithTTL[string, *Session](ttl)),
		bus:    bus,
		logger: slog.With("c", "sessions"),
	}
	s.cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		s.logger.Info("session expired", "session", item.Key())
		s.publish(Event{Session: item.Key(), Action: "expired"})
	})
	return s
}

// Start runs the expiry loop until Stop is called.
func (s *SessionService) Start() { s.cache.Start() }

// Stop ends the expiry loop.
func (s *SessionService) Stop() { s.cache.Stop() }

// Create starts a session with every facility enabled.
func (s *SessionService) Create() (*Session, error) {
	sess := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		buf:     &layers.CommandBuffer{},
	}
	w, err := layers.New(sess.buf, layers.WithLogger(s.logger.With("session", sess.ID)))
	if err != nil {
		return nil, fmt.Errorf("create widget: %w", err)
	}
	// The style bundle already carries the initial filters.
	sess.buf.Drain()
	w.OnChange(func(changes []checkbox.Change) {
		s.publish(Event{
			Session:  sess.ID,
			Action:   "changed",
			ID:       string(changes[0].ID),
			Commands: sess.buf.Commands(),
		})
	})
	sess.widget = w

	s.cache.Set(sess.ID, sess, ttlcache.DefaultTTL)
	s.logger.Debug("session created", "session", sess.ID)
	s.publish(Event{Session: sess.ID, Action: "created"})
	return sess, nil
}

// Get returns a live session and extends its lifetime.
func (s *SessionService) Get(id string) (*Session, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return item.Value(), nil
}

// Click applies a user click on a checkbox.
func (s *SessionService) Click(id string, node checkbox.ID, checked bool) (Result, error) {
	return s.apply(id, node, func(w *layers.Widget) bool { return w.Click(node, checked) })
}

// Toggle flips a checkbox the way a click on its control does.
func (s *SessionService) Toggle(id string, node checkbox.ID) (Result, error) {
	return s.apply(id, node, func(w *layers.Widget) bool { return w.Toggle(node) })
}

// SetAll forces every facility on or off.
func (s *SessionService) SetAll(id string, checked bool) (Result, error) {
	return s.apply(id, layers.Root, func(w *layers.Widget) bool {
		w.SetAll(checked)
		return true
	})
}

func (s *SessionService) apply(id string, node checkbox.ID, fn func(*layers.Widget) bool) (Result, error) {
	sess, err := s.Get(id)
	if err != nil {
		return Result{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !fn(sess.widget) {
		return Result{}, fmt.Errorf("%w: %s", checkbox.ErrUnknownID, node)
	}
	return Result{State: sess.state(), Commands: sess.buf.Drain()}, nil
}

// Delete ends a session.
func (s *SessionService) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	s.cache.Delete(id)
	s.publish(Event{Session: id, Action: "deleted"})
	return nil
}

// Len returns the number of live sessions.
func (s *SessionService) Len() int { return s.cache.Len() }

// Sweep drops expired sessions immediately.
func (s *SessionService) Sweep() { s.cache.DeleteExpired() }

func (s *SessionService) publish(e Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
