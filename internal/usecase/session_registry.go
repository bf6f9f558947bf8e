package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hykura1501/e-commerce/internal/logging"
)

// BackendFactory builds the two backend variants for a session.
type BackendFactory interface {
	Local(sessionID string) CartBackend
	Remote(userID string) CartBackend
}

type RegistryConfig struct {
	Factory   BackendFactory
	Orders    OrderService
	Publisher EventPublisher
	Policy    LoginPolicy
	TTL       time.Duration // idle sessions older than this are dropped on access; 0 disables
	Logger    *slog.Logger
	Clock     func() time.Time
}

type session struct {
	ctrl     *CartController
	lastSeen time.Time
}

// SessionRegistry owns one CartController per visitor session. Eviction is
// lazy: there is no background sweeper.
type SessionRegistry struct {
	cfg      RegistryConfig
	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionRegistry(cfg RegistryConfig) *SessionRegistry {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New("sessions")
	}
	if cfg.Policy == "" {
		cfg.Policy = LoginReplace
	}
	return &SessionRegistry{cfg: cfg, sessions: map[string]*session{}}
}

// Get returns the hydrated controller for sessionID. userID is the
// authenticated user, or "" for an anonymous visitor. A local cart whose
// visitor is now authenticated is switched to remote with the configured
// policy, also when the session is new to this registry; a change of user
// (or a logout) starts a fresh cart.
func (r *SessionRegistry) Get(ctx context.Context, sessionID, userID string) (*CartController, error) {
	ctrl := r.lookup(sessionID, userID)

	if userID != "" && ctrl.UserID() == "" {
		if err := ctrl.SwitchToRemote(ctx, userID, r.cfg.Factory.Remote(userID), r.cfg.Policy); err != nil {
			return ctrl, err
		}
	}
	if ctrl.State() != StateReady {
		if err := ctrl.Hydrate(ctx); err != nil {
			return ctrl, err
		}
	}
	return ctrl, nil
}

// Peek returns the controller without creating, hydrating or touching it.
func (r *SessionRegistry) Peek(sessionID string) (*CartController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return s.ctrl, true
}

// Login applies an out-of-band sign-in to an existing anonymous session.
// Unknown sessions are ignored: their next signed-in request applies the
// policy when it builds the cart.
func (r *SessionRegistry) Login(ctx context.Context, sessionID, userID string) error {
	ctrl, ok := r.Peek(sessionID)
	if !ok || ctrl.UserID() != "" {
		return nil
	}
	return ctrl.SwitchToRemote(ctx, userID, r.cfg.Factory.Remote(userID), r.cfg.Policy)
}

// End forgets the session; its cart is abandoned.
func (r *SessionRegistry) End(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) lookup(sessionID, userID string) *CartController {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Clock()
	r.evictLocked(now)

	if s, ok := r.sessions[sessionID]; ok {
		owner := s.ctrl.UserID()
		if owner == userID || owner == "" {
			s.lastSeen = now
			return s.ctrl
		}
		r.cfg.Logger.Info("session owner changed, starting new cart", "session_id", sessionID)
	}

	ctrl := r.build(sessionID, userID)
	r.sessions[sessionID] = &session{ctrl: ctrl, lastSeen: now}
	return ctrl
}

func (r *SessionRegistry) build(sessionID, userID string) *CartController {
	var backend CartBackend
	switch {
	case userID == "":
		backend = r.cfg.Factory.Local(sessionID)
	case r.cfg.Policy == LoginReplace:
		backend = r.cfg.Factory.Remote(userID)
	default:
		// The session's slot may outlive the registry entry. Start local so
		// Get applies merge or discard to it on the way to the remote cart.
		backend = r.cfg.Factory.Local(sessionID)
		userID = ""
	}
	return NewCartController(backend, r.cfg.Orders,
		WithSessionID(sessionID),
		WithUserID(userID),
		WithPublisher(r.cfg.Publisher),
		WithLogger(r.cfg.Logger),
		WithClock(r.cfg.Clock),
	)
}

func (r *SessionRegistry) evictLocked(now time.Time) {
	if r.cfg.TTL <= 0 {
		return
	}
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.cfg.TTL {
			delete(r.sessions, id)
		}
	}
}
