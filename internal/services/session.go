package services

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// State is the conversation state of one user
type State string

const (
	StateNone                 State = ""
	StateAwaitingGender       State = "ESPERANDO_GENERO"
	StateAwaitingWatchType    State = "ESPERANDO_TIPO"
	StateAwaitingOrderData    State = "ESPERANDO_DATOS_PEDIDO"
	StateAwaitingPaymentProof State = "ESPERANDO_COMPROBANTE"
	StateAdvisor              State = "MODO_ASESOR"
)

// ActiveOrder remembers which product a purchase flow refers to
type ActiveOrder struct {
	ProductCode string
	LastViewed  string
}

// Session is the per-user conversation record. All fields are guarded by the
// per-session mutex: callers must hold Lock() while reading or mutating.
type Session struct {
	UserID string

	State  State
	Gender string        // set while State == StateAwaitingWatchType
	Region models.Region // set while State == StateAwaitingOrderData

	History          []models.ChatMessage
	ActiveOrder      *ActiveOrder
	PendingOrderText string
	HasGreeted       bool

	CreatedAt  time.Time
	LastActive time.Time

	// Timer handles, cancelled on every transition or teardown
	nudgeTimer     *time.Timer
	endTimer       *time.Timer
	graceTimer     *time.Timer
	hibernateTimer *time.Timer

	// gen invalidates stale timer callbacks fired after a reset
	gen uint64

	mu sync.Mutex
}

// Lock serializes processing for this user. Inbound events for the same user
// must not interleave state transitions.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-user lock
func (s *Session) Unlock() { s.mu.Unlock() }

// SessionManager owns every live session, keyed by user phone
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	nudgeAfter     time.Duration
	endAfter       time.Duration
	graceAfter     time.Duration
	hibernateAfter time.Duration

	onNudge      func(userID string)
	onSessionEnd func(userID string)
}

// Singleton instance
var (
	sessionManagerInstance *SessionManager
	sessionManagerOnce     sync.Once
)

// NewSessionManager creates a new session manager. Timer horizons come from
// the environment with the defaults the conversation flow expects: a 10
// minute nudge, a 12 minute session end, a 15 second order-data grace period
// and a 1 hour payment-proof hibernation.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions:       make(map[string]*Session),
		nudgeAfter:     envDuration("SESSION_NUDGE_MINUTES", time.Minute, 10),
		endAfter:       envDuration("SESSION_END_MINUTES", time.Minute, 12),
		graceAfter:     envDuration("ORDER_GRACE_SECONDS", time.Second, 15),
		hibernateAfter: envDuration("HIBERNATION_MINUTES", time.Minute, 60),
	}
}

// GetSessionManager returns the singleton session manager instance
func GetSessionManager() *SessionManager {
	sessionManagerOnce.Do(func() {
		if sessionManagerInstance == nil {
			log.Println("Warning: SessionManager not initialized. Creating new instance.")
			sessionManagerInstance = NewSessionManager()
		}
	})
	return sessionManagerInstance
}

// SetSessionManager sets the global session manager instance (call from main.go)
func SetSessionManager(sm *SessionManager) {
	sessionManagerInstance = sm
}

func envDuration(key string, unit time.Duration, fallback int) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * unit
		}
		log.Printf("⚠️  Invalid %s=%q - using default", key, raw)
	}
	return time.Duration(fallback) * unit
}

// OnNudge registers the inactivity-nudge callback (call before serving)
func (sm *SessionManager) OnNudge(fn func(userID string)) {
	sm.onNudge = fn
}

// OnSessionEnd registers the hard session-end callback (call before serving)
func (sm *SessionManager) OnSessionEnd(fn func(userID string)) {
	sm.onSessionEnd = fn
}

// Get returns the session for a user, creating a default one if absent
func (sm *SessionManager) Get(userID string) *Session {
	sm.mu.RLock()
	session, exists := sm.sessions[userID]
	sm.mu.RUnlock()
	if exists {
		return session
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if session, exists = sm.sessions[userID]; exists {
		return session
	}

	session = &Session{
		UserID:     userID,
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}
	sm.sessions[userID] = session
	log.Printf("Session created for %s", userID)
	return session
}

// Peek returns an existing session without creating one
func (sm *SessionManager) Peek(userID string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, exists := sm.sessions[userID]
	return session, exists
}

// Touch resets the inactivity timers for a user and advances the generation,
// invalidating every timer armed before this message. Called with the session
// locked on every inbound event; the nudge fires first, the session end
// clears everything.
func (sm *SessionManager) Touch(sess *Session) {
	sess.LastActive = time.Now()

	sess.gen++
	gen := sess.gen
	userID := sess.UserID

	stopTimer(&sess.nudgeTimer)
	stopTimer(&sess.endTimer)

	sess.nudgeTimer = time.AfterFunc(sm.nudgeAfter, func() {
		if !sm.stillCurrent(userID, gen) {
			return
		}
		if sm.onNudge != nil {
			sm.onNudge(userID)
		}
	})
	sess.endTimer = time.AfterFunc(sm.endAfter, func() {
		target, ok := sm.Peek(userID)
		if !ok {
			return
		}
		target.Lock()
		if target.gen != gen {
			// A message arrived while this fire was queued on the lock
			target.Unlock()
			return
		}
		sm.Clear(userID, false)
		target.Unlock()
		if sm.onSessionEnd != nil {
			sm.onSessionEnd(userID)
		}
	})
}

// StartGrace arms the incomplete-order grace timer. Re-arming replaces the
// previous timer, so each new fragment restarts the countdown.
func (sm *SessionManager) StartGrace(sess *Session, fn func(userID string)) {
	gen := sess.gen
	userID := sess.UserID

	stopTimer(&sess.graceTimer)
	sess.graceTimer = time.AfterFunc(sm.graceAfter, func() {
		if !sm.stillCurrent(userID, gen) {
			return
		}
		fn(userID)
	})
}

// StopGrace cancels a pending grace recheck
func (sm *SessionManager) StopGrace(sess *Session) {
	stopTimer(&sess.graceTimer)
}

// StartHibernation arms the long-horizon payment-proof timer. Validity is the
// callback's job: it must re-check session state under the lock, so the timer
// survives ordinary activity while the wait is on and Clear cancels it.
func (sm *SessionManager) StartHibernation(sess *Session, fn func(userID string)) {
	userID := sess.UserID

	stopTimer(&sess.hibernateTimer)
	sess.hibernateTimer = time.AfterFunc(sm.hibernateAfter, func() {
		fn(userID)
	})
}

// stillCurrent reports whether the session a timer was armed against still
// exists in the same generation. Timers that lost the race with a reset or a
// newer message are dropped instead of firing against changed state.
func (sm *SessionManager) stillCurrent(userID string, gen uint64) bool {
	session, exists := sm.Peek(userID)
	if !exists {
		return false
	}
	session.Lock()
	defer session.Unlock()
	return session.gen == gen
}

// Clear tears a session down. With keepHistory the conversation memory and
// greeting flag survive (normal purchase completion); without it the session
// is destroyed entirely (explicit exit or inactivity timeout). The caller
// must hold the session lock: every field mutation here is guarded by it.
func (sm *SessionManager) Clear(userID string, keepHistory bool) {
	sm.mu.Lock()
	session, exists := sm.sessions[userID]
	if !exists {
		sm.mu.Unlock()
		return
	}
	if !keepHistory {
		delete(sm.sessions, userID)
	}
	sm.mu.Unlock()

	session.gen++
	stopTimer(&session.nudgeTimer)
	stopTimer(&session.endTimer)
	stopTimer(&session.graceTimer)
	stopTimer(&session.hibernateTimer)

	if keepHistory {
		session.State = StateNone
		session.Gender = ""
		session.Region = ""
		session.PendingOrderText = ""
		session.ActiveOrder = nil
		log.Printf("Session state cleared for %s (history kept)", userID)
		return
	}

	session.History = nil
	session.PendingOrderText = ""
	session.State = StateNone
	session.ActiveOrder = nil
	log.Printf("Session destroyed for %s", userID)
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// SessionInfo is a read-only snapshot for the admin endpoint
type SessionInfo struct {
	UserID     string    `json:"user_id"`
	State      State     `json:"state"`
	HasGreeted bool      `json:"has_greeted"`
	Turns      int       `json:"history_turns"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// ActiveSessions returns snapshots of every live session (for monitoring)
func (sm *SessionManager) ActiveSessions() []SessionInfo {
	sessions := sm.snapshot()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		session.Lock()
		infos = append(infos, SessionInfo{
			UserID:     session.UserID,
			State:      session.State,
			HasGreeted: session.HasGreeted,
			Turns:      len(session.History),
			CreatedAt:  session.CreatedAt,
			LastActive: session.LastActive,
		})
		session.Unlock()
	}
	return infos
}

// Shutdown cancels every timer, used on graceful server stop
func (sm *SessionManager) Shutdown() {
	for _, session := range sm.snapshot() {
		session.Lock()
		session.gen++
		stopTimer(&session.nudgeTimer)
		stopTimer(&session.endTimer)
		stopTimer(&session.graceTimer)
		stopTimer(&session.hibernateTimer)
		session.Unlock()
	}
}

// snapshot copies the live session pointers so callers can lock each session
// without holding the registry lock
func (sm *SessionManager) snapshot() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}
