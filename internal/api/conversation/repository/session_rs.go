package conversationRepository

import (
	"errors"
	"sync"
	"time"

	"FormFlowGolang/internal/api/conversation"
	"FormFlowGolang/internal/entity"
	contextPkg "FormFlowGolang/pkg/context"
	"FormFlowGolang/pkg/log"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// sessionRegistry keeps live conversation sessions in process memory. Each
// session owns exactly one mutex; a turn holds it from Acquire until Release,
// so a concurrent mutator observes ErrSessionBusy instead of interleaving.
// The idle reaper competes for the same lock and skips sessions mid-turn.
type sessionRegistry struct {
	mu    sync.RWMutex
	slots map[string]*sessionSlot
	log   *logrus.Logger
}

type sessionSlot struct {
	mu      sync.Mutex
	session *entity.ConversationSession
}

func newSessionRegistry(logger *logrus.Logger) *sessionRegistry {
	return &sessionRegistry{
		slots: make(map[string]*sessionSlot),
		log:   logger,
	}
}

func (r *sessionRegistry) Create(ctx context.Context, session *entity.ConversationSession) error {
	requestID := contextPkg.GetRequestID(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slots[session.ID]; ok {
		return errors.New("conversation session id collision")
	}

	r.slots[session.ID] = &sessionSlot{session: session}

	r.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": session.ID,
		"active":     len(r.slots),
	}).Debug("Conversation session registered")

	return nil
}

// Acquire takes the session lease. The caller owns the session until Release
// or Remove; a second caller gets ErrSessionBusy while the lease is held.
func (r *sessionRegistry) Acquire(ctx context.Context, sessionID string) (*entity.ConversationSession, error) {
	requestID := contextPkg.GetRequestID(ctx)

	r.mu.RLock()
	slot, ok := r.slots[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, conversation.ErrSessionNotFound
	}

	if !slot.mu.TryLock() {
		r.log.WithFields(log.Fields{
			"request_id": requestID,
			"session_id": sessionID,
		}).Warn("Conversation session lease contention")

		return nil, conversation.ErrSessionBusy
	}

	// The slot can be removed between the lookup and the lock.
	r.mu.RLock()
	_, ok = r.slots[sessionID]
	r.mu.RUnlock()

	if !ok || slot.session == nil {
		slot.mu.Unlock()
		return nil, conversation.ErrSessionNotFound
	}

	return slot.session, nil
}

func (r *sessionRegistry) Release(sessionID string) {
	r.mu.RLock()
	slot, ok := r.slots[sessionID]
	r.mu.RUnlock()

	if ok {
		slot.mu.Unlock()
	}
}

// Remove deletes the session and gives back its final state. The caller must
// hold the lease; the lease is consumed here, so a later Release is a no-op.
func (r *sessionRegistry) Remove(ctx context.Context, sessionID string) (*entity.ConversationSession, error) {
	requestID := contextPkg.GetRequestID(ctx)

	r.mu.Lock()
	slot, ok := r.slots[sessionID]
	if ok {
		delete(r.slots, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return nil, conversation.ErrSessionNotFound
	}

	session := slot.session
	slot.session = nil
	slot.mu.Unlock()

	r.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": sessionID,
	}).Debug("Conversation session removed")

	return session, nil
}

// Touch refreshes the idle clock when the session is not mid-turn. A held
// lease means a turn is in flight, and the turn refreshes activity itself.
func (r *sessionRegistry) Touch(ctx context.Context, sessionID string) error {
	r.mu.RLock()
	slot, ok := r.slots[sessionID]
	r.mu.RUnlock()

	if !ok {
		return conversation.ErrSessionNotFound
	}

	if !slot.mu.TryLock() {
		return nil
	}
	defer slot.mu.Unlock()

	if slot.session != nil {
		slot.session.LastActivity = time.Now()
	}

	return nil
}

// ReapIdle removes sessions idle past ttl. It takes each session lease the
// same way a turn does, so a session mid-turn is never reaped.
func (r *sessionRegistry) ReapIdle(ctx context.Context, ttl time.Duration) []string {
	cutoff := time.Now().Add(-ttl)

	r.mu.RLock()
	candidates := make(map[string]*sessionSlot, len(r.slots))
	for sessionID, slot := range r.slots {
		candidates[sessionID] = slot
	}
	r.mu.RUnlock()

	var reaped []string
	for sessionID, slot := range candidates {
		if !slot.mu.TryLock() {
			continue
		}

		if slot.session == nil || !slot.session.LastActivity.Before(cutoff) {
			slot.mu.Unlock()
			continue
		}

		session := slot.session
		session.State = entity.StateTerminated
		slot.session = nil

		r.mu.Lock()
		delete(r.slots, sessionID)
		r.mu.Unlock()

		slot.mu.Unlock()

		r.log.WithFields(log.Fields{
			"session_id":    sessionID,
			"last_activity": session.LastActivity.Format(time.RFC3339),
		}).Info("Idle conversation session reaped")

		reaped = append(reaped, sessionID)
	}

	return reaped
}

func (r *sessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.slots)
}
