package session

import (
	"sync"
	"time"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/logging"
)

// Store is a volatile conversation store keeping sessions in a process
// local map. It is safe for concurrent access. Idle sessions are swept
// lazily: any read access first evicts sessions whose last activity exceeds
// the configured TTL, so no background scheduler is needed.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*core.ConversationSession

	maxTurns int
	ttl      time.Duration
	logger   logging.Logger

	// now is swappable for tests.
	now func() time.Time
}

// Options configure a Store.
type Options struct {
	// MaxTurns bounds each session's history; older turns are dropped.
	MaxTurns int
	// TTL is the idle duration after which a session is evicted. Zero
	// disables eviction.
	TTL time.Duration
	// Logger receives merge-conflict and eviction events.
	Logger logging.Logger
}

// NewStore constructs an empty store.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{MaxTurns: 8, TTL: 24 * time.Hour, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Store{
		sessions: make(map[string]*core.ConversationSession),
		maxTurns: opts.MaxTurns,
		ttl:      opts.TTL,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// GetOrCreate returns the live session for id, creating it when absent.
// Access sweeps expired sessions first.
func (s *Store) GetOrCreate(id string) *core.ConversationSession {
	s.sweep()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id)
}

// AddTurn appends a turn to the session's bounded history.
func (s *Store) AddTurn(id string, t core.Turn) {
	s.GetOrCreate(id).AddTurn(t, s.maxTurns)
}

// Recent returns a copy of the last k turns of the session. A missing
// session yields an empty history rather than an error.
func (s *Store) Recent(id string, k int) []core.Turn {
	return s.GetOrCreate(id).Recent(k)
}

// GetEntities returns a deep copy of the session's entity map.
func (s *Store) GetEntities(id string) core.EntityMap {
	return s.GetOrCreate(id).GetEntities()
}

// SetEntities overwrites the session's entity map wholesale. Prefer
// UpdateEntitiesSafe for incremental writes.
func (s *Store) SetEntities(id string, e core.EntityMap) {
	s.GetOrCreate(id).SetEntities(e)
}

// UpdateEntitiesSafe merges an update into the session's entities without
// blind overwrites:
//
//   - identity fields (name, email, phone) are adopted only when the new
//     value is non-empty and differs from the current one
//   - "current" fields shift the previous value into the matching "last"
//     field before adopting the new one
//   - the nested booking record is merged key by key, never replaced
//
// source labels the writer (extractor, resolver, booking) for traceability.
func (s *Store) UpdateEntitiesSafe(id string, upd core.EntityUpdate, source string) core.EntityMap {
	sess := s.GetOrCreate(id)
	ents := sess.GetEntities()

	s.mergeIdentity(&ents.UserName, upd.UserName, "user_name", id, source)
	s.mergeIdentity(&ents.UserEmail, upd.UserEmail, "user_email", id, source)
	s.mergeIdentity(&ents.UserPhone, upd.UserPhone, "user_phone", id, source)

	if upd.CurrentPlace != "" && upd.CurrentPlace != ents.CurrentPlace {
		if ents.CurrentPlace != "" {
			ents.LastMentionedPlace = ents.CurrentPlace
		}
		ents.CurrentPlace = upd.CurrentPlace
	}
	if upd.CurrentTopic != "" && upd.CurrentTopic != ents.CurrentTopic {
		if ents.CurrentTopic != "" {
			ents.LastSubject = ents.CurrentTopic
		}
		ents.CurrentTopic = upd.CurrentTopic
	}
	if upd.LastSubject != "" {
		ents.LastSubject = upd.LastSubject
	}

	if upd.Booking != nil {
		ents.Booking = mergeBooking(ents.Booking, upd.Booking)
	}

	if len(upd.Extra) > 0 {
		if ents.Extra == nil {
			ents.Extra = map[string]string{}
		}
		for k, v := range upd.Extra {
			ents.Extra[k] = v
		}
	}

	sess.SetEntities(ents)
	s.logger.Debug("entities merged", "session_id", id, "source", source)
	return ents.Clone()
}

func (s *Store) mergeIdentity(current *string, incoming, field, id, source string) {
	if incoming == "" || incoming == *current {
		return
	}
	if *current != "" {
		s.logger.Info("identity field conflict, adopting newer value",
			"session_id", id, "field", field, "source", source)
	}
	*current = incoming
}

// mergeBooking unions upd into base slot by slot. Zero values in upd leave
// base untouched, so repeating a non-informative message never regresses
// filled slots.
func mergeBooking(base, upd *core.BookingState) *core.BookingState {
	if base == nil {
		return upd.Clone()
	}
	merged := base.Clone()
	if upd.Status != "" {
		merged.Status = upd.Status
	}
	if upd.Confirmed {
		merged.Confirmed = true
	}
	for _, slot := range append(append([]string{}, core.SlotPriority...), core.SlotSpecialRequest) {
		if v := upd.Slot(slot); v != "" {
			merged.SetSlot(slot, v)
		}
	}
	if upd.RestaurantID != 0 {
		merged.RestaurantID = upd.RestaurantID
	}
	if upd.OffTopicCount != 0 {
		merged.OffTopicCount = upd.OffTopicCount
	}
	if upd.PendingQuestion != "" {
		merged.PendingQuestion = upd.PendingQuestion
	}
	if upd.Paused {
		merged.Paused = true
	}
	if upd.SuggestedPlace != "" {
		merged.SuggestedPlace = upd.SuggestedPlace
	}
	if len(upd.Recommendations) > 0 {
		merged.Recommendations = append([]core.Service(nil), upd.Recommendations...)
	}
	if upd.AwaitingSelection {
		merged.AwaitingSelection = true
	}
	if upd.ModifyingSlot != "" {
		merged.ModifyingSlot = upd.ModifyingSlot
	}
	if upd.NextAsk != "" {
		merged.NextAsk = upd.NextAsk
	}
	if len(upd.CollectedInfo) > 0 {
		if merged.CollectedInfo == nil {
			merged.CollectedInfo = map[string]string{}
		}
		for k, v := range upd.CollectedInfo {
			merged.CollectedInfo[k] = v
		}
	}
	return merged
}

// Booking returns a deep copy of the session's booking record, or nil.
func (s *Store) Booking(id string) *core.BookingState {
	return s.GetOrCreate(id).GetEntities().Booking
}

// SetBooking overwrites the session's booking record. Used by the booking
// state machine, which owns the record's lifecycle.
func (s *Store) SetBooking(id string, b *core.BookingState) {
	sess := s.GetOrCreate(id)
	ents := sess.GetEntities()
	ents.Booking = b.Clone()
	sess.SetEntities(ents)
}

// Stats reports store-wide counters for the admin surface.
func (s *Store) Stats() map[string]any {
	s.sweep()
	s.mu.RLock()
	defer s.mu.RUnlock()
	totalTurns := 0
	activeBookings := 0
	for _, sess := range s.sessions {
		totalTurns += sess.TurnCount()
		if sess.GetEntities().Booking.Active() {
			activeBookings++
		}
	}
	return map[string]any{
		"sessions":        len(s.sessions),
		"total_turns":     totalTurns,
		"active_bookings": activeBookings,
	}
}

// Clear removes one session. Returns whether it existed.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// ClearAll removes every session and returns how many were dropped.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]*core.ConversationSession)
	return n
}

// sweep evicts idle sessions. Called opportunistically on access.
func (s *Store) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.IdleSince(now, s.ttl) {
			delete(s.sessions, id)
			s.logger.Debug("idle session evicted", "session_id", id)
		}
	}
}

func (s *Store) getOrCreateLocked(id string) *core.ConversationSession {
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := core.NewConversationSession(id)
	s.sessions[id] = sess
	return sess
}
