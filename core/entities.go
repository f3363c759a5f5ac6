package core

// BookingStatus is the lifecycle phase of a reservation in progress.
type BookingStatus string

const (
	// BookingCollecting means slots are still being gathered.
	BookingCollecting BookingStatus = "collecting"
	// BookingReady means all required contact slots are present.
	BookingReady BookingStatus = "ready"
	// BookingSubmitted means the user confirmed and the inquiry was dispatched.
	BookingSubmitted BookingStatus = "submitted"
	// BookingCancelled is the terminal state reached via the interruption
	// budget or an external reset. Collected slot values survive in
	// CollectedInfo for reuse.
	BookingCancelled BookingStatus = "cancelled"
)

// Slot names used across extraction, question generation and modification.
const (
	SlotRestaurant     = "restaurant"
	SlotPartySize      = "party_size"
	SlotTime           = "time"
	SlotName           = "name"
	SlotPhone          = "phone"
	SlotEmail          = "email"
	SlotSpecialRequest = "special_request"
)

// SlotPriority is the fixed order in which missing slots are asked for,
// one per turn. Contact details come last on purpose: users abandon flows
// that open with a request for their phone number.
var SlotPriority = []string{SlotRestaurant, SlotPartySize, SlotTime, SlotName, SlotPhone, SlotEmail}

// RequiredSlots is the subset that must be non-empty before a booking can
// move to BookingReady and be submitted.
var RequiredSlots = []string{SlotName, SlotPhone, SlotEmail}

// BookingState is the nested reservation record inside an EntityMap. The
// booking state machine is its only writer; it reads and writes the value
// through the session store and holds no independent lifetime.
type BookingState struct {
	Status    BookingStatus `json:"status"`
	Confirmed bool          `json:"confirmed"`

	Restaurant     string `json:"restaurant,omitempty"`
	RestaurantID   int    `json:"restaurant_id,omitempty"`
	PartySize      string `json:"party_size,omitempty"`
	Time           string `json:"time,omitempty"`
	Name           string `json:"name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	SpecialRequest string `json:"special_request,omitempty"`

	// OffTopicCount counts consecutive turns unrelated to the active
	// booking. Any slot update resets it; reaching the configured threshold
	// cancels the booking.
	OffTopicCount int `json:"off_topic_count,omitempty"`

	// PendingQuestion holds an off-topic user question deferred while the
	// booking continues, surfaced when the user pauses.
	PendingQuestion string `json:"pending_question,omitempty"`
	Paused          bool   `json:"paused,omitempty"`

	// SuggestedPlace is a restaurant proposed from prior context that still
	// needs an explicit yes/no before it becomes the restaurant slot.
	SuggestedPlace string `json:"suggested_place,omitempty"`

	// Recommendations caches ranked discovery candidates while
	// AwaitingSelection is set.
	Recommendations   []Service `json:"recommendations,omitempty"`
	AwaitingSelection bool      `json:"awaiting_selection,omitempty"`

	// ModifyingSlot names a slot the user asked to change; the next answer
	// fills only that slot.
	ModifyingSlot string `json:"modifying_slot,omitempty"`

	// NextAsk is a collaborator-personalized question held until the
	// alignment guard approves it.
	NextAsk string `json:"next_ask,omitempty"`

	// CollectedInfo snapshots slot values at cancellation so a later
	// start_booking can re-seed without asking again.
	CollectedInfo map[string]string `json:"collected_info,omitempty"`
}

// NewBookingState returns a fresh collecting-state record.
func NewBookingState() *BookingState {
	return &BookingState{Status: BookingCollecting}
}

// Slot returns the value of a named slot.
func (b *BookingState) Slot(name string) string {
	switch name {
	case SlotRestaurant:
		return b.Restaurant
	case SlotPartySize:
		return b.PartySize
	case SlotTime:
		return b.Time
	case SlotName:
		return b.Name
	case SlotPhone:
		return b.Phone
	case SlotEmail:
		return b.Email
	case SlotSpecialRequest:
		return b.SpecialRequest
	}
	return ""
}

// SetSlot assigns a named slot. Unknown names are ignored.
func (b *BookingState) SetSlot(name, value string) {
	switch name {
	case SlotRestaurant:
		b.Restaurant = value
	case SlotPartySize:
		b.PartySize = value
	case SlotTime:
		b.Time = value
	case SlotName:
		b.Name = value
	case SlotPhone:
		b.Phone = value
	case SlotEmail:
		b.Email = value
	case SlotSpecialRequest:
		b.SpecialRequest = value
	}
}

// MissingByPriority returns unfilled slots in asking order.
func (b *BookingState) MissingByPriority() []string {
	var missing []string
	for _, s := range SlotPriority {
		if b.Slot(s) == "" {
			missing = append(missing, s)
		}
	}
	return missing
}

// MissingRequired returns the unfilled subset of RequiredSlots.
func (b *BookingState) MissingRequired() []string {
	var missing []string
	for _, s := range RequiredSlots {
		if b.Slot(s) == "" {
			missing = append(missing, s)
		}
	}
	return missing
}

// Active reports whether the booking is in a phase that should capture
// follow-up turns (collecting or ready).
func (b *BookingState) Active() bool {
	return b != nil && (b.Status == BookingCollecting || b.Status == BookingReady)
}

// SlotSnapshot captures the current slot values into a plain map, used to
// populate CollectedInfo on cancellation.
func (b *BookingState) SlotSnapshot() map[string]string {
	snap := map[string]string{}
	for _, s := range append(append([]string{}, SlotPriority...), SlotSpecialRequest) {
		if v := b.Slot(s); v != "" {
			snap[s] = v
		}
	}
	return snap
}

// Clone returns a deep copy safe for independent mutation.
func (b *BookingState) Clone() *BookingState {
	if b == nil {
		return nil
	}
	c := *b
	if b.Recommendations != nil {
		c.Recommendations = make([]Service, len(b.Recommendations))
		copy(c.Recommendations, b.Recommendations)
	}
	if b.CollectedInfo != nil {
		c.CollectedInfo = make(map[string]string, len(b.CollectedInfo))
		for k, v := range b.CollectedInfo {
			c.CollectedInfo[k] = v
		}
	}
	return &c
}

// EntityMap is the per-session store of resolved conversational facts.
// Known hot fields are typed; Extra is a narrow escape hatch for genuinely
// ad-hoc keys.
type EntityMap struct {
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	UserPhone string `json:"user_phone,omitempty"`

	CurrentPlace       string `json:"current_place,omitempty"`
	LastMentionedPlace string `json:"last_mentioned_place,omitempty"`
	CurrentTopic       string `json:"current_topic,omitempty"`
	LastSubject        string `json:"last_subject,omitempty"`

	Booking *BookingState `json:"booking,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy of the entity map.
func (e EntityMap) Clone() EntityMap {
	c := e
	c.Booking = e.Booking.Clone()
	if e.Extra != nil {
		c.Extra = make(map[string]string, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// EntityUpdate is the payload of a conflict-aware merge. Empty strings mean
// "no update"; the merge rules live in the session store.
type EntityUpdate struct {
	UserName  string
	UserEmail string
	UserPhone string

	// CurrentPlace and CurrentTopic shift the previous current value into
	// the corresponding "last" field before being adopted.
	CurrentPlace string
	CurrentTopic string
	LastSubject  string

	// Booking is merged key-by-key into the existing booking state, never
	// replacing it wholesale.
	Booking *BookingState

	Extra map[string]string
}
