package core

// ResponseType tags the outward envelope.
type ResponseType string

const (
	ResponseService ResponseType = "Service"
	ResponseQnA     ResponseType = "QnA"
	ResponseError   ResponseType = "Error"
)

// Service is one discoverable place (restaurant, tour, hotel) returned by
// the discovery collaborator and surfaced in Service responses.
type Service struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Address     string  `json:"address,omitempty"`
	City        string  `json:"city,omitempty"`
	Description string  `json:"description,omitempty"`
	PriceRange  string  `json:"priceRange,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

// Source is a citation attached to knowledge-base answers. Responses
// carrying sources are never reworded by the language enrichment stage.
type Source struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Suggestion is a tappable follow-up action offered to the user.
type Suggestion struct {
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Action string `json:"action"`
}

// CTA is a platform-appropriate call-to-action: an app-store URL on the
// web, a deeplink inside the app.
type CTA struct {
	Device   Device `json:"device"`
	Label    string `json:"label"`
	URL      string `json:"url,omitempty"`
	Deeplink string `json:"deeplink,omitempty"`
}

// Response is the single outward envelope for every pipeline outcome,
// whatever the originating agent shape.
type Response struct {
	Type        ResponseType `json:"type"`
	AnswerAI    string       `json:"answerAI"`
	Services    []Service    `json:"services,omitempty"`
	Sources     []Source     `json:"sources,omitempty"`
	Suggestions []Suggestion `json:"suggestions"`
	CTA         *CTA         `json:"cta,omitempty"`

	// Meta carries pipeline annotations (final intent, origin agent) used
	// by post-processing decisions; it is not part of the wire contract.
	Meta map[string]string `json:"-"`
}

// SetMeta records a pipeline annotation, allocating lazily.
func (r *Response) SetMeta(key, value string) {
	if r.Meta == nil {
		r.Meta = map[string]string{}
	}
	r.Meta[key] = value
}

// GetMeta reads a pipeline annotation.
func (r *Response) GetMeta(key string) string {
	if r.Meta == nil {
		return ""
	}
	return r.Meta[key]
}

// Meta keys written by the pipeline and its agents.
const (
	MetaIntent       = "intent"
	MetaOrigin       = "origin"
	MetaBookingPhase = "booking_phase"
)

// Origin values for MetaOrigin.
const (
	OriginService   = "service"
	OriginBooking   = "booking"
	OriginKnowledge = "knowledge"
	OriginClarify   = "clarify"
)
