package core

// Intent is the 3-way routing label for a user utterance.
type Intent string

const (
	// IntentService covers discovery and exploration requests.
	IntentService Intent = "service"
	// IntentBooking covers reservations and transactions.
	IntentBooking Intent = "booking"
	// IntentQnA covers information requests and everything unclear.
	IntentQnA Intent = "qna"
)

// Confidence grades how sure the classifier is about its label.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IntentResult is the classifier output. When Confidence is low the
// pipeline treats the turn as needing clarification: Clarification carries
// the question to ask and Intent holds the interim default (qna).
type IntentResult struct {
	Intent        Intent     `json:"intent"`
	Confidence    Confidence `json:"confidence"`
	Reasoning     string     `json:"reasoning,omitempty"`
	Clarification string     `json:"clarification,omitempty"`
}

// NeedsClarification reports whether the pipeline should skip agent routing
// and ask the stored clarification question instead.
func (r IntentResult) NeedsClarification() bool {
	return r.Confidence == ConfidenceLow && r.Clarification != ""
}
