// Package core defines the shared domain types of the concierge engine:
// conversation turns and sessions, the typed entity map with its nested
// booking state, intent classification results, platform context, the
// outward response envelope and the error taxonomy. It has no dependencies
// on the other concierge packages; everything else imports core.
package core
