// Package agent holds the domain collaborators the pipeline routes to:
// a service agent for discovery/exploration requests and a question
// answering agent backed by a knowledge base. The booking machine lives in
// its own package; routing between the three is the pipeline's job.
package agent
