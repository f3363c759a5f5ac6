// Package session houses the conversation memory store. The Session struct
// and entity types live in the core package to centralize domain contracts;
// keeping only the store here prevents higher level packages (agents,
// pipeline) from depending on concrete storage.
//
// Add additional backends (Redis, Postgres, etc.) in sub-packages without
// changing any calling code; only the wiring layer needs to decide which
// implementation to instantiate.
package session
