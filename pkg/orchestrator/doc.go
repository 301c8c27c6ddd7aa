// Package orchestrator wires the template loader, static validator,
// renderer, JSON serializer, and binder behind a single registry. Model
// types and their templates are registered once at startup; any
// configuration defect is returned there and never deferred to request
// time.
package orchestrator
