// Package modelview renders application models into validated HTML
// templates, serializes them to JSON, and binds them back from form
// submissions, all under one field visibility policy. The root package is
// a thin façade; the machinery lives under pkg/.
package modelview

import (
	"context"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-modelview/pkg/bind"
	"github.com/goliatone/go-modelview/pkg/hashcache"
	"github.com/goliatone/go-modelview/pkg/model"
	"github.com/goliatone/go-modelview/pkg/orchestrator"
	"github.com/goliatone/go-modelview/pkg/render"
)

// Model is implemented by every type that renders, serializes, or binds.
type Model = model.Model

// Descriptor is a model type's field table.
type Descriptor = model.Descriptor

// Registry owns registered model templates and the shared pipeline.
type Registry = orchestrator.Registry

// Config holds deployment-level settings, loadable from YAML.
type Config = orchestrator.Config

// Options carries per-render settings such as pretty-printing and the
// CSRF token to inject into forms.
type Options = render.Options

// FieldError is one client-fault binding failure.
type FieldError = bind.FieldError

// BindErrors collects every field failure from one binding pass.
type BindErrors = bind.Errors

// New constructs a Registry applying any provided options.
func New(options ...orchestrator.Option) *Registry {
	return orchestrator.New(options...)
}

// LoadConfig reads a YAML configuration file with .env/environment
// overrides applied.
func LoadConfig(path string) (Config, error) {
	return orchestrator.LoadConfig(path)
}

// WithConfig applies deployment-level settings to a Registry.
func WithConfig(cfg Config) orchestrator.Option {
	return orchestrator.WithConfig(cfg)
}

// WithLogger routes registry and binder diagnostics to the given logger.
func WithLogger(log *slog.Logger) orchestrator.Option {
	return orchestrator.WithLogger(log)
}

// WithHashCache injects a pre-built content-hash lookup for local asset
// URL rewriting.
func WithHashCache(lookup hashcache.Lookup) orchestrator.Option {
	return orchestrator.WithHashCache(lookup)
}

// WithSanitizer overrides the policy applied to trusted-HTML field values.
func WithSanitizer(policy *bluemonday.Policy) orchestrator.Option {
	return orchestrator.WithSanitizer(policy)
}

// WithURLAttribute marks an extra tag/attribute pair as URL-valued.
func WithURLAttribute(tag, attr string) orchestrator.Option {
	return orchestrator.WithURLAttribute(tag, attr)
}

// WithRoutes supplies the resolver consulted by route-reference fields.
func WithRoutes(routes func(name string) (path string, ok bool)) orchestrator.Option {
	return orchestrator.WithRoutes(routes)
}

// RenderHTML registers-once callers can skip: it renders m through reg's
// registered template for m's type.
func RenderHTML(ctx context.Context, reg *Registry, m Model, opts Options) ([]byte, error) {
	return reg.RenderHTML(ctx, m, opts)
}

// ScanAssets builds a content-hash cache over a static asset tree served
// under urlPrefix, for use with WithHashCache.
func ScanAssets(assets fs.FS, urlPrefix string) (*hashcache.Map, error) {
	m := hashcache.NewMap()
	if err := m.ScanFS(assets, urlPrefix); err != nil {
		return nil, err
	}
	return m, nil
}

// NewCSRFToken mints the per-session token injected into rendered forms
// and checked on submission.
func NewCSRFToken() string {
	return uuid.NewString()
}
