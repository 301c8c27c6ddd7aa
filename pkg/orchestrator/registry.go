package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/url"
	"os"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-modelview/pkg/bind"
	"github.com/goliatone/go-modelview/pkg/hashcache"
	"github.com/goliatone/go-modelview/pkg/model"
	"github.com/goliatone/go-modelview/pkg/render"
	"github.com/goliatone/go-modelview/pkg/template"
	"github.com/goliatone/go-modelview/pkg/urlpolicy"
)

var (
	// ErrNotRegistered reports a render or bind against a model type whose
	// descriptor was never registered.
	ErrNotRegistered = errors.New("orchestrator: model type not registered")
	// ErrAlreadyRegistered reports a duplicate registration.
	ErrAlreadyRegistered = errors.New("orchestrator: model type already registered")
)

// Option customises the registry configuration.
type Option func(*Registry)

// WithConfig applies deployment-level settings.
func WithConfig(cfg Config) Option {
	return func(r *Registry) { r.cfg = cfg }
}

// WithLogger routes registry and binder diagnostics to the given logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithHashCache injects a pre-built content-hash lookup instead of scanning
// Config.StaticDir at startup.
func WithHashCache(lookup hashcache.Lookup) Option {
	return func(r *Registry) { r.hash = lookup }
}

// WithSanitizer overrides the bluemonday policy applied to trusted-HTML
// field values.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(r *Registry) { r.sanitizer = policy }
}

// WithURLAttribute marks one extra tag/attribute pair as URL-valued, for
// custom elements carrying link-like attributes.
func WithURLAttribute(tag, attr string) Option {
	return func(r *Registry) { r.urlExtra = append(r.urlExtra, tag+"."+attr) }
}

// WithRoutes supplies the route resolver consulted by route-reference
// fields. The path returned for a name is emitted verbatim.
func WithRoutes(routes func(name string) (path string, ok bool)) Option {
	return func(r *Registry) { r.routes = routes }
}

type registration struct {
	desc *model.Descriptor
	tmpl *template.Template
}

// Registry owns the registered model descriptors and their validated
// templates, plus the shared renderer and binder. Register everything at
// startup; after that a Registry is safe for concurrent use.
type Registry struct {
	cfg       Config
	log       *slog.Logger
	hash      hashcache.Lookup
	routes    func(string) (string, bool)
	sanitizer *bluemonday.Policy
	urlExtra  []string

	policy   *urlpolicy.Policy
	renderer *render.Renderer
	binder   *bind.Binder
	resolver model.Resolver

	mu      sync.RWMutex
	entries map[string]registration

	initErr error
}

// New constructs a Registry. A configured static directory is scanned
// immediately; a scan failure surfaces from the first Register or render
// call rather than panicking here.
func New(options ...Option) *Registry {
	r := &Registry{
		log:     slog.Default(),
		entries: make(map[string]registration),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.cfg.StaticPrefix == "" {
		r.cfg.StaticPrefix = "/static"
	}

	r.policy = urlpolicy.New(append(r.cfg.URLAttributes, r.urlExtra...)...)
	r.resolver = model.Resolver{Routes: r.routes}

	if r.hash == nil && r.cfg.StaticDir != "" {
		assets := hashcache.NewMap(hashcache.WithLogger(r.log))
		if err := assets.ScanFS(os.DirFS(r.cfg.StaticDir), r.cfg.StaticPrefix); err != nil {
			r.initErr = fmt.Errorf("orchestrator: scan static assets: %w", err)
		} else {
			r.hash = assets
		}
	}

	renderOpts := []render.Option{
		render.WithTemplates(r.template),
		render.WithURLPolicy(r.policy),
		render.WithResolver(r.resolver),
	}
	if r.hash != nil {
		renderOpts = append(renderOpts, render.WithHashCache(r.hash))
	}
	if r.sanitizer != nil {
		renderOpts = append(renderOpts, render.WithSanitizer(r.sanitizer))
	}
	r.renderer = render.New(renderOpts...)
	r.binder = bind.New(bind.WithLogger(r.log))
	return r
}

// Register parses and statically validates the template source for one
// model type. Every defect the validator can detect is returned here;
// request-time rendering trusts registered templates completely.
func (r *Registry) Register(desc *model.Descriptor, templateSource string) error {
	if err := r.initErr; err != nil {
		return err
	}
	tmpl, err := template.Parse(desc.Name(), templateSource)
	if err != nil {
		return err
	}
	if err := template.Validate(tmpl, desc, r.policy); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[desc.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, desc.Name())
	}
	r.entries[desc.Name()] = registration{desc: desc, tmpl: tmpl}
	r.log.Info("registered model template",
		slog.String("model", desc.Name()),
		slog.Int("fields", len(desc.Fields())))
	return nil
}

// MustRegister is Register for program initialisation; it panics on error.
func (r *Registry) MustRegister(desc *model.Descriptor, templateSource string) {
	if err := r.Register(desc, templateSource); err != nil {
		panic(err)
	}
}

func (r *Registry) template(modelName string) (*template.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[modelName]
	if !ok {
		return nil, false
	}
	return reg.tmpl, true
}

// RenderHTML renders m through its registered template. Zero-value option
// fields fall back to the registry configuration.
func (r *Registry) RenderHTML(ctx context.Context, m model.Model, opts render.Options) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.initErr; err != nil {
		return nil, err
	}

	name := m.Descriptor().Name()
	tmpl, ok := r.template(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	if !opts.Pretty {
		opts.Pretty = r.cfg.Pretty
	}
	if opts.Indent == "" {
		opts.Indent = r.cfg.Indent
	}
	if opts.BaseURL == "" {
		opts.BaseURL = r.cfg.BaseURL
	}
	return r.renderer.HTML(tmpl, m, opts)
}

// RenderJSON serializes m's sendable fields.
func (r *Registry) RenderJSON(m model.Model, pretty bool) ([]byte, error) {
	return render.JSON(m, r.resolver, pretty)
}

// Bind populates m's receivable fields from a form submission.
func (r *Registry) Bind(m model.Model, values url.Values, files map[string][]*multipart.FileHeader) error {
	return r.binder.Bind(m, values, files)
}

// HashCache exposes the content-hash lookup, for response layers that need
// the reverse mapping when serving hashed asset URLs.
func (r *Registry) HashCache() hashcache.Lookup {
	return r.hash
}
