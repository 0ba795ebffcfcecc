package tool

import (
	"fmt"
	"sync"

	"github.com/hupe1980/gaiakit/logging"
)

const (
	// UnknownCategory is the sentinel returned by reverse lookups that miss.
	// Lookups never fail mid-conversation over a metadata miss; the tool is
	// treated as uncategorized instead.
	UnknownCategory = "unknown"

	// DefaultSpace is the retrieval namespace used by categories that do not
	// declare their own.
	DefaultSpace = "general"
)

// Category is a named grouping of tools sharing an integration requirement and
// a retrieval space. A delegated category's tools are reachable only through a
// sub-agent handoff and are never bound directly to the main agent.
type Category struct {
	Name               string
	Space              string
	RequireIntegration bool
	IntegrationName    string
	Delegated          bool

	tools []Tool // registration order
}

// Tools returns the category's tools in registration order.
func (c *Category) Tools() []Tool {
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// CategoryOptions configures a category on first registration. Later
// registrations into the same category append tools and leave the attributes
// untouched.
type CategoryOptions struct {
	// Space is the retrieval namespace (DefaultSpace when empty).
	Space string
	// RequireIntegration marks the category as needing an external service
	// connection before its tools are usable.
	RequireIntegration bool
	// IntegrationName names the external service (e.g. "gmail").
	IntegrationName string
	// Delegated routes the category's tools through a sub-agent handoff; they
	// never bind directly to the main agent.
	Delegated bool
	// Core marks the registered tools as always-available, bypassing semantic
	// retrieval.
	Core bool
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Logger receives reverse-lookup miss diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry is the single source of truth mapping tool name -> callable +
// category metadata. It is built once at startup and is immutable afterwards:
// the first reverse lookup freezes it, and registration then fails. All read
// methods are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	categories map[string]*Category
	order      []string // category registration order
	byName     map[string]Tool
	coreNames  []string // ordered names of always-available tools
	logger     logging.Logger

	reverseOnce sync.Once
	reverse     map[string]string // tool name -> category name, memoized
	frozen      bool
}

// NewRegistry constructs an empty Registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		categories: map[string]*Category{},
		byName:     map[string]Tool{},
		logger:     opts.Logger,
	}
}

// Register appends tools to a category, creating the category on first use
// with the given options. It fails fast on any tool-name collision so the
// caller can abort startup; a partial batch is never applied.
func (r *Registry) Register(categoryName string, tools []Tool, optFns ...func(o *CategoryOptions)) error {
	opts := CategoryOptions{Space: DefaultSpace}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Space == "" {
		opts.Space = DefaultSpace
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registry is frozen: tools must be registered before the first lookup")
	}

	for _, t := range tools {
		if t == nil {
			return fmt.Errorf("category %q: nil tool", categoryName)
		}
		if existing, ok := r.byName[t.Name()]; ok {
			return fmt.Errorf("tool name collision: %q already registered (%T)", t.Name(), existing)
		}
	}

	cat, ok := r.categories[categoryName]
	if !ok {
		cat = &Category{
			Name:               categoryName,
			Space:              opts.Space,
			RequireIntegration: opts.RequireIntegration,
			IntegrationName:    opts.IntegrationName,
			Delegated:          opts.Delegated,
		}
		r.categories[categoryName] = cat
		r.order = append(r.order, categoryName)
	}

	for _, t := range tools {
		r.byName[t.Name()] = t
		cat.tools = append(cat.tools, t)
		if opts.Core {
			r.coreNames = append(r.coreNames, t.Name())
		}
	}

	return nil
}

// Category returns the named category, or false when it does not exist.
func (r *Registry) Category(name string) (*Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[name]
	return c, ok
}

// Categories returns all categories in registration order.
func (r *Registry) Categories() []*Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Category, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.categories[name])
	}
	return out
}

// Tool returns the named tool, or false when it does not exist.
func (r *Registry) Tool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[name]
	return t, ok
}

// AllTools returns the flattened tool set in category registration order.
// With includeDelegated the result covers every registered tool (the set used
// for semantic indexing, where delegated tools must be searchable); without it
// the result is the set bindable directly to the main agent.
func (r *Registry) AllTools(includeDelegated bool) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Tool
	for _, name := range r.order {
		cat := r.categories[name]
		if cat.Delegated && !includeDelegated {
			continue
		}
		out = append(out, cat.tools...)
	}
	return out
}

// CoreTools returns the tools marked always-available, bypassing retrieval.
func (r *Registry) CoreTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.coreNames))
	for _, name := range r.coreNames {
		out = append(out, r.byName[name])
	}
	return out
}

// CategoryOf returns the category name owning the given tool, or
// UnknownCategory when the tool is not registered. The reverse index is
// memoized on first use; the registry is frozen from that point on.
func (r *Registry) CategoryOf(toolName string) string {
	r.reverseOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.reverse = make(map[string]string, len(r.byName))
		for _, name := range r.order {
			cat := r.categories[name]
			for _, t := range cat.tools {
				r.reverse[t.Name()] = cat.Name
			}
		}
		r.frozen = true
	})

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cat, ok := r.reverse[toolName]; ok {
		return cat
	}

	r.logger.Debug("registry.category_of.miss", "tool", toolName)

	return UnknownCategory
}

// View returns a derived registry restricted to the named categories,
// preserving their attributes and core markings. Sub-agent construction uses
// this to hand each sub-agent only its provider's category (plus whatever
// always-injected categories the caller includes). Unknown category names are
// an error: a sub-agent pointing at a category that was never registered is a
// wiring bug, not a runtime condition.
func (r *Registry) View(categories ...string) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := NewRegistry(func(o *RegistryOptions) { o.Logger = r.logger })

	coreSet := make(map[string]struct{}, len(r.coreNames))
	for _, name := range r.coreNames {
		coreSet[name] = struct{}{}
	}

	for _, name := range categories {
		cat, ok := r.categories[name]
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}

		// Split the category's tools by core marking so the view keeps it.
		var coreTools, plainTools []Tool
		for _, t := range cat.tools {
			if _, isCore := coreSet[t.Name()]; isCore {
				coreTools = append(coreTools, t)
			} else {
				plainTools = append(plainTools, t)
			}
		}

		copyOpts := func(core bool) func(o *CategoryOptions) {
			return func(o *CategoryOptions) {
				o.Space = cat.Space
				o.RequireIntegration = cat.RequireIntegration
				o.IntegrationName = cat.IntegrationName
				o.Delegated = cat.Delegated
				o.Core = core
			}
		}

		if len(plainTools) > 0 {
			if err := view.Register(name, plainTools, copyOpts(false)); err != nil {
				return nil, err
			}
		}
		if len(coreTools) > 0 {
			if err := view.Register(name, coreTools, copyOpts(true)); err != nil {
				return nil, err
			}
		}
	}

	return view, nil
}
