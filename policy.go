package complete

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Policy bundles the completion rules for one language region.
type Policy interface {
	// FindPrefix returns the typed prefix at the position.
	FindPrefix(ctx context.Context, pos *Position) (string, error)

	// CompleteReference proposes targets for ref. prefix is the text typed
	// inside the reference's own range.
	CompleteReference(ctx context.Context, pos *Position, ref Reference, prefix string) ([]Candidate, error)

	// KeywordVariants returns the grammatical slots open at the position.
	KeywordVariants(ctx context.Context, pos *Position) ([]KeywordVariant, error)

	// CompleteKeywords proposes keywords for the given slots.
	CompleteKeywords(ctx context.Context, pos *Position, variants []KeywordVariant, prefix string) ([]Candidate, error)
}

// ReferenceFilter is implemented by policies that only complete some of the
// constituents of a multi-reference.
type ReferenceFilter interface {
	References(multi MultiReference) []Reference
}

// Applies decides whether a policy owns a position. pos.PrefixKnown is false
// during the first resolution phase.
type Applies func(pos *Position) bool

// Entry is a registered policy.
type Entry struct {
	Name     string
	Priority int
	Applies  Applies
	Policy   Policy
}

// Registry resolves the policy for a position. Entries are consulted in
// ascending priority, ties in registration order; the first match wins.
type Registry struct {
	mu       sync.RWMutex
	entries  []Entry
	disabled map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{disabled: make(map[string]bool)}
}

// Register adds a policy entry. A nil Applies matches everywhere.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
	slices.SortStableFunc(r.entries, func(a, b Entry) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
}

// Disable stops the named entries from being resolved.
func (r *Registry) Disable(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		r.disabled[name] = true
	}
}

// Names returns the entry names in resolution order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Name)
	}

	return names
}

// Resolve returns the first policy claiming pos and its entry name, or a nil
// policy when none does.
//
//nolint:ireturn // Policy implementations live in host language packages.
func (r *Registry) Resolve(pos *Position) (Policy, string) {
	if r == nil {
		return nil, ""
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Policy == nil || r.disabled[e.Name] {
			continue
		}

		if e.Applies == nil || e.Applies(pos) {
			return e.Policy, e.Name
		}
	}

	return nil, ""
}
