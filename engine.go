package complete

import (
	"context"

	"go.uber.org/zap"
)

// Engine merges reference and keyword completions at a cursor. An Engine is
// immutable after construction and safe for concurrent requests; all state of
// a request is local to it.
type Engine struct {
	registry      *Registry
	logger        *zap.Logger
	debug         bool
	caseSensitive bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDebug enables tracing of resolution decisions. Output is unaffected.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		e.debug = debug
	}
}

// WithCaseSensitive switches prefix matching to exact case.
func WithCaseSensitive(caseSensitive bool) Option {
	return func(e *Engine) {
		e.caseSensitive = caseSensitive
	}
}

// WithConfig applies the engine settings of cfg.
func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		if cfg == nil {
			return
		}

		e.debug = e.debug || cfg.Debug
		e.caseSensitive = cfg.CaseSensitive
	}
}

// NewEngine creates an engine resolving policies from registry.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Complete returns the candidates at offset in first-insertion order.
//
// An offset outside [0, doc.Len()] fails with an *InvalidOffsetError. Errors
// from the document are returned unchanged. When nothing applies at the
// position the result is empty, not an error.
func (e *Engine) Complete(ctx context.Context, doc Document, offset int) ([]Candidate, error) {
	rs, err := e.compute(ctx, doc, offset, nil)
	if err != nil {
		return nil, err
	}

	return rs.Items(), nil
}

// Stream is like Complete but hands each accepted candidate to consumer as
// soon as it is produced. Candidates delivered before an error or a
// cancellation stay delivered.
func (e *Engine) Stream(ctx context.Context, doc Document, offset int, consumer func(Candidate)) error {
	_, err := e.compute(ctx, doc, offset, consumer)

	return err
}

func (e *Engine) compute(ctx context.Context, doc Document, offset int, consumer func(Candidate)) (*ResultSet, error) {
	err := checkOffset(doc, offset)
	if err != nil {
		return nil, err
	}

	empty := NewResultSet(NewPrefixMatcher("", e.caseSensitive), doc.Len(), consumer, e.logger)

	err = ctx.Err()
	if err != nil {
		return nil, err
	}

	loc, err := Locate(doc, offset)
	if err != nil {
		return nil, err
	}

	pos := &Position{
		Document: doc,
		Offset:   offset,
		Anchor:   loc.Anchor,
		Before:   loc.Before,
	}

	policy, prefix, err := e.resolve(ctx, pos)
	if err != nil {
		return nil, err
	}

	if policy == nil {
		return empty, nil
	}

	pos = pos.withPrefix(prefix)
	matcher := NewPrefixMatcher(prefix, e.caseSensitive)
	rs := NewResultSet(matcher, doc.Len(), consumer, e.logger)

	err = e.completeReferences(ctx, policy, pos, rs)
	if err != nil {
		return nil, err
	}

	err = e.completeKeywords(ctx, policy, pos, rs)
	if err != nil {
		return nil, err
	}

	e.trace("Completion finished", zap.Int("candidates", rs.Len()))

	return rs, nil
}

// resolve runs the two-phase policy resolution. The first phase sees no
// prefix. If it finds nothing, the static prefix is computed and resolution
// runs again with the prefix known; a policy found then recomputes the prefix
// with its own rule.
//
//nolint:ireturn // Policy implementations live in host language packages.
func (e *Engine) resolve(ctx context.Context, pos *Position) (Policy, string, error) {
	policy, name := e.registry.Resolve(pos)
	e.trace("Resolved policy",
		zap.Int("phase", 1),
		zap.String("policy", name),
		zap.Bool("found", policy != nil))

	if policy != nil {
		prefix, err := policy.FindPrefix(ctx, pos)
		if err != nil {
			return nil, "", err
		}

		e.trace("Computed prefix", zap.String("policy", name), zap.String("prefix", prefix))

		return policy, prefix, nil
	}

	prefix := StaticPrefix(pos)
	e.trace("Computed static prefix", zap.String("prefix", prefix))

	err := ctx.Err()
	if err != nil {
		return nil, "", err
	}

	withPrefix := pos.withPrefix(prefix)

	policy, name = e.registry.Resolve(withPrefix)
	e.trace("Resolved policy",
		zap.Int("phase", 2),
		zap.String("policy", name),
		zap.Bool("found", policy != nil))

	if policy == nil {
		return nil, "", nil
	}

	prefix, err = policy.FindPrefix(ctx, withPrefix)
	if err != nil {
		return nil, "", err
	}

	e.trace("Computed prefix", zap.String("policy", name), zap.String("prefix", prefix))

	return policy, prefix, nil
}

// completeReferences completes every constituent of the reference at the
// cursor, each filtered by the text typed inside its own range.
func (e *Engine) completeReferences(ctx context.Context, policy Policy, pos *Position, rs *ResultSet) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	filter, _ := policy.(ReferenceFilter)

	refs, err := Probe(pos.Document, pos.Offset, filter)
	if err != nil {
		return err
	}

	e.trace("Probed references", zap.Int("references", len(refs)))

	for i, ref := range refs {
		err := ctx.Err()
		if err != nil {
			return err
		}

		sub, err := SubPrefix(ref, pos.Offset)
		if err != nil {
			e.logger.Warn("Skipping reference with malformed range",
				zap.Int("index", i),
				zap.Error(err))

			continue
		}

		candidates, err := policy.CompleteReference(ctx, pos, ref, sub)
		if err != nil {
			return err
		}

		added := rs.WithMatcher(rs.Matcher().WithPrefix(sub)).AddAll(candidates)
		e.trace("Completed reference",
			zap.Int("index", i),
			zap.String("prefix", sub),
			zap.Int("proposed", len(candidates)),
			zap.Int("added", added))
	}

	return nil
}

// completeKeywords collects the open keyword slots and completes them with
// the global prefix.
func (e *Engine) completeKeywords(ctx context.Context, policy Policy, pos *Position, rs *ResultSet) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	variants, err := policy.KeywordVariants(ctx, pos)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(variants))
	unique := make([]KeywordVariant, 0, len(variants))

	for _, v := range variants {
		err := ctx.Err()
		if err != nil {
			return err
		}

		if v == nil {
			continue
		}

		if _, dup := seen[v.Key()]; dup {
			continue
		}

		seen[v.Key()] = struct{}{}
		unique = append(unique, v)
	}

	if e.debug {
		keys := make([]string, len(unique))
		for i, v := range unique {
			keys[i] = v.Key()
		}

		e.trace("Collected keyword variants", zap.Strings("variants", keys))
	}

	candidates, err := policy.CompleteKeywords(ctx, pos, unique, pos.Prefix)
	if err != nil {
		return err
	}

	added := rs.AddAll(candidates)
	e.trace("Completed keywords", zap.Int("proposed", len(candidates)), zap.Int("added", added))

	return nil
}

func (e *Engine) trace(msg string, fields ...zap.Field) {
	if e.debug {
		e.logger.Info(msg, fields...)
	}
}
