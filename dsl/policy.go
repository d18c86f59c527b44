package dsl

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rlch/complete"
)

// Policy names as registered by NewRegistry.
const (
	PolicySetup   = "scaf.setup"
	PolicyParam   = "scaf.param"
	PolicyGeneral = "scaf.general"
)

// Slot is a keyword slot. It implements complete.KeywordVariant.
type Slot string

// Keyword slots.
const (
	SlotTopLevel  Slot = "top-level"
	SlotScopeBody Slot = "scope-body"
	SlotGroupBody Slot = "group-body"
	SlotTestBody  Slot = "test-body"
	SlotValue     Slot = "value"
)

// Key implements complete.KeywordVariant.
func (s Slot) Key() string { return string(s) }

// slotKeywords lists the built-in keywords of each slot in proposal order.
var slotKeywords = map[Slot][]string{
	SlotTopLevel:  {"import", "query", "setup", "teardown"},
	SlotScopeBody: {"setup", "teardown", "test", "group"},
	SlotGroupBody: {"setup", "teardown", "test", "group"},
	SlotTestBody:  {"setup", "assert"},
	SlotValue:     {"true", "false", "null"},
}

// NewRegistry registers the scaf policies. cfg may be nil; its Disabled
// names are disabled and its Keywords extend the built-in slots.
func NewRegistry(cfg *complete.Config, logger *zap.Logger) *complete.Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := complete.NewRegistry()

	r.Register(complete.Entry{
		Name:     PolicySetup,
		Priority: 10, //nolint:mnd
		Applies:  setupApplies,
		Policy:   &setupPolicy{logger: logger},
	})
	r.Register(complete.Entry{
		Name:     PolicyParam,
		Priority: 20, //nolint:mnd
		Applies:  paramApplies,
		Policy:   &paramPolicy{logger: logger},
	})
	r.Register(complete.Entry{
		Name:     PolicyGeneral,
		Priority: 30, //nolint:mnd
		Applies:  generalApplies,
		Policy:   newGeneralPolicy(cfg),
	})

	if cfg != nil {
		r.Disable(cfg.Disabled...)
	}

	return r
}

// contextOf returns the scaf document and context of a position, or false
// when the position is not in a scaf document or sits in a literal.
func contextOf(pos *complete.Position) (*Document, *Context, bool) {
	doc, ok := pos.Document.(*Document)
	if !ok {
		return nil, nil, false
	}

	c := doc.ContextAt(pos.Offset)
	if c.Literal != nil {
		return nil, nil, false
	}

	return doc, c, true
}

func setupApplies(pos *complete.Position) bool {
	doc, c, ok := contextOf(pos)
	if !ok {
		return false
	}

	if doc.qualifiedAt(c) != nil {
		return true
	}

	ref := doc.singleAt(c)

	return ref != nil && ref.Kind == RefModule
}

func paramApplies(pos *complete.Position) bool {
	if !pos.PrefixKnown || !strings.HasPrefix(pos.Prefix, "$") {
		return false
	}

	_, c, ok := contextOf(pos)

	return ok && (c.Block == BlockTest || c.Block == BlockCall)
}

func generalApplies(pos *complete.Position) bool {
	_, c, ok := contextOf(pos)
	if !ok {
		return false
	}

	if !pos.PrefixKnown && c.Current != nil && strings.HasPrefix(c.Current.Value, "$") {
		return false
	}

	return true
}

// basePolicy proposes nothing; policies embed it and override what they complete.
type basePolicy struct{}

func (basePolicy) FindPrefix(_ context.Context, pos *complete.Position) (string, error) {
	return complete.StaticPrefix(pos), nil
}

func (basePolicy) CompleteReference(
	context.Context, *complete.Position, complete.Reference, string,
) ([]complete.Candidate, error) {
	return nil, nil
}

func (basePolicy) KeywordVariants(context.Context, *complete.Position) ([]complete.KeywordVariant, error) {
	return nil, nil
}

func (basePolicy) CompleteKeywords(
	context.Context, *complete.Position, []complete.KeywordVariant, string,
) ([]complete.Candidate, error) {
	return nil, nil
}

// setupPolicy completes what follows setup: import aliases and the queries
// of imported modules.
type setupPolicy struct {
	basePolicy

	logger *zap.Logger
}

// References implements complete.ReferenceFilter. Once a member has been
// typed after the dot only the member is completed.
func (p *setupPolicy) References(multi complete.MultiReference) []complete.Reference {
	refs := multi.References()
	out := make([]complete.Reference, 0, len(refs))

	for _, ref := range refs {
		if r, ok := ref.(*Reference); ok && r.Kind == RefMember && r.rng.Len() > 0 {
			return []complete.Reference{ref}
		}

		out = append(out, ref)
	}

	return out
}

func (p *setupPolicy) CompleteReference(
	_ context.Context, pos *complete.Position, ref complete.Reference, _ string,
) ([]complete.Candidate, error) {
	doc, ok := pos.Document.(*Document)
	r, isRef := ref.(*Reference)

	if !ok || !isRef {
		return nil, nil
	}

	span := r.Span()

	switch r.Kind {
	case RefModule:
		syms := doc.Symbols()
		out := make([]complete.Candidate, 0, len(syms.ImportOrder))

		for _, alias := range syms.ImportOrder {
			out = append(out, complete.Candidate{
				Label:   alias,
				Detail:  syms.Imports[alias].Path,
				Kind:    complete.KindModule,
				Replace: &span,
				Source:  PolicySetup,
			})
		}

		return out, nil
	case RefQualified, RefMember:
		mod, err := doc.Module(r.Module)
		if err != nil {
			p.logger.Debug("Cannot load module for setup completion",
				zap.String("alias", r.Module),
				zap.Error(err))

			return nil, nil
		}

		out := make([]complete.Candidate, 0, len(mod.Symbols.QueryOrder))

		for _, name := range mod.Symbols.QueryOrder {
			q := mod.Symbols.Queries[name]
			c := complete.Candidate{
				Label:   name,
				Insert:  name + "()",
				Detail:  signature(q),
				Kind:    complete.KindQuery,
				Replace: &span,
				Source:  PolicySetup,
			}

			if r.Kind == RefQualified {
				c.Label = r.Module + "." + name
				c.Insert = r.Module + "." + c.Insert
			}

			out = append(out, c)
		}

		return out, nil
	default:
		return nil, nil
	}
}

// signature renders a query's parameter list, e.g. "CreateUser($id, $name)".
func signature(q *QuerySymbol) string {
	params := make([]string, len(q.Params))
	for i, p := range q.Params {
		params[i] = "$" + p
	}

	return q.Name + "(" + strings.Join(params, ", ") + ")"
}

// paramPolicy completes $parameters in test inputs and call arguments.
type paramPolicy struct {
	basePolicy

	logger *zap.Logger
}

func (p *paramPolicy) CompleteReference(
	_ context.Context, pos *complete.Position, ref complete.Reference, _ string,
) ([]complete.Candidate, error) {
	doc, ok := pos.Document.(*Document)
	r, isRef := ref.(*Reference)

	if !ok || !isRef || r.Kind != RefParam {
		return nil, nil
	}

	q, owner := doc.Symbols().Query(r.Scope), r.Scope

	if r.Query != "" {
		mod, err := doc.Module(r.Module)
		if err != nil {
			p.logger.Debug("Cannot load module for parameter completion",
				zap.String("alias", r.Module),
				zap.Error(err))

			return nil, nil
		}

		q, owner = mod.Symbols.Query(r.Query), r.Module+"."+r.Query
	}

	if q == nil {
		return nil, nil
	}

	span := r.Span()
	out := make([]complete.Candidate, 0, len(q.Params))

	for _, param := range q.Params {
		out = append(out, complete.Candidate{
			Label:   "$" + param,
			Insert:  "$" + param + ": ",
			Detail:  "parameter of " + owner,
			Kind:    complete.KindParameter,
			Replace: &span,
			Source:  PolicyParam,
		})
	}

	return out, nil
}

// generalPolicy completes query names, return fields and keywords.
type generalPolicy struct {
	basePolicy

	keywords map[Slot][]string
}

func newGeneralPolicy(cfg *complete.Config) *generalPolicy {
	kw := make(map[Slot][]string, len(slotKeywords))

	for slot, words := range slotKeywords {
		kw[slot] = append(append([]string(nil), words...), cfg.KeywordsFor(string(slot))...)
	}

	return &generalPolicy{keywords: kw}
}

func (p *generalPolicy) CompleteReference(
	_ context.Context, pos *complete.Position, ref complete.Reference, _ string,
) ([]complete.Candidate, error) {
	doc, ok := pos.Document.(*Document)
	r, isRef := ref.(*Reference)

	if !ok || !isRef {
		return nil, nil
	}

	span := r.Span()
	syms := doc.Symbols()

	switch r.Kind {
	case RefQuery:
		out := make([]complete.Candidate, 0, len(syms.QueryOrder))
		for _, name := range syms.QueryOrder {
			out = append(out, complete.Candidate{
				Label:   name,
				Detail:  "query",
				Kind:    complete.KindQuery,
				Replace: &span,
				Source:  PolicyGeneral,
			})
		}

		return out, nil
	case RefField:
		fields, owner := ReturnFields(r.Body), "assertion"

		if r.Body == "" {
			q := syms.Query(r.Scope)
			if q == nil {
				return nil, nil
			}

			fields, owner = q.Returns, r.Scope
		}

		out := make([]complete.Candidate, 0, len(fields))
		for _, f := range fields {
			out = append(out, complete.Candidate{
				Label:   f,
				Insert:  f + ": ",
				Detail:  "return field of " + owner,
				Kind:    complete.KindField,
				Replace: &span,
				Source:  PolicyGeneral,
			})
		}

		return out, nil
	default:
		return nil, nil
	}
}

func (p *generalPolicy) KeywordVariants(_ context.Context, pos *complete.Position) ([]complete.KeywordVariant, error) {
	_, c, ok := contextOf(pos)
	if !ok || (c.Current != nil && strings.HasPrefix(c.Current.Value, "$")) {
		return nil, nil
	}

	if c.ValueSlot() {
		return []complete.KeywordVariant{SlotValue}, nil
	}

	if !c.StatementStart() {
		return nil, nil
	}

	switch c.Block {
	case BlockTopLevel:
		return []complete.KeywordVariant{SlotTopLevel}, nil
	case BlockScope:
		return []complete.KeywordVariant{SlotScopeBody}, nil
	case BlockGroup:
		return []complete.KeywordVariant{SlotGroupBody}, nil
	case BlockTest:
		return []complete.KeywordVariant{SlotTestBody}, nil
	default:
		return nil, nil
	}
}

func (p *generalPolicy) CompleteKeywords(
	_ context.Context, _ *complete.Position, variants []complete.KeywordVariant, _ string,
) ([]complete.Candidate, error) {
	var out []complete.Candidate

	for _, v := range variants {
		slot, ok := v.(Slot)
		if !ok {
			continue
		}

		kind := complete.KindKeyword
		if slot == SlotValue {
			kind = complete.KindValue
		}

		for _, word := range p.keywords[slot] {
			out = append(out, complete.Candidate{
				Label:  word,
				Detail: "keyword",
				Kind:   kind,
				Source: PolicyGeneral,
			})
		}
	}

	return out, nil
}
