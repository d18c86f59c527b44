package complete

import "go.uber.org/zap"

// ResultSet is the request-local sink for candidates. Views created with
// WithMatcher share one ordered, deduplicated backing store and differ only
// in the prefix they filter by.
type ResultSet struct {
	matcher PrefixMatcher
	store   *resultStore
}

type resultStore struct {
	docLen   int
	items    []Candidate
	seen     map[candidateKey]struct{}
	consumer func(Candidate)
	logger   *zap.Logger
}

// NewResultSet creates a result set filtering by matcher. docLen bounds the
// replace ranges candidates may carry. consumer, if non-nil, sees every
// accepted candidate as soon as it is added.
func NewResultSet(matcher PrefixMatcher, docLen int, consumer func(Candidate), logger *zap.Logger) *ResultSet {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ResultSet{
		matcher: matcher,
		store: &resultStore{
			docLen:   docLen,
			seen:     make(map[candidateKey]struct{}),
			consumer: consumer,
			logger:   logger,
		},
	}
}

// WithMatcher returns a view on the same store filtering by m.
func (rs *ResultSet) WithMatcher(m PrefixMatcher) *ResultSet {
	return &ResultSet{matcher: m, store: rs.store}
}

// Matcher returns the view's prefix matcher.
func (rs *ResultSet) Matcher() PrefixMatcher {
	return rs.matcher
}

// Add appends c unless it fails the view's prefix, duplicates an earlier
// candidate, or carries a replace range outside the document. It reports
// whether c was accepted.
func (rs *ResultSet) Add(c Candidate) bool {
	if !rs.matcher.Matches(c.Label) {
		return false
	}

	if c.Replace != nil && (!c.Replace.Valid() || c.Replace.End > rs.store.docLen) {
		rs.store.logger.Warn("Skipping candidate with malformed replace range",
			zap.String("label", c.Label),
			zap.String("source", c.Source),
			zap.Int("start", c.Replace.Start),
			zap.Int("end", c.Replace.End),
			zap.Int("docLen", rs.store.docLen))

		return false
	}

	k := c.key()
	if _, dup := rs.store.seen[k]; dup {
		return false
	}

	rs.store.seen[k] = struct{}{}
	rs.store.items = append(rs.store.items, c)

	if rs.store.consumer != nil {
		rs.store.consumer(c)
	}

	return true
}

// AddAll adds each candidate in order and returns how many were accepted.
func (rs *ResultSet) AddAll(cs []Candidate) int {
	n := 0

	for _, c := range cs {
		if rs.Add(c) {
			n++
		}
	}

	return n
}

// Items returns the accepted candidates in insertion order.
func (rs *ResultSet) Items() []Candidate {
	out := make([]Candidate, len(rs.store.items))
	copy(out, rs.store.items)

	return out
}

// Len returns the number of accepted candidates.
func (rs *ResultSet) Len() int {
	return len(rs.store.items)
}
