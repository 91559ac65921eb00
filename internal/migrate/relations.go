package migrate

import "sort"

// Pair is an unordered pair of Trello card ids. A is always <= B.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPair returns the normalized pair for two card ids.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// RelationResolver tracks card-to-card relations. A relation whose other
// end has not been migrated yet is kept pending until the final pass; a
// relation that has been linked is never linked again in the same run.
type RelationResolver struct {
	pending map[Pair]struct{}
	linked  map[Pair]struct{}
}

// NewRelationResolver creates a resolver, optionally seeded with pairs left
// pending by an earlier run.
func NewRelationResolver(pending ...Pair) *RelationResolver {
	r := &RelationResolver{
		pending: make(map[Pair]struct{}),
		linked:  make(map[Pair]struct{}),
	}
	for _, p := range pending {
		r.pending[NewPair(p.A, p.B)] = struct{}{}
	}
	return r
}

// Defer records a pending relation. It returns false if the pair was
// already pending or linked.
func (r *RelationResolver) Defer(a, b string) bool {
	p := NewPair(a, b)
	if _, ok := r.linked[p]; ok {
		return false
	}
	if _, ok := r.pending[p]; ok {
		return false
	}
	r.pending[p] = struct{}{}
	return true
}

// Linked reports whether a link for the pair was created in this run.
func (r *RelationResolver) Linked(a, b string) bool {
	_, ok := r.linked[NewPair(a, b)]
	return ok
}

// MarkLinked records a created link and drops any pending entry for the
// pair. It returns true if a pending entry was dropped.
func (r *RelationResolver) MarkLinked(a, b string) bool {
	p := NewPair(a, b)
	r.linked[p] = struct{}{}
	_, wasPending := r.pending[p]
	delete(r.pending, p)
	return wasPending
}

// Drop forgets a pending pair.
func (r *RelationResolver) Drop(p Pair) {
	delete(r.pending, p)
}

// Pending returns the pending pairs in a stable order.
func (r *RelationResolver) Pending() []Pair {
	pairs := make([]Pair, 0, len(r.pending))
	for p := range r.pending {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}
