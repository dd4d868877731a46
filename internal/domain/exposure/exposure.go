// Package exposure models per-target recommendation history and eligibility.
package exposure

// Ledger maps a candidate id to how many times it was shown to one target.
type Ledger map[string]int

// Count returns the exposure count for id, 0 when absent.
func (l Ledger) Count(id string) int {
	return l[id]
}

// Entry is one append-only ledger record: candidate shown to target once.
type Entry struct {
	CandidateID string
	BatchID     string
}

// Aggregate folds ledger entries into per-candidate counts.
func Aggregate(entries []Entry) Ledger {
	l := make(Ledger, len(entries))
	for _, e := range entries {
		if e.CandidateID == "" {
			continue
		}
		l[e.CandidateID]++
	}
	return l
}

// Exclusions is the set of candidate ids never to recommend to a target.
type Exclusions map[string]struct{}

// NewExclusions builds a set from ids, skipping empty ones.
func NewExclusions(ids ...string) Exclusions {
	ex := make(Exclusions, len(ids))
	ex.Add(ids...)
	return ex
}

// Add inserts ids into the set.
func (e Exclusions) Add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			e[id] = struct{}{}
		}
	}
}

// Has reports whether id is excluded. Safe on a nil set.
func (e Exclusions) Has(id string) bool {
	_, ok := e[id]
	return ok
}
