// Package resolver matches extracted name fragments against the role-tagged
// participant candidates of a report.
package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ocnguye/epa-dash-sub000/pkg/extract"
	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
	"github.com/ocnguye/epa-dash-sub000/pkg/participants"
)

// Kind classifies a resolution outcome.
type Kind string

const (
	KindUnique    Kind = "unique"
	KindAmbiguous Kind = "ambiguous"
	KindNoMatch   Kind = "no_match"
)

// Method records which rule produced a unique match. It is persisted with
// the assignment so fallback matches can be audited separately from identity
// matches.
type Method string

const (
	MethodLinkedUser    Method = "linked_user"
	MethodRecordID      Method = "record_id"
	MethodExactName     Method = "exact_name"
	MethodLastName      Method = "last_name"
	MethodSoleCandidate Method = "sole_candidate"
)

// Resolution is the outcome of resolving one raw name against a report's
// candidates. Candidate and Method are set for KindUnique; Matches holds the
// surviving candidates for KindAmbiguous.
type Resolution struct {
	Kind      Kind
	Method    Method
	Candidate *participants.Candidate
	Matches   []participants.Candidate
}

// Resolver builds per-report candidate indexes and resolves names against
// them.
type Resolver struct {
	source participants.Source
	logger logging.Logger
}

// Option configures the resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a resolver backed by the given participant source.
func New(source participants.Source, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		logger: logging.MustGlobal(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logging.F("component", "resolver"))
	return r
}

// indexed is one candidate together with its normalized-name set.
type indexed struct {
	cand  participants.Candidate
	names []string
}

// Index holds the precomputed name sets for one report's candidates. Build
// it once per report; Resolve is then a pure in-memory operation.
type Index struct {
	candidates []indexed
	logger     logging.Logger
}

// Prepare builds the resolution index for a report's candidates. Name sets
// combine the user record's name variants (when the candidate is linked to a
// user) with each fragment of the free-text source label.
func (r *Resolver) Prepare(ctx context.Context, cands []participants.Candidate) (*Index, error) {
	var userIDs []int64
	for _, c := range cands {
		if c.UserID != nil {
			userIDs = append(userIDs, *c.UserID)
		}
	}

	userNames, err := r.source.UserNames(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load user names: %w", err)
	}

	idx := &Index{logger: r.logger}
	for _, c := range cands {
		var variants []string
		if c.UserID != nil {
			variants = append(variants, userNames[*c.UserID]...)
		}
		variants = append(variants, extract.SplitNames(c.SourceLabel)...)

		var names []string
		seen := make(map[string]bool, len(variants))
		for _, v := range variants {
			n := extract.Normalize(extract.FlipLastFirst(v))
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			names = append(names, n)
		}
		idx.candidates = append(idx.candidates, indexed{cand: c, names: names})
	}

	return idx, nil
}

// match is one candidate surviving a rule, tagged with how it matched.
type match struct {
	cand   participants.Candidate
	method Method
}

// rule is a single step of the resolution cascade. Rules run in slice order
// and the first rule returning any matches ends the cascade; looser rules
// are never consulted once a tighter one has spoken.
type rule struct {
	name  string
	apply func(raw string, cands []indexed) []match
}

// rules is the resolution cascade, tightest first.
var rules = []rule{
	{"numeric", matchNumeric},
	{"exact", matchExact},
	{"last_name", matchLastName},
	{"sole_candidate", matchSole},
}

// Resolve matches rawName against the indexed candidates carrying the given
// role. Role filtering happens here because the same report index serves
// both trainee and attending assertions.
func (idx *Index) Resolve(rawName string, role participants.Role) Resolution {
	var roleCands []indexed
	for _, ic := range idx.candidates {
		if ic.cand.Role == role {
			roleCands = append(roleCands, ic)
		}
	}

	raw := extract.Normalize(extract.FlipLastFirst(rawName))

	for _, rl := range rules {
		matches := rl.apply(raw, roleCands)
		switch len(matches) {
		case 0:
			continue
		case 1:
			m := matches[0]
			return Resolution{Kind: KindUnique, Method: m.method, Candidate: &m.cand}
		default:
			res := Resolution{Kind: KindAmbiguous}
			for _, m := range matches {
				res.Matches = append(res.Matches, m.cand)
			}
			idx.logger.Debug("Ambiguous resolution",
				logging.F("raw_name", rawName),
				logging.F("rule", rl.name),
				logging.F("matches", len(matches)))
			return res
		}
	}

	return Resolution{Kind: KindNoMatch}
}

// matchNumeric matches a purely numeric raw name against linked user IDs
// first, then against participant record IDs.
func matchNumeric(raw string, cands []indexed) []match {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}

	var byUser []match
	for _, ic := range cands {
		if ic.cand.UserID != nil && *ic.cand.UserID == id {
			byUser = append(byUser, match{cand: ic.cand, method: MethodLinkedUser})
		}
	}
	if len(byUser) > 0 {
		return byUser
	}

	var byRecord []match
	for _, ic := range cands {
		if ic.cand.ID == id {
			byRecord = append(byRecord, match{cand: ic.cand, method: MethodRecordID})
		}
	}
	return byRecord
}

// matchExact matches when the normalized raw name appears in a candidate's
// normalized-name set.
func matchExact(raw string, cands []indexed) []match {
	if raw == "" {
		return nil
	}
	var out []match
	for _, ic := range cands {
		for _, n := range ic.names {
			if n == raw {
				out = append(out, match{cand: ic.cand, method: MethodExactName})
				break
			}
		}
	}
	return out
}

// matchLastName tests the final token of the normalized raw name as a
// substring of every name in each candidate's set.
func matchLastName(raw string, cands []indexed) []match {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	last := fields[len(fields)-1]

	var out []match
	for _, ic := range cands {
		for _, n := range ic.names {
			if strings.Contains(n, last) {
				out = append(out, match{cand: ic.cand, method: MethodLastName})
				break
			}
		}
	}
	return out
}

// matchSole takes the only candidate of the role unconditionally. This can
// mis-assign when extraction garbled the name and the sole rostered
// candidate is not the person the text meant; the distinct method value
// keeps such assignments auditable.
func matchSole(raw string, cands []indexed) []match {
	if len(cands) != 1 {
		return nil
	}
	return []match{{cand: cands[0].cand, method: MethodSoleCandidate}}
}
