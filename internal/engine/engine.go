// engine.go — trie-indexed rule engine (§4.B).
// Network rules are indexed by host using a reverse-label trie: a host
// like "ads.example.com" is inserted along the path ["com","example","ads"]
// from the root. Rules with no host constraint live in the root's own
// rule bucket and match every request.
package engine

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/agentic-web/workspace/internal/types"
)

type compiledRule struct {
	rule     types.Rule
	pathRe   *regexp.Regexp
	insertAt int
}

type node struct {
	children      map[string]*node
	rules         []*compiledRule // exact-host rules terminating at this node
	wildcardRules []*compiledRule // "*.<suffix>" rules rooted at this node
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Stats holds the engine's running counters (§4.B "Statistics").
type Stats struct {
	Checked       int64
	Blocked       int64
	Allowed       int64
	totalMatchNs  int64 // accumulated nanoseconds across all matches
	matchCount    int64
}

// AvgMatchNs returns the running average match duration in nanoseconds.
func (s *Stats) AvgMatchNs() int64 {
	count := atomic.LoadInt64(&s.matchCount)
	if count == 0 {
		return 0
	}
	return atomic.LoadInt64(&s.totalMatchNs) / count
}

// Engine is a priority-ordered, trie-indexed matcher for network rules.
// The rule set is replaced atomically (pointer swap, per §5); readers
// never observe a torn update.
type Engine struct {
	root  atomic.Pointer[node]
	stats Stats
}

// New builds an Engine over the given rule set. Load keeps only enabled
// network rules: cosmetic rules are dropped there, so this package
// neither indexes nor matches them.
func New(rules []types.Rule) *Engine {
	e := &Engine{}
	e.Load(rules)
	return e
}

// Load atomically replaces the engine's rule set.
func (e *Engine) Load(rules []types.Rule) {
	root := newNode()
	insertOrdinal := 0
	for _, r := range rules {
		if r.Kind != types.KindNetwork || !r.Enabled {
			continue
		}
		cr := &compiledRule{rule: r, insertAt: insertOrdinal}
		insertOrdinal++
		if r.PathRegex != "" {
			if re, err := regexp.Compile(r.PathRegex); err == nil {
				cr.pathRe = re
			}
		}

		if len(r.HostPatterns) == 0 {
			root.rules = append(root.rules, cr)
			continue
		}
		for _, hp := range r.HostPatterns {
			insertHostPattern(root, hp, cr)
		}
	}
	e.root.Store(root)
}

func insertHostPattern(root *node, pattern string, cr *compiledRule) {
	wildcard := false
	host := pattern
	if strings.HasPrefix(pattern, "*.") {
		wildcard = true
		host = pattern[2:]
	}
	if host == "" {
		root.rules = append(root.rules, cr)
		return
	}
	labels := reverseLabels(host)
	cur := root
	for _, lbl := range labels {
		child, ok := cur.children[lbl]
		if !ok {
			child = newNode()
			cur.children[lbl] = child
		}
		cur = child
	}
	if wildcard {
		cur.wildcardRules = append(cur.wildcardRules, cr)
	} else {
		cur.rules = append(cur.rules, cr)
	}
}

func reverseLabels(host string) []string {
	parts := strings.Split(strings.ToLower(host), ".")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = parts[len(parts)-1-i]
		_ = p
	}
	return out
}

// Match evaluates req against the current rule set, returning the first
// candidate (in priority order, ties broken by insertion order) whose
// predicates all hold.
func (e *Engine) Match(req types.InterceptRequest) types.MatchResult {
	start := time.Now()
	defer func() {
		d := time.Since(start).Nanoseconds()
		atomic.AddInt64(&e.stats.totalMatchNs, d)
		atomic.AddInt64(&e.stats.matchCount, 1)
		atomic.AddInt64(&e.stats.Checked, 1)
	}()

	root := e.root.Load()
	if root == nil {
		return types.MatchResult{}
	}

	candidates := e.collectCandidates(root, req.Host)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rule.Priority != candidates[j].rule.Priority {
			return candidates[i].rule.Priority < candidates[j].rule.Priority
		}
		return candidates[i].insertAt < candidates[j].insertAt
	})

	for _, cr := range candidates {
		if !predicatesHold(cr, req) {
			continue
		}
		result := types.MatchResult{Matched: true, RuleID: cr.rule.ID, Action: cr.rule.Action}
		if cr.rule.Action == types.ActionBlock {
			atomic.AddInt64(&e.stats.Blocked, 1)
		} else {
			atomic.AddInt64(&e.stats.Allowed, 1)
		}
		return result
	}
	atomic.AddInt64(&e.stats.Allowed, 1)
	return types.MatchResult{}
}

// collectCandidates walks the trie from root to the deepest label match
// for host, emitting root rules, wildcard rules at every step, and exact
// rules only at a full terminal match — in that traversal order, per §4.B.
func (e *Engine) collectCandidates(root *node, host string) []*compiledRule {
	var candidates []*compiledRule
	candidates = append(candidates, root.rules...)

	if host == "" {
		return candidates
	}

	labels := reverseLabels(host)
	cur := root
	for i, lbl := range labels {
		next, ok := cur.children[lbl]
		if !ok {
			return candidates
		}
		candidates = append(candidates, next.wildcardRules...)
		cur = next
		if i == len(labels)-1 {
			candidates = append(candidates, cur.rules...)
		}
	}
	return candidates
}

func predicatesHold(cr *compiledRule, req types.InterceptRequest) bool {
	r := cr.rule
	if len(r.ResourceTypes) > 0 {
		found := false
		for _, rt := range r.ResourceTypes {
			if rt == req.ResourceType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	switch r.ThirdParty {
	case types.ThirdPartyTrue:
		if !req.IsThirdParty {
			return false
		}
	case types.ThirdPartyFalse:
		if req.IsThirdParty {
			return false
		}
	}
	if cr.pathRe != nil && !cr.pathRe.MatchString(req.Path) {
		return false
	}
	return true
}

// Stats returns a snapshot of the engine's running counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Checked: atomic.LoadInt64(&e.stats.Checked),
		Blocked: atomic.LoadInt64(&e.stats.Blocked),
		Allowed: atomic.LoadInt64(&e.stats.Allowed),
	}
}

// AvgMatchNs returns the engine's running average match duration.
func (e *Engine) AvgMatchNs() int64 {
	return e.stats.AvgMatchNs()
}

// ResetStats zeroes the engine's counters.
func (e *Engine) ResetStats() {
	atomic.StoreInt64(&e.stats.Checked, 0)
	atomic.StoreInt64(&e.stats.Blocked, 0)
	atomic.StoreInt64(&e.stats.Allowed, 0)
	atomic.StoreInt64(&e.stats.totalMatchNs, 0)
	atomic.StoreInt64(&e.stats.matchCount, 0)
}
