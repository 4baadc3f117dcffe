// parser.go — EasyList-dialect filter parser (§4.A).
// One rule per line. Invalid lines are data, not contracts: they are
// recorded via a warning callback and skipped, never raised to the
// caller.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/types"
)

// defaultBlockPriority is the auto-assigned priority for a network block
// rule. Exception rules get half of it so allow beats block at the same
// source, per §3/§4.A.
const defaultBlockPriority = 100

// ParseWarning records one unparseable line, carried as apperr.RuleParseWarn
// rather than raised — parser errors are local (§7).
type ParseWarning struct {
	Source string
	Line   int
	Text   string
	Err    *apperr.Error
}

// ParseResult is the product of parsing one filter-list source.
type ParseResult struct {
	Rules    []types.Rule
	Warnings []ParseWarning
}

// Parse parses a filter list's full text, attributing rule IDs and
// warnings to the given source name (used for deterministic rule-id
// derivation: {source, 1-based line ordinal}).
func Parse(source, text string) ParseResult {
	var res ParseResult
	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
			continue
		}
		rule, err := parseLine(source, lineNo, line)
		if err != nil {
			res.Warnings = append(res.Warnings, ParseWarning{
				Source: source,
				Line:   lineNo,
				Text:   line,
				Err:    err,
			})
			continue
		}
		res.Rules = append(res.Rules, rule)
	}
	return res
}

func ruleID(source string, line int) string {
	return fmt.Sprintf("%s:%d", source, line)
}

func parseLine(source string, line int, text string) (types.Rule, *apperr.Error) {
	id := ruleID(source, line)

	if idx := cosmeticSeparatorIndex(text); idx >= 0 {
		return parseCosmetic(id, source, text, idx)
	}
	return parseNetwork(id, source, text)
}

// cosmeticSeparatorIndex returns the index of "##" or "#@#" in text, or -1.
// "#@#" is checked first since it's a superset match of "##" at the same
// position.
func cosmeticSeparatorIndex(text string) int {
	if idx := strings.Index(text, "#@#"); idx >= 0 {
		return idx
	}
	if idx := strings.Index(text, "##"); idx >= 0 {
		return idx
	}
	return -1
}

func parseCosmetic(id, source, text string, sepIdx int) (types.Rule, *apperr.Error) {
	exception := strings.Contains(text[sepIdx:], "#@#")
	sepLen := 2
	if exception {
		sepLen = 3
	}
	domainPart := strings.TrimSpace(text[:sepIdx])
	selector := strings.TrimSpace(text[sepIdx+sepLen:])
	if selector == "" {
		return types.Rule{}, apperr.New(apperr.RuleParseWarn, "cosmetic rule missing selector")
	}

	var domains []string
	var antiDomains []string
	if domainPart != "" {
		for _, d := range strings.Split(domainPart, ",") {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			if strings.HasPrefix(d, "~") {
				antiDomains = append(antiDomains, d[1:])
			} else {
				domains = append(domains, d)
			}
		}
	}

	priority := defaultBlockPriority
	action := types.ActionBlock
	if exception {
		priority = defaultBlockPriority / 2
		action = types.ActionAllow
	}

	return types.Rule{
		ID:          id,
		Kind:        types.KindCosmetic,
		Selector:    selector,
		Domains:     domains,
		AntiDomains: antiDomains,
		Action:      action,
		Priority:    priority,
		Source:      source,
		Enabled:     true,
	}, nil
}

func parseNetwork(id, source, text string) (types.Rule, *apperr.Error) {
	exception := strings.HasPrefix(text, "@@")
	if exception {
		text = text[2:]
	}
	if text == "" {
		return types.Rule{}, apperr.New(apperr.RuleParseWarn, "empty network pattern")
	}

	pattern := text
	var optionsRaw string
	if idx := lastUnescapedDollar(text); idx >= 0 {
		pattern = text[:idx]
		optionsRaw = text[idx+1:]
	}
	if pattern == "" {
		return types.Rule{}, apperr.New(apperr.RuleParseWarn, "empty network pattern")
	}

	domainAnchor := strings.HasPrefix(pattern, "||")
	if domainAnchor {
		pattern = pattern[2:]
	}

	hostPatterns, pathTail, hostOnly := splitHostAndPath(pattern, domainAnchor)

	rule := types.Rule{
		ID:           id,
		Kind:         types.KindNetwork,
		HostPatterns: hostPatterns,
		Source:       source,
		Enabled:      true,
	}

	if !hostOnly && pathTail != "" {
		rule.PathRegex = compilePathRegex(pathTail)
	}

	if optionsRaw != "" {
		if err := applyOptions(&rule, optionsRaw); err != nil {
			return types.Rule{}, err
		}
	}

	if exception {
		rule.Action = types.ActionAllow
		rule.Priority = defaultBlockPriority / 2
	} else {
		rule.Action = types.ActionBlock
		rule.Priority = defaultBlockPriority
	}

	return rule, nil
}

// splitHostAndPath separates a pattern's leading host portion from any
// trailing path/query portion. hostOnly is true when the pattern reduces
// to nothing but the domain-anchored host (optionally followed by a lone
// '^' separator), in which case no PathRegex
// should be attached (§4.A edge case).
func splitHostAndPath(pattern string, domainAnchor bool) (hostPatterns []string, pathTail string, hostOnly bool) {
	if !domainAnchor {
		// Non-anchored patterns carry no host constraint; the whole thing
		// is a path/URL regex evaluated against every host.
		return nil, pattern, pattern == ""
	}

	// Host runs up to the first '/', '^', or '*' that isn't part of the
	// leading host text, or to end of string.
	end := len(pattern)
	for i, r := range pattern {
		if r == '/' || r == '^' || r == '*' {
			end = i
			break
		}
	}
	host := pattern[:end]
	rest := pattern[end:]

	if host == "" {
		return nil, rest, rest == ""
	}

	hp := []string{host}
	if rest == "" || rest == "^" {
		return hp, "", true
	}
	return hp, rest, false
}

var dollarEscape = regexp.MustCompile(`\\\$`)

func lastUnescapedDollar(s string) int {
	stripped := dollarEscape.ReplaceAllString(s, "  ")
	return strings.LastIndex(stripped, "$")
}

// compilePathRegex turns a filter pattern's path/query remainder into a
// compiled regex source string. '*' is a wildcard; '^' means end-of-host
// separator or path delimiter.
func compilePathRegex(tail string) string {
	var b strings.Builder
	for _, r := range tail {
		switch r {
		case '*':
			b.WriteString(".*")
		case '^':
			b.WriteString(`([/?#]|$)`)
		case '.', '+', '(', ')', '[', ']', '{', '}', '|', '\\', '?', '$':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func applyOptions(rule *types.Rule, raw string) *apperr.Error {
	for _, opt := range strings.Split(raw, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		switch {
		case opt == "third-party":
			rule.ThirdParty = types.ThirdPartyTrue
		case opt == "~third-party", opt == "first-party":
			rule.ThirdParty = types.ThirdPartyFalse
		case strings.HasPrefix(opt, "domain="):
			applyDomainOption(rule, strings.TrimPrefix(opt, "domain="))
		case strings.HasPrefix(opt, "~") && types.ValidResourceType(opt[1:]):
			// Negated resource type: recognized but not modeled as a
			// separate exclusion set; such rules simply omit that type
			// from the positive set they still declare, so tolerate it
			// silently rather than rejecting the whole rule.
		case types.ValidResourceType(opt):
			rule.ResourceTypes = append(rule.ResourceTypes, types.ResourceType(opt))
		default:
			// Unrecognized option: per §4.A only the listed options are
			// "recognized"; an unknown one doesn't invalidate the rule.
		}
	}
	return nil
}

func applyDomainOption(rule *types.Rule, spec string) {
	for _, d := range strings.Split(spec, "|") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if strings.HasPrefix(d, "~") {
			rule.AntiDomains = append(rule.AntiDomains, d[1:])
		} else {
			rule.Domains = append(rule.Domains, d)
		}
	}
}
