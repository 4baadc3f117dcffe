// intercept.go — network interceptor (§4.C).
// Entry point called per outgoing request by the browser-engine
// collaborator. Guarantees at-most-one decision per request.
package intercept

import (
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/agentic-web/workspace/internal/engine"
	"github.com/agentic-web/workspace/internal/etld"
	"github.com/agentic-web/workspace/internal/types"
	"github.com/google/uuid"
)

// Mode is the interceptor's operating mode.
type Mode string

const (
	ModeOff       Mode = "off"
	ModeStrict    Mode = "strict"
	ModeBalanced  Mode = "balanced"
	ModeAllowlist Mode = "allowlist"
)

// trackingHeaderPrefixes is the closed set of lowercased header-name
// prefixes stripped unconditionally regardless of mode.
var trackingHeaderPrefixes = []string{
	"x-client-data",
	"x-tracking",
	"x-ad-",
}

// Decision is the outcome of Intercept for one request. HeaderMods maps a
// header name to its replacement value; an empty string value means
// "remove this header".
type Decision struct {
	Block      bool
	Reason     string
	RuleID     string
	HeaderMods map[string]string
}

// AuditRecorder records a blocked request. Implemented by internal/audit.Trail.
type AuditRecorder interface {
	Record(row types.AuditRow)
}

// Interceptor is the §4.C network interceptor. Safe for concurrent use:
// the mode flag and allowlist are read-heavy/write-rare and guarded by an
// atomic pointer per §5's readers-writer discipline.
type Interceptor struct {
	mode      atomic.Value // Mode
	allowlist atomic.Pointer[[]string]
	engine    *engine.Engine
	audit     AuditRecorder
}

// New builds an Interceptor over the given rule engine and audit sink.
func New(eng *engine.Engine, audit AuditRecorder) *Interceptor {
	ic := &Interceptor{engine: eng, audit: audit}
	ic.mode.Store(ModeBalanced)
	empty := []string{}
	ic.allowlist.Store(&empty)
	return ic
}

// SetMode atomically changes the interceptor's mode.
func (ic *Interceptor) SetMode(m Mode) { ic.mode.Store(m) }

// Mode returns the interceptor's current mode.
func (ic *Interceptor) Mode() Mode { return ic.mode.Load().(Mode) }

// SetAllowlist atomically replaces the host allowlist. Entries are simple
// globs with an optional leading "*." wildcard.
func (ic *Interceptor) SetAllowlist(hosts []string) {
	cp := append([]string(nil), hosts...)
	ic.allowlist.Store(&cp)
}

// Intercept classifies one outgoing request and returns the decision the
// browser-engine collaborator should enforce. It never blocks a request
// twice and never reverses a decision once returned. headerNames is the
// request's outgoing header set, used only to compute HeaderMods
// (tracking-prefix stripping applies regardless of mode, per §4.C step 4);
// it plays no part in the block/allow decision itself.
func (ic *Interceptor) Intercept(agentID, rawURL, pageURL, method string, resourceType types.ResourceType, headerNames []string) Decision {
	if ic.Mode() == ModeOff {
		return Decision{Block: false, Reason: "mode_off"}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Decision{Block: false, Reason: "unparseable_url"}
	}
	host := u.Hostname()
	path := u.Path
	if u.RawQuery != "" {
		path = path + "?" + u.RawQuery
	}

	pageHost := ""
	if pu, err := url.Parse(pageURL); err == nil {
		pageHost = pu.Hostname()
	}
	isThirdParty := etld.IsThirdParty(host, pageHost)

	if ic.matchesAllowlist(host) {
		return Decision{Block: false, Reason: "allowlist"}
	}

	req := types.InterceptRequest{
		URL:          rawURL,
		Host:         host,
		Path:         path,
		ResourceType: resourceType,
		PageURL:      pageURL,
		IsThirdParty: isThirdParty,
		Method:       method,
	}

	match := ic.engine.Match(req)
	if match.Matched && match.Action == types.ActionBlock {
		if ic.audit != nil {
			ic.audit.Record(types.AuditRow{
				RequestID:    uuid.NewString(),
				AgentID:      agentID,
				Timestamp:    time.Now(),
				URL:          rawURL,
				Host:         host,
				ResourceType: resourceType,
				RuleID:       match.RuleID,
				Action:       types.ActionBlock,
				PageURL:      pageURL,
				Method:       method,
			})
		}
		return Decision{Block: true, Reason: "rule_match", RuleID: match.RuleID}
	}

	mods := ic.headerMods(isThirdParty, headerNames)
	return Decision{Block: false, Reason: "allow", HeaderMods: mods}
}

func (ic *Interceptor) matchesAllowlist(host string) bool {
	if host == "" {
		return false
	}
	list := ic.allowlist.Load()
	if list == nil {
		return false
	}
	for _, pattern := range *list {
		if matchesHostGlob(pattern, host) {
			return true
		}
	}
	return false
}

// matchesHostGlob supports a bare host or a "*.suffix" wildcard.
func matchesHostGlob(pattern, host string) bool {
	pattern = strings.ToLower(pattern)
	host = strings.ToLower(host)
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:] // keep leading '.'
		return host == pattern[2:] || strings.HasSuffix(host, suffix)
	}
	return pattern == host
}

// headerMods computes every header mutation for one request: the
// strict-mode third-party Referer strip plus the unconditional
// tracking-prefix strip (§4.C step 4), merged into one map.
func (ic *Interceptor) headerMods(isThirdParty bool, headerNames []string) map[string]string {
	mods := map[string]string{}
	if ic.Mode() == ModeStrict && isThirdParty {
		mods["Referer"] = ""
	}
	for name, val := range StripTrackingHeaders(headerNames) {
		mods[name] = val
	}
	return mods
}

// StripTrackingHeaders returns the subset of headerNames whose lowercased
// form starts with a known tracking prefix, mapped to "" (remove).
func StripTrackingHeaders(headerNames []string) map[string]string {
	mods := map[string]string{}
	for _, name := range headerNames {
		lower := strings.ToLower(name)
		for _, prefix := range trackingHeaderPrefixes {
			if strings.HasPrefix(lower, prefix) {
				mods[name] = ""
				break
			}
		}
	}
	return mods
}
