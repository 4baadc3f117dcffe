// dispatch.go — tool dispatch: routes a tools/call request to the core
// subsystem it names, mirroring the teacher's internal/queries
// dispatcher pattern (one table, one handler per tool name) but against
// this core's four consolidated tools (agent, rules, audit, video)
// instead of the teacher's five.
package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/audit"
	"github.com/agentic-web/workspace/internal/engine"
	"github.com/agentic-web/workspace/internal/eventbus"
	"github.com/agentic-web/workspace/internal/explain"
	"github.com/agentic-web/workspace/internal/intercept"
	"github.com/agentic-web/workspace/internal/registry"
	"github.com/agentic-web/workspace/internal/scheduler"
	"github.com/agentic-web/workspace/internal/transcript"
	"github.com/agentic-web/workspace/internal/types"
)

// RuleLoader re-parses the configured filter-list sources and returns
// the combined rule set plus any parse warnings, for the rules tool's
// reload action.
type RuleLoader func() ([]types.Rule, []string, error)

// Deps bundles every subsystem the dispatcher routes tool calls to. A
// nil field disables the tools that need it rather than failing
// construction; cmd/workspace always wires Explain (falling back to
// llmclient.Fake when no LLM credential is configured), so this matters
// mainly for tests that only need a subset of the surface.
type Deps struct {
	Scheduler   *scheduler.Scheduler
	Registry    *registry.Registry
	Engine      *engine.Engine
	RuleLoader  RuleLoader
	Interceptor *intercept.Interceptor
	Audit       *audit.Trail
	Transcripts *transcript.Store
	Explain     *explain.Cache
	Events      *eventbus.Bus
}

// Dispatcher routes tools/call requests by tool name.
type Dispatcher struct {
	deps Deps
}

// NewDispatcher builds a Dispatcher over deps.
func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// Dispatch executes the named tool with args and returns the MCP tool
// result content (already rendered via TextResponse/StructuredErrorResponse).
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) json.RawMessage {
	switch name {
	case "agent":
		return d.dispatchAgent(ctx, args)
	case "rules":
		return d.dispatchRules(args)
	case "audit":
		return d.dispatchAudit(args)
	case "video":
		return d.dispatchVideo(ctx, args)
	default:
		return StructuredErrorResponse(apperr.InvalidParam, "unknown tool "+name, "Call tools/list to see available tools")
	}
}

type agentArgs struct {
	Action     string        `json:"action"`
	AgentID    string        `json:"agent_id"`
	Slot       *int          `json:"slot"`
	URL        string        `json:"url"`
	Bounds     *types.Bounds `json:"bounds"`
	Fullscreen *bool         `json:"fullscreen"`
}

func (d *Dispatcher) dispatchAgent(ctx context.Context, raw json.RawMessage) (result json.RawMessage) {
	if d.deps.Scheduler == nil {
		return StructuredErrorResponse(apperr.Internal, "agent scheduler not configured", "This is a server configuration error, not something retrying will fix")
	}
	var a agentArgs
	warnings, err := UnmarshalWithWarnings(raw, &a)
	if err != nil {
		return StructuredErrorResponse(apperr.InvalidJSON, err.Error(), "Fix the JSON and retry")
	}
	defer func() { result = AppendWarningsToResult(result, warnings) }()

	switch a.Action {
	case "create":
		if a.Slot == nil {
			return StructuredErrorResponse(apperr.MissingParam, "create requires slot", "Supply slot as an integer")
		}
		agent, err := d.deps.Scheduler.CreateInSlot(ctx, *a.Slot)
		if err != nil {
			return ErrorResponseFor(err, "Check rules tool / agent list and retry with a free slot")
		}
		d.publish(eventbus.AgentCreated, agent.AgentID, agent)
		return JSONResponse("agent created", agent)

	case "navigate":
		if a.AgentID == "" || a.URL == "" {
			return StructuredErrorResponse(apperr.MissingParam, "navigate requires agent_id and url", "Supply both fields")
		}
		if err := d.deps.Scheduler.Navigate(ctx, a.AgentID, a.URL); err != nil {
			return ErrorResponseFor(err, "Call agent(action=list) to see live agent ids and retry")
		}
		d.publish(eventbus.AgentNavigated, a.AgentID, a.URL)
		return TextResponse("navigated " + a.AgentID + " to " + a.URL)

	case "navigate_next":
		if a.URL == "" {
			return StructuredErrorResponse(apperr.MissingParam, "navigate_next requires url", "Supply url")
		}
		agent, err := d.deps.Scheduler.NavigateNext(ctx, a.URL)
		if err != nil {
			return ErrorResponseFor(err, "Retry navigate_next")
		}
		d.publish(eventbus.AgentNavigated, agent.AgentID, agent)
		return JSONResponse("navigated via round-robin", agent)

	case "destroy":
		if a.AgentID == "" {
			return StructuredErrorResponse(apperr.MissingParam, "destroy requires agent_id", "Supply agent_id")
		}
		if err := d.deps.Scheduler.Destroy(ctx, a.AgentID); err != nil {
			return ErrorResponseFor(err, "destroy is idempotent; check the origin error before retrying")
		}
		if d.deps.Transcripts != nil {
			d.deps.Transcripts.DeleteAgent(a.AgentID)
		}
		d.publish(eventbus.AgentDestroyed, a.AgentID, nil)
		return TextResponse("destroyed " + a.AgentID)

	case "set_bounds":
		if a.AgentID == "" || a.Bounds == nil {
			return StructuredErrorResponse(apperr.MissingParam, "set_bounds requires agent_id and bounds", "Supply both fields")
		}
		if err := d.deps.Scheduler.SetBounds(ctx, a.AgentID, *a.Bounds); err != nil {
			return ErrorResponseFor(err, "Call agent(action=list) to see live agent ids and retry")
		}
		return TextResponse("bounds updated for " + a.AgentID)

	case "set_fullscreen":
		if a.AgentID == "" || a.Fullscreen == nil {
			return StructuredErrorResponse(apperr.MissingParam, "set_fullscreen requires agent_id and fullscreen", "Supply both fields")
		}
		if err := d.deps.Scheduler.SetFullscreen(ctx, a.AgentID, *a.Fullscreen); err != nil {
			return ErrorResponseFor(err, "Call agent(action=list) to see live agent ids and retry")
		}
		return TextResponse("fullscreen set for " + a.AgentID)

	case "reconcile_layout":
		if err := d.deps.Scheduler.ReconcileLayout(ctx); err != nil {
			return ErrorResponseFor(err, "Retry reconcile_layout")
		}
		return TextResponse("layout reconciled")

	case "list":
		if d.deps.Registry == nil {
			return StructuredErrorResponse(apperr.Internal, "agent registry not configured", "This is a server configuration error")
		}
		agents := d.deps.Registry.All()
		sort.Slice(agents, func(i, j int) bool { return agents[i].Slot < agents[j].Slot })
		return JSONResponse("live agents", agents)

	default:
		return StructuredErrorResponse(apperr.InvalidParam, "unknown agent action "+a.Action, "See the agent tool schema for valid actions")
	}
}

func (d *Dispatcher) publish(evtType eventbus.Type, agentID string, payload any) {
	if d.deps.Events == nil {
		return
	}
	d.deps.Events.Publish(eventbus.Event{Type: evtType, AgentID: agentID, Payload: payload, At: time.Now()})
}

type rulesArgs struct {
	Action string   `json:"action"`
	Mode   string   `json:"mode"`
	Hosts  []string `json:"hosts"`
}

func (d *Dispatcher) dispatchRules(raw json.RawMessage) (result json.RawMessage) {
	if d.deps.Engine == nil {
		return StructuredErrorResponse(apperr.Internal, "rule engine not configured", "This is a server configuration error")
	}
	var a rulesArgs
	warnings, err := UnmarshalWithWarnings(raw, &a)
	if err != nil {
		return StructuredErrorResponse(apperr.InvalidJSON, err.Error(), "Fix the JSON and retry")
	}
	defer func() { result = AppendWarningsToResult(result, warnings) }()

	switch a.Action {
	case "stats":
		s := d.deps.Engine.Stats()
		return JSONResponse("rule engine stats", map[string]any{
			"checked":      s.Checked,
			"blocked":      s.Blocked,
			"allowed":      s.Allowed,
			"avg_match_ns": d.deps.Engine.AvgMatchNs(),
		})

	case "stats_reset":
		d.deps.Engine.ResetStats()
		return TextResponse("rule engine stats reset")

	case "reload":
		if d.deps.RuleLoader == nil {
			return StructuredErrorResponse(apperr.Internal, "no configured rule-list sources to reload from", "Configure rule_list_paths and retry")
		}
		rules, warnings, err := d.deps.RuleLoader()
		if err != nil {
			return StructuredErrorResponse(apperr.Internal, err.Error(), "Check the configured rule-list paths")
		}
		d.deps.Engine.Load(rules)
		return JSONResponse("rules reloaded", map[string]any{"rule_count": len(rules), "warnings": warnings})

	case "set_mode":
		if d.deps.Interceptor == nil {
			return StructuredErrorResponse(apperr.Internal, "interceptor not configured", "This is a server configuration error")
		}
		if a.Mode == "" {
			return StructuredErrorResponse(apperr.MissingParam, "set_mode requires mode", "Supply one of off, strict, balanced, allowlist")
		}
		d.deps.Interceptor.SetMode(intercept.Mode(a.Mode))
		return TextResponse("intercept mode set to " + a.Mode)

	case "set_allowlist":
		if d.deps.Interceptor == nil {
			return StructuredErrorResponse(apperr.Internal, "interceptor not configured", "This is a server configuration error")
		}
		d.deps.Interceptor.SetAllowlist(a.Hosts)
		return TextResponse("allowlist replaced")

	default:
		return StructuredErrorResponse(apperr.InvalidParam, "unknown rules action "+a.Action, "See the rules tool schema for valid actions")
	}
}

type auditArgs struct {
	AgentID      string `json:"agent_id"`
	Host         string `json:"host"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	Since        string `json:"since"`
	Limit        int    `json:"limit"`
}

func (d *Dispatcher) dispatchAudit(raw json.RawMessage) (result json.RawMessage) {
	if d.deps.Audit == nil {
		return StructuredErrorResponse(apperr.Internal, "audit trail not configured", "This is a server configuration error")
	}
	var a auditArgs
	var warnings []string
	if len(raw) > 0 {
		var err error
		warnings, err = UnmarshalWithWarnings(raw, &a)
		if err != nil {
			return StructuredErrorResponse(apperr.InvalidJSON, err.Error(), "Fix the JSON and retry")
		}
	}
	defer func() { result = AppendWarningsToResult(result, warnings) }()

	filter := audit.Filter{
		AgentID:      a.AgentID,
		Host:         a.Host,
		Action:       types.RuleAction(a.Action),
		ResourceType: types.ResourceType(a.ResourceType),
		Limit:        a.Limit,
	}
	if a.Since != "" {
		t, err := time.Parse(time.RFC3339, a.Since)
		if err != nil {
			return StructuredErrorResponse(apperr.InvalidParam, "since must be RFC3339", "e.g. 2026-07-29T00:00:00Z")
		}
		filter.Since = &t
	}

	rows := d.deps.Audit.Query(filter)
	return JSONResponse("audit rows", rows)
}

type videoArgs struct {
	Action   string  `json:"action"`
	AgentID  string  `json:"agent_id"`
	VideoID  string  `json:"video_id"`
	Mode     string  `json:"mode"`
	Question string  `json:"question"`
	StartS   float64 `json:"start_s"`
	EndS     float64 `json:"end_s"`
}

func (d *Dispatcher) dispatchVideo(ctx context.Context, raw json.RawMessage) (result json.RawMessage) {
	var a videoArgs
	warnings, err := UnmarshalWithWarnings(raw, &a)
	if err != nil {
		return StructuredErrorResponse(apperr.InvalidJSON, err.Error(), "Fix the JSON and retry")
	}
	defer func() { result = AppendWarningsToResult(result, warnings) }()
	if a.AgentID == "" || a.VideoID == "" {
		return StructuredErrorResponse(apperr.MissingParam, "video actions require agent_id and video_id", "Supply both fields")
	}

	switch a.Action {
	case "transcript":
		if d.deps.Transcripts == nil {
			return StructuredErrorResponse(apperr.Internal, "transcript store not configured", "This is a server configuration error")
		}
		t, ok := d.deps.Transcripts.Get(a.AgentID, a.VideoID)
		if !ok {
			return StructuredErrorResponse(apperr.TranscriptUnavailable, "no transcript for "+a.AgentID+"/"+a.VideoID, "Navigate to a video and wait for captions to load, then retry")
		}
		return JSONResponse("transcript", map[string]any{
			"language":      t.Language,
			"segment_count": len(t.Segments),
			"full_text":     t.FullText(),
			"captured_at":   t.CapturedAt,
		})

	case "segments_in_range":
		if d.deps.Transcripts == nil {
			return StructuredErrorResponse(apperr.Internal, "transcript store not configured", "This is a server configuration error")
		}
		segs := d.deps.Transcripts.SegmentsInRange(a.AgentID, a.VideoID, a.StartS, a.EndS)
		return JSONResponse("segments", segs)

	case "explain":
		if d.deps.Explain == nil {
			return StructuredErrorResponse(apperr.ConfigMissing, "video intelligence is disabled (no LLM credential configured)", "Set GEMINI_API_KEY and restart")
		}
		mode := explain.ModeSummary
		if a.Mode != "" {
			mode = explain.Mode(a.Mode)
		}
		text, err := d.deps.Explain.Explain(ctx, a.AgentID, a.VideoID, mode)
		if err != nil {
			return ErrorResponseFor(err, "Check that a transcript exists for this agent/video and retry")
		}
		return TextResponse(text)

	case "ask":
		if d.deps.Explain == nil {
			return StructuredErrorResponse(apperr.ConfigMissing, "video intelligence is disabled (no LLM credential configured)", "Set GEMINI_API_KEY and restart")
		}
		if a.Question == "" {
			return StructuredErrorResponse(apperr.MissingParam, "ask requires question", "Supply question")
		}
		answer, err := d.deps.Explain.Ask(ctx, a.AgentID, a.VideoID, a.Question)
		if err != nil {
			return ErrorResponseFor(err, "Check that a transcript exists for this agent/video and retry")
		}
		return TextResponse(answer)

	default:
		return StructuredErrorResponse(apperr.InvalidParam, "unknown video action "+a.Action, "See the video tool schema for valid actions")
	}
}
