// Command workspace is the process entrypoint for the multi-agent
// browsing workspace: it wires configuration, the rule engine, network
// interceptor, scheduler, registry, event bus, explain-session cache,
// LLM facade, and audit trail together behind the MCP tool surface.
//
// Like the teacher's dev-console, it speaks MCP over stdio to whatever
// process launched it (an IDE, an agent harness) and optionally exposes
// a local HTTP control port for workspacectl and UI collaborators.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/audit"
	"github.com/agentic-web/workspace/internal/bridge"
	"github.com/agentic-web/workspace/internal/browser"
	"github.com/agentic-web/workspace/internal/config"
	"github.com/agentic-web/workspace/internal/engine"
	"github.com/agentic-web/workspace/internal/eventbus"
	"github.com/agentic-web/workspace/internal/explain"
	"github.com/agentic-web/workspace/internal/intercept"
	"github.com/agentic-web/workspace/internal/llmclient"
	"github.com/agentic-web/workspace/internal/mcp"
	"github.com/agentic-web/workspace/internal/pipeline"
	"github.com/agentic-web/workspace/internal/registry"
	"github.com/agentic-web/workspace/internal/rules"
	"github.com/agentic-web/workspace/internal/scheduler"
	"github.com/agentic-web/workspace/internal/schema"
	"github.com/agentic-web/workspace/internal/transcript"
	"github.com/agentic-web/workspace/internal/types"
	"github.com/fsnotify/fsnotify"
)

const version = "1.0.0"

const maxStdioBodyBytes = 10 << 20 // 10MiB, mirrors the teacher's MCP body cap

func main() {
	projectDir := flag.String("project-dir", ".", "Project directory to load .workspace.yaml/.json from")
	controlPort := flag.Int("control-port", 0, "Local HTTP control port for workspacectl/UI collaborators (0 disables)")
	slots := flag.Int("slots", 0, "Override configured slot count (0 keeps config value)")
	interceptMode := flag.String("intercept-mode", "", "Override intercept mode: off, strict, balanced, allowlist")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("workspace v%s\n", version)
		return
	}

	flags := &config.FlagOverrides{}
	if *slots > 0 {
		flags.Slots = slots
	}
	if *interceptMode != "" {
		flags.InterceptMode = interceptMode
	}

	cfg, err := config.Load(*projectDir, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[workspace] configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *controlPort); err != nil {
		fmt.Fprintf(os.Stderr, "[workspace] %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, controlPort int) error {
	ctx := context.Background()

	ruleLoader := func() ([]types.Rule, []string, error) {
		return loadRuleLists(cfg.RuleListPaths)
	}
	initialRules, warnings, err := ruleLoader()
	if err != nil {
		return fmt.Errorf("load rule lists: %w", err)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "[workspace] %s\n", w)
	}

	eng := engine.New(initialRules)
	reg := registry.New()
	trail := audit.New(cfg.AuditCapacity)
	ic := intercept.New(eng, trail)
	ic.SetMode(intercept.Mode(cfg.InterceptMode))
	ic.SetAllowlist(cfg.Allowlist)

	browserEngine := newBrowserEngine(cfg)
	sched := scheduler.New(reg, browserEngine, gridLayout, cfg.Slots, scheduler.WithDebounce(cfg.ReconcileDebounce))

	transcripts := transcript.New()
	llm := newLLMClient(ctx, cfg)
	explainCache := explain.New(cfg.SessionCacheSize, cfg.SessionTimeout, transcripts, llm)

	bus := eventbus.New(32)

	adURLPattern, err := compileAdURLPattern(cfg.AdURLPattern)
	if err != nil {
		return fmt.Errorf("ad_url_pattern: %w", err)
	}
	pipe := pipeline.New(transcripts, bus, adURLPattern, cfg.GenericInspectEnabled)

	dispatcher := mcp.NewDispatcher(mcp.Deps{
		Scheduler:   sched,
		Registry:    reg,
		Engine:      eng,
		RuleLoader:  ruleLoader,
		Interceptor: ic,
		Audit:       trail,
		Transcripts: transcripts,
		Explain:     explainCache,
		Events:      bus,
	})
	server := mcp.NewServer("browsing-workspace", version, schema.AllTools(), dispatcher)

	if cfg.RuleWatch && len(cfg.RuleListPaths) > 0 {
		watcher, err := watchRuleLists(cfg.RuleListPaths, func() {
			fresh, warns, err := ruleLoader()
			if err != nil {
				fmt.Fprintf(os.Stderr, "[workspace] rule reload failed: %v\n", err)
				return
			}
			for _, w := range warns {
				fmt.Fprintf(os.Stderr, "[workspace] %s\n", w)
			}
			eng.Load(fresh)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "[workspace] rule watch disabled: %v\n", err)
		} else {
			defer watcher.Close()
		}
	}

	if controlPort > 0 {
		go serveControlPlane(controlPort, server, bus)
	}

	if cfg.BrowserCallbackPort > 0 {
		go serveCollaboratorCallbacks(cfg.BrowserCallbackPort, ic, pipe, sched, reg, bus)
	}

	return runStdioLoop(ctx, server)
}

// compileAdURLPattern compiles pattern if non-empty; an empty pattern
// disables URL-based ad-segment matching in the manifest rewriter.
func compileAdURLPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// gridWindowW and gridWindowH are the virtual window dimensions gridLayout
// divides into an even row of slots; the collaborator's actual window may
// differ, but SetBounds calls use these same units consistently.
const gridWindowW = 1280
const gridWindowH = 800

// gridLayout lays slots out in an even row, matching the teacher's
// round-robin placement grid (§4.K).
func gridLayout(slot, n int) types.Bounds {
	if n <= 0 {
		n = 1
	}
	w := gridWindowW / n
	return types.Bounds{X: slot * w, Y: 0, W: w, H: gridWindowH}
}

func newBrowserEngine(cfg config.Config) browser.Engine {
	if cfg.BrowserHostPort == 0 {
		return browser.NewFake()
	}
	eng := bridge.NewHTTPEngine(cfg.BrowserHostPort, cfg.BrowserHostTimeout)
	if !eng.WaitReady(5 * time.Second) {
		fmt.Fprintf(os.Stderr, "[workspace] browser host on port %d not ready, proceeding anyway\n", cfg.BrowserHostPort)
	}
	return eng
}

func newLLMClient(ctx context.Context, cfg config.Config) explain.LLMClient {
	if os.Getenv(cfg.LLMAPIKeyEnv) == "" {
		return &llmclient.Fake{}
	}
	client, err := llmclient.New(ctx, cfg.LLMModel)
	if err != nil {
		if apperr.KindOf(err) == apperr.ConfigMissing {
			fmt.Fprintf(os.Stderr, "[workspace] %v; video explain/ask will use the offline fallback\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "[workspace] LLM client unavailable: %v\n", err)
		}
		return &llmclient.Fake{}
	}
	return client
}

// loadRuleLists parses every configured rule-list file, returning the
// union of their rules plus human-readable warning lines for any
// unparseable entries. A missing file is itself a warning, not a fatal
// error, consistent with §4.A's local-warning contract.
func loadRuleLists(paths []string) ([]types.Rule, []string, error) {
	var all []types.Rule
	var warnings []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("rule list %s: %v", path, err))
			continue
		}
		res := rules.Parse(path, string(data))
		all = append(all, res.Rules...)
		for _, w := range res.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s:%d: %s", w.Source, w.Line, w.Err))
		}
	}
	return all, warnings, nil
}

// watchRuleLists fires onChange whenever any configured rule-list file
// is written, enabling the hot-reload workflow supplementing §4.A.
func watchRuleLists(paths []string, onChange func()) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := map[string]bool{}
	for _, p := range paths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				onChange()
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher, nil
}

// runStdioLoop reads one MCP request per stdin message, dispatches it,
// and writes the matching response framed the same way it arrived —
// the teacher's Content-Length-vs-line-framing duality from
// mcp_stdout.go, generalized to reply in kind rather than always
// line-framing.
func runStdioLoop(ctx context.Context, server *mcp.Server) error {
	reader := bufio.NewReader(os.Stdin)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for {
		msg, framing, err := bridge.ReadStdioMessageWithMode(reader, maxStdioBodyBytes)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read stdio message: %w", err)
		}

		var req mcp.JSONRPCRequest
		if unmarshalErr := req.UnmarshalJSON(msg); unmarshalErr != nil {
			fmt.Fprintf(os.Stderr, "[workspace] malformed request: %v\n", unmarshalErr)
			continue
		}

		reqCtx, cancel := context.WithTimeout(ctx, bridge.ToolCallTimeout(req.Method, req.Params))
		resp := server.HandleRequest(reqCtx, req)
		cancel()

		if !req.HasID() {
			continue // notification: no response expected
		}
		writeStdioResponse(writer, resp, framing)
	}
}

func writeStdioResponse(w *bufio.Writer, resp mcp.JSONRPCResponse, framing bridge.StdioFraming) {
	payload, err := json.Marshal(resp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[workspace] marshal response: %v\n", err)
		return
	}
	if framing == bridge.StdioFramingContentLength {
		fmt.Fprintf(w, "Content-Length: %d\r\nContent-Type: application/json\r\n\r\n%s", len(payload), payload)
	} else {
		w.Write(payload)
		w.WriteByte('\n')
	}
	w.Flush()
}

// serveControlPlane exposes the same JSON-RPC surface over local HTTP
// so workspacectl and UI collaborators that cannot share stdin/stdout
// with this process (it is already speaking MCP there) can still query
// agent/rules/audit state and subscribe to the event bus.
func serveControlPlane(port int, server *mcp.Server, bus *eventbus.Bus) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req mcp.JSONRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := server.HandleRequest(r.Context(), req)
		w.Header().Set("Content-Type", "application/json")
		payload, err := json.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(payload)
	})
	mux.Handle("/events", eventbus.NewWSHandler(bus, nil))

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "[workspace] control plane stopped: %v\n", err)
	}
}

// serveCollaboratorCallbacks exposes the embedded-browser-engine
// collaborator's push surface (§6): per-request intercept decisions,
// per-response body rewrites, and view status/navigation events. This is
// the hook internal/browser.Engine's doc comment promises exists outside
// Engine's own method set.
func serveCollaboratorCallbacks(port int, ic *intercept.Interceptor, pipe *pipeline.Pipeline, sched *scheduler.Scheduler, reg *registry.Registry, bus *eventbus.Bus) {
	mux := http.NewServeMux()
	mux.Handle("/intercept", bridge.NewInterceptServer(ic))
	mux.Handle("/response", bridge.NewResponseServer(pipe))
	mux.Handle("/status", bridge.NewStatusServer(func(evt browser.StatusEvent) {
		agentID, ok := sched.AgentIDForView(evt.View)
		if !ok {
			return
		}
		if err := reg.SetStatus(agentID, evt.Status); err != nil {
			return
		}
		if evt.URL != "" {
			_ = reg.SetURL(agentID, evt.URL)
		}
		bus.Publish(eventbus.Event{
			Type:    eventbus.AgentStatus,
			AgentID: agentID,
			Payload: evt,
		})
	}))

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "[workspace] collaborator callback server stopped: %v\n", err)
	}
}
