// pipeline.go — the §4.D/§4.E/§4.F response pipeline: the concrete
// collaborator hook internal/browser.Engine's doc comment promises for
// inbound response bodies. The embedded-browser-engine collaborator
// posts each response body it intercepts here; Pipeline dispatches it to
// the response inspector, manifest rewriter, or caption extractor by
// content sniffing and returns whatever rewrite the collaborator should
// substitute before handing the body to the page.
package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/agentic-web/workspace/internal/caption"
	"github.com/agentic-web/workspace/internal/eventbus"
	"github.com/agentic-web/workspace/internal/inspect"
	"github.com/agentic-web/workspace/internal/manifest"
	"github.com/agentic-web/workspace/internal/transcript"
)

// captionURLHint marks a response path as a caption/timedtext track
// rather than a generic JSON API response.
const captionURLHint = "timedtext"

// ResponsePush is one response body handed to the pipeline by the
// browser-host collaborator.
type ResponsePush struct {
	AgentID     string
	VideoID     string // required for caption capture; transcript/explain/ask are unreachable without it
	Language    string
	URLPath     string
	ContentType string
	Body        string
}

// ResponseResult is what the collaborator should do with the body it
// pushed: substitute Body if Modified, otherwise pass the original
// through unchanged.
type ResponseResult struct {
	Modified bool
	Body     string
}

// Pipeline wires the three response-shaped stages (inspect, manifest,
// caption) to the transcript store and event bus they feed.
type Pipeline struct {
	transcripts    *transcript.Store
	bus            *eventbus.Bus
	adURLPattern   *regexp.Regexp
	genericInspect bool
}

// New builds a Pipeline. adURLPattern may be nil (no ad-segment-URL
// matching in the manifest rewriter); genericInspect gates inspect's
// fallback stripping for bodies that don't match a known endpoint.
func New(transcripts *transcript.Store, bus *eventbus.Bus, adURLPattern *regexp.Regexp, genericInspect bool) *Pipeline {
	return &Pipeline{
		transcripts:    transcripts,
		bus:            bus,
		adURLPattern:   adURLPattern,
		genericInspect: genericInspect,
	}
}

// ProcessResponse routes push to the caption extractor, manifest
// rewriter, or response inspector, in that sniffing order: a caption
// track is never a manifest or a generic API body even though its
// content-type can overlap with plain JSON.
func (p *Pipeline) ProcessResponse(push ResponsePush) ResponseResult {
	if isCaptionPush(push.URLPath, push.ContentType) {
		p.captureCaption(push)
		return ResponseResult{Body: push.Body}
	}

	if manifest.IsDASH(push.Body, push.ContentType) || manifest.IsHLS(push.Body, push.ContentType) {
		res := manifest.Rewrite(push.Body, push.ContentType, p.adURLPattern)
		return ResponseResult{Modified: res.Modified, Body: res.Content}
	}

	res := inspect.Inspect(push.URLPath, push.ContentType, push.Body, p.genericInspect)
	return ResponseResult{Modified: res.Modified, Body: res.Body}
}

func isCaptionPush(urlPath, contentType string) bool {
	lowerPath := strings.ToLower(urlPath)
	lowerType := strings.ToLower(contentType)
	return strings.Contains(lowerPath, captionURLHint) ||
		strings.Contains(lowerType, "vtt") ||
		strings.Contains(lowerType, "json3")
}

// captureCaption parses push's body as JSON3 or WebVTT and, on success,
// stores the resulting segments and notifies event-bus subscribers. A
// caption body that parses as neither dialect, or that arrives without a
// video_id, is silently dropped: per §7 a caption parse failure never
// fails the request, it just leaves no transcript.
func (p *Pipeline) captureCaption(push ResponsePush) {
	if p.transcripts == nil || push.VideoID == "" {
		return
	}

	segs, ok := caption.ParseJSON3(push.Body)
	if !ok {
		segs, ok = caption.ParseWebVTT(push.Body)
	}
	if !ok {
		return
	}

	p.transcripts.Put(push.AgentID, push.VideoID, push.Language, segs, time.Now())
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{
			Type:    eventbus.TranscriptAvailable,
			AgentID: push.AgentID,
			Payload: map[string]any{"video_id": push.VideoID, "segment_count": len(segs)},
		})
	}
}
