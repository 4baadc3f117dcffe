// caption.go — captioning-response parser (§4.F).
// Parses either the platform's JSON3 dialect or a WebVTT body into an
// ordered segment sequence. Parse failures never propagate: they simply
// produce zero segments, per §7's degrade-gracefully policy.
package caption

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/agentic-web/workspace/internal/types"
)

// json3Event mirrors the platform's {tStartMs, dDurationMs, segs} shape.
// Segments may be absent on pure-timing "carriage" events, which are
// skipped since they carry no text.
type json3Doc struct {
	Events []json3Event `json:"events"`
}

type json3Segments struct {
	Segments []json3Event `json:"segments"`
}

type json3Event struct {
	TStartMs    float64     `json:"tStartMs"`
	DDurationMs float64     `json:"dDurationMs"`
	Segs        []json3Seg  `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

// ParseJSON3 parses the platform's JSON3 caption dialect into ordered
// segments. On any parse failure, returns (nil, false) rather than an
// error; the caller attaches no transcript for this response.
func ParseJSON3(body string) ([]types.Segment, bool) {
	var doc json3Doc
	events := []json3Event(nil)
	if err := json.Unmarshal([]byte(body), &doc); err == nil && len(doc.Events) > 0 {
		events = doc.Events
	} else {
		var alt json3Segments
		if err := json.Unmarshal([]byte(body), &alt); err != nil || len(alt.Segments) == 0 {
			return nil, false
		}
		events = alt.Segments
	}

	var out []types.Segment
	for _, e := range events {
		text := joinSegs(e.Segs)
		if text == "" {
			continue // carriage-only event: timing with no text
		}
		startS := e.TStartMs / 1000
		endS := startS + e.DDurationMs/1000
		out = append(out, types.Segment{StartS: startS, EndS: endS, Text: text})
	}
	if len(out) == 0 {
		return nil, false
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartS < out[j].StartS })
	return out, true
}

func joinSegs(segs []json3Seg) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.UTF8)
	}
	return strings.TrimSpace(b.String())
}

// ParseWebVTT parses a WebVTT-formatted caption body. Cue identifiers,
// "WEBVTT" headers, and blank lines are ignored; a cue's text lines are
// joined with a single space. Malformed timestamp lines are skipped
// rather than aborting the whole parse.
func ParseWebVTT(body string) ([]types.Segment, bool) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	var out []types.Segment
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		start, end, ok := parseVTTTimestampLine(line)
		if !ok {
			continue
		}
		var textLines []string
		for i++; i < len(lines); i++ {
			l := strings.TrimSpace(lines[i])
			if l == "" {
				break
			}
			textLines = append(textLines, l)
		}
		text := strings.TrimSpace(strings.Join(textLines, " "))
		if text == "" {
			continue
		}
		out = append(out, types.Segment{StartS: start, EndS: end, Text: text})
	}
	if len(out) == 0 {
		return nil, false
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartS < out[j].StartS })
	return out, true
}

// parseVTTTimestampLine recognizes a "00:00:01.000 --> 00:00:03.000 ..."
// cue line, tolerating trailing cue settings.
func parseVTTTimestampLine(line string) (startS, endS float64, ok bool) {
	idx := strings.Index(line, "-->")
	if idx < 0 {
		return 0, 0, false
	}
	left := strings.TrimSpace(line[:idx])
	rightAndSettings := strings.TrimSpace(line[idx+3:])
	right := strings.Fields(rightAndSettings)
	if len(right) == 0 {
		return 0, 0, false
	}
	start, err1 := parseVTTTimestamp(left)
	end, err2 := parseVTTTimestamp(right[0])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return start, end, true
}

// parseVTTTimestamp parses "HH:MM:SS.mmm" or "MM:SS.mmm" into seconds.
func parseVTTTimestamp(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, strconv.ErrSyntax
	}
	var hours, minutes float64
	secIdx := len(parts) - 1
	if len(parts) == 3 {
		h, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, err
		}
		hours = h
	}
	m, err := strconv.ParseFloat(parts[secIdx-1], 64)
	if err != nil {
		return 0, err
	}
	minutes = m
	sec, err := strconv.ParseFloat(parts[secIdx], 64)
	if err != nil {
		return 0, err
	}
	return hours*3600 + minutes*60 + sec, nil
}
