// manifest.go — streaming-media manifest ad-segment rewriter (§4.E).
// DASH edits are regex-based structural edits against the raw XML text,
// not a full parse (§9 Open Question #2); HLS edits are line-oriented.
package manifest

import (
	"regexp"
	"strings"
)

// Result is the outcome of rewriting one manifest body.
type Result struct {
	Content         string
	Modified        bool
	SegmentsRemoved int
}

// IsDASH reports whether body/contentType identify a DASH presentation.
func IsDASH(body, contentType string) bool {
	return strings.Contains(body, "<MPD") || strings.Contains(contentType, "application/dash+xml")
}

// IsHLS reports whether body/contentType identify an HLS playlist.
func IsHLS(body, contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(body), "#EXTM3U") ||
		strings.Contains(contentType, "application/vnd.apple.mpegurl")
}

// Rewrite dispatches to the DASH or HLS rewriter by content sniffing. If
// neither shape is recognized, body is returned unmodified.
func Rewrite(body, contentType string, adURLPattern *regexp.Regexp) Result {
	switch {
	case IsDASH(body, contentType):
		return rewriteDASH(body, adURLPattern)
	case IsHLS(body, contentType):
		return rewriteHLS(body, adURLPattern)
	default:
		return Result{Content: body}
	}
}

var (
	periodRe        = regexp.MustCompile(`(?s)<Period\b[^>]*\bid="[^"]*ad[^"]*"[^>]*>.*?</Period>`)
	adaptationSetRe = regexp.MustCompile(`(?s)<AdaptationSet\b[^>]*\bcontentType="ad"[^>]*>.*?</AdaptationSet>`)
	eventStreamRe   = regexp.MustCompile(`(?s)<EventStream\b[^>]*\bschemeIdUri="[^"]*ad[^"]*"[^>]*>.*?</EventStream>`)
	segmentTagRe    = regexp.MustCompile(`<S\b[^>]*\bmedia="([^"]*)"[^>]*/>`)
)

// rewriteDASH applies the four regex-based structural edits of §4.E.
func rewriteDASH(body string, adURLPattern *regexp.Regexp) Result {
	out := body
	removed := 0

	out, n := removeAllMatches(out, periodRe)
	removed += n

	out, n = removeAllMatches(out, adaptationSetRe)
	removed += n

	out, n = removeAllMatches(out, eventStreamRe)
	removed += n

	if adURLPattern != nil {
		out, n = removeMatchingSegmentTags(out, adURLPattern)
		removed += n
	}

	if removed == 0 {
		return Result{Content: body}
	}
	return Result{Content: out, Modified: true, SegmentsRemoved: removed}
}

func removeAllMatches(body string, re *regexp.Regexp) (string, int) {
	matches := re.FindAllStringIndex(body, -1)
	if len(matches) == 0 {
		return body, 0
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(body[last:m[0]])
		last = m[1]
	}
	b.WriteString(body[last:])
	return b.String(), len(matches)
}

func removeMatchingSegmentTags(body string, adURLPattern *regexp.Regexp) (string, int) {
	matches := segmentTagRe.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body, 0
	}
	var b strings.Builder
	last := 0
	removed := 0
	for _, m := range matches {
		mediaURL := body[m[2]:m[3]]
		if !adURLPattern.MatchString(mediaURL) {
			continue
		}
		b.WriteString(body[last:m[0]])
		last = m[1]
		removed++
	}
	b.WriteString(body[last:])
	if removed == 0 {
		return body, 0
	}
	return b.String(), removed
}

// hlsMarkerPrefixes are dropped outright. Only the marker line itself
// goes: the segment after it is dropped only when its URI matches the ad
// URL pattern.
var hlsMarkerPrefixes = []string{
	"#EXT-X-CUE-OUT",
	"#EXT-X-CUE-IN",
	"#EXT-X-SCTE35",
	"#EXT-OATCLS-SCTE35",
	"#EXT-X-ASSET",
}

// interstitialDateRangeClasses marks #EXT-X-DATERANGE lines whose CLASS
// attribute identifies a dynamic-ad-insertion break.
var interstitialDateRangeClasses = []string{
	"com.apple.hls.interstitial",
	"com.google.dai.ad",
}

// rewriteHLS applies the line-oriented edits of §4.E, preserving every
// retained line byte-for-byte. Each dropped marker line and each dropped
// EXTINF+URI segment pair counts as one removed unit; a discontinuity
// marker is additionally dropped when it directly follows a removed unit.
func rewriteHLS(body string, adURLPattern *regexp.Regexp) Result {
	lines := strings.Split(body, "\n")
	var out []string
	removed := 0
	prevDropped := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimRight(line, "\r")

		if isAdMarkerLine(trimmed) {
			removed++
			prevDropped = true
			continue
		}

		if strings.HasPrefix(trimmed, "#EXT-X-DISCONTINUITY") && prevDropped {
			removed++
			continue
		}

		if strings.HasPrefix(trimmed, "#EXTINF") && i+1 < len(lines) {
			uriLine := strings.TrimRight(lines[i+1], "\r")
			if !strings.HasPrefix(uriLine, "#") && adURLPattern != nil && adURLPattern.MatchString(uriLine) {
				removed++
				i++
				prevDropped = true
				continue
			}
		}

		out = append(out, line)
		prevDropped = false
	}

	if removed == 0 {
		return Result{Content: body}
	}
	return Result{Content: strings.Join(out, "\n"), Modified: true, SegmentsRemoved: removed}
}

func isAdMarkerLine(line string) bool {
	for _, prefix := range hlsMarkerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	if strings.HasPrefix(line, "#EXT-X-DATERANGE") {
		lower := strings.ToLower(line)
		for _, class := range interstitialDateRangeClasses {
			if strings.Contains(lower, strings.ToLower(class)) {
				return true
			}
		}
	}
	return false
}
