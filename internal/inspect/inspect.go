// inspect.go — JSON response body inspector (§4.D).
// Walks known-endpoint and generic response bodies and deletes
// ad-carrying fields. Never raises to the caller: a parse failure
// returns the original body untouched, per §7's degrade-gracefully
// policy for network-interception errors.
package inspect

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// knownEndpointFields is the closed set of ad-carrying keys deleted on
// the known-endpoint path (player/next/browse/search/stats responses of
// the major video platform).
var knownEndpointFields = []string{
	"adPlacements",
	"playerAds",
	"adSlots",
	"adBreakServiceUrl",
	"playerAdParams",
	"adSafetyReason",
	"adVideoId",
	"entitlementReason",
}

// genericFields is the smaller, more permissive key set applied to
// responses that don't match a known endpoint.
var genericFields = []string{
	"advertisement",
	"sponsored",
	"promo",
	"ad_data",
	"adData",
	"tracking_pixels",
	"trackingPixels",
}

// rendererSuffixes are extra key names deleted, like the field sets above,
// wherever they appear as an object key. A key must equal an entry
// exactly: a longer key that merely ends in one (e.g. a "...Renderer"
// wrapper object) is scanned recursively, not deleted.
var rendererSuffixes = []string{"Renderer", "Ads"}

// knownEndpoints is matched against the request's URL path.
var knownEndpoints = []string{
	"/youtubei/v1/player",
	"/youtubei/v1/next",
	"/youtubei/v1/browse",
	"/youtubei/v1/search",
	"/youtubei/v1/guide",
	"/api/stats/ads",
	"/api/stats/qoe",
}

// engagementPanelArrayPath is the gjson path of the engagement-panel
// array scanned by the structural pass.
const engagementPanelArrayPath = "engagementPanels"

// merchandiseShelfArrayPath is the container scanned for shelf removal.
const merchandiseShelfArrayPath = "contents.twoColumnWatchNextResults.results.results.contents"

// Result reports what Inspect did to one body.
type Result struct {
	Modified       bool
	Body           string
	BytesRemoved   int
	FieldsStripped []string
}

// IsKnownEndpoint reports whether urlPath matches a configured
// known-endpoint prefix.
func IsKnownEndpoint(urlPath string) bool {
	for _, ep := range knownEndpoints {
		if strings.HasPrefix(urlPath, ep) {
			return true
		}
	}
	return false
}

// Inspect applies field stripping to a JSON response body. contentType
// must indicate JSON or Inspect returns the body unmodified. genericEnabled
// gates the generic-stripping fallback for non-known-endpoint bodies.
func Inspect(urlPath, contentType, body string, genericEnabled bool) Result {
	if !strings.Contains(strings.ToLower(contentType), "json") {
		return Result{Body: body}
	}
	if !gjson.Valid(body) {
		return Result{Body: body}
	}

	known := IsKnownEndpoint(urlPath)
	fields := genericFields
	if known {
		fields = knownEndpointFields
	} else if !genericEnabled {
		return Result{Body: body}
	}

	out := body
	var stripped []string
	out, stripped = deleteFields(out, fields, stripped)

	if known {
		out, stripped = filterEngagementPanels(out, stripped)
		out, stripped = removeMerchandiseShelves(out, stripped)
	}

	if len(stripped) == 0 {
		return Result{Body: body}
	}
	return Result{
		Modified:       true,
		Body:           out,
		BytesRemoved:   len(body) - len(out),
		FieldsStripped: stripped,
	}
}

// deleteFields recursively removes any object key in fields, anywhere in
// the document, returning the rewritten body and the list of dotted
// paths actually deleted.
func deleteFields(body string, fields []string, stripped []string) (string, []string) {
	out := body
	root := gjson.Parse(out)
	paths := collectMatchingPaths(root, "", fields)
	for _, p := range paths {
		next, err := sjson.Delete(out, p)
		if err != nil {
			continue
		}
		out = next
		stripped = append(stripped, p)
	}
	return out, stripped
}

// collectMatchingPaths walks value depth-first, returning the gjson
// paths of every object key found in fields. A matched key's subtree is
// not descended into, and only object keys (never array elements) are
// collected, so one sjson.Delete never shifts an index another path uses.
func collectMatchingPaths(value gjson.Result, prefix string, fields []string) []string {
	var paths []string
	if !value.IsObject() && !value.IsArray() {
		return paths
	}

	value.ForEach(func(key, val gjson.Result) bool {
		childPath := key.String()
		if prefix != "" {
			if value.IsArray() {
				childPath = prefix + "." + key.String()
			} else {
				childPath = prefix + "." + escapePath(key.String())
			}
		} else if value.IsArray() {
			childPath = key.String()
		}

		if value.IsObject() && isMatchingField(key.String(), fields) {
			paths = append(paths, childPath)
			return true // don't also recurse into a field we're about to delete
		}
		paths = append(paths, collectMatchingPaths(val, childPath, fields)...)
		return true
	})

	// Reverse so this level's later paths are deleted before earlier ones.
	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
	return paths
}

func isMatchingField(key string, fields []string) bool {
	for _, f := range fields {
		if key == f {
			return true
		}
	}
	for _, suffix := range rendererSuffixes {
		if key == suffix {
			return true
		}
	}
	return false
}

func escapePath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}

// filterEngagementPanels drops engagement-panel array entries whose
// panel identifier contains "ads" or "promo".
func filterEngagementPanels(body string, stripped []string) (string, []string) {
	arr := gjson.Get(body, engagementPanelArrayPath)
	if !arr.Exists() || !arr.IsArray() {
		return body, stripped
	}

	var kept []gjson.Result
	removed := false
	arr.ForEach(func(_, item gjson.Result) bool {
		id := firstNonEmpty(
			item.Get("panelIdentifier").String(),
			item.Get("engagementPanelSectionListRenderer.panelIdentifier").String(),
		)
		lower := strings.ToLower(id)
		if strings.Contains(lower, "ads") || strings.Contains(lower, "promo") {
			removed = true
			return true
		}
		kept = append(kept, item)
		return true
	})
	if !removed {
		return body, stripped
	}

	out, err := sjson.Set(body, engagementPanelArrayPath, rawResults(kept))
	if err != nil {
		return body, stripped
	}
	return out, append(stripped, engagementPanelArrayPath)
}

// removeMerchandiseShelves drops shelf entries identified as a
// merchandise or ticket shelf from the main results container.
func removeMerchandiseShelves(body string, stripped []string) (string, []string) {
	arr := gjson.Get(body, merchandiseShelfArrayPath)
	if !arr.Exists() || !arr.IsArray() {
		return body, stripped
	}

	var kept []gjson.Result
	removed := false
	arr.ForEach(func(_, item gjson.Result) bool {
		if isMerchandiseShelf(item) {
			removed = true
			return true
		}
		kept = append(kept, item)
		return true
	})
	if !removed {
		return body, stripped
	}

	out, err := sjson.Set(body, merchandiseShelfArrayPath, rawResults(kept))
	if err != nil {
		return body, stripped
	}
	return out, append(stripped, merchandiseShelfArrayPath)
}

func isMerchandiseShelf(item gjson.Result) bool {
	for _, key := range []string{
		"merchandiseShelfRenderer",
		"ticketShelfRenderer",
		"offerShelfRenderer",
	} {
		if item.Get(key).Exists() {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// rawResults converts a kept-items slice back to a []any of parsed
// values so sjson.Set re-serializes it as a JSON array.
func rawResults(items []gjson.Result) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.Value())
	}
	return out
}
