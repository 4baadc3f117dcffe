package manifest

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adURLPattern = regexp.MustCompile(`ad-segment`)

// TestRewrite_S6_HLSAdRemoval mirrors spec scenario S6.
func TestRewrite_S6_HLSAdRemoval(t *testing.T) {
	input := "#EXTM3U\n" +
		"#EXT-X-CUE-OUT:DURATION=30\n" +
		"#EXTINF:10.0,\n" +
		"ad-segment-1.ts\n" +
		"#EXT-X-CUE-IN\n" +
		"#EXTINF:10.0,\n" +
		"content-1.ts"

	res := Rewrite(input, "application/vnd.apple.mpegurl", adURLPattern)
	require.True(t, res.Modified)
	assert.Equal(t, 3, res.SegmentsRemoved)
	assert.Contains(t, res.Content, "#EXTM3U")
	assert.Contains(t, res.Content, "#EXTINF:10.0,\ncontent-1.ts")
	assert.NotContains(t, res.Content, "ad-segment-1.ts")
	assert.NotContains(t, res.Content, "#EXT-X-CUE-OUT")
	assert.NotContains(t, res.Content, "#EXT-X-CUE-IN")
}

func TestIsHLS(t *testing.T) {
	assert.True(t, IsHLS("#EXTM3U\nfoo", ""))
	assert.True(t, IsHLS("", "application/vnd.apple.mpegurl"))
	assert.False(t, IsHLS("<MPD", "application/dash+xml"))
}

func TestIsDASH(t *testing.T) {
	assert.True(t, IsDASH(`<MPD xmlns="urn:mpeg:dash">`, ""))
	assert.True(t, IsDASH("", "application/dash+xml"))
	assert.False(t, IsDASH("#EXTM3U", ""))
}

func TestRewrite_DASHDropsAdPeriod(t *testing.T) {
	input := `<MPD><Period id="content1"><AdaptationSet contentType="video"></AdaptationSet></Period>` +
		`<Period id="ad-break-1"><AdaptationSet contentType="video"></AdaptationSet></Period></MPD>`
	res := Rewrite(input, "application/dash+xml", nil)
	require.True(t, res.Modified)
	assert.NotContains(t, res.Content, "ad-break-1")
	assert.Contains(t, res.Content, "content1")
	assert.Equal(t, 1, res.SegmentsRemoved)
}

func TestRewrite_DASHDropsAdAdaptationSetAndEventStream(t *testing.T) {
	input := `<MPD><Period id="main">` +
		`<AdaptationSet contentType="ad"><Representation/></AdaptationSet>` +
		`<AdaptationSet contentType="video"><Representation/></AdaptationSet>` +
		`<EventStream schemeIdUri="urn:ad-markers"><Event/></EventStream>` +
		`</Period></MPD>`
	res := Rewrite(input, "application/dash+xml", nil)
	require.True(t, res.Modified)
	assert.NotContains(t, res.Content, `contentType="ad"`)
	assert.NotContains(t, res.Content, "ad-markers")
	assert.Contains(t, res.Content, `contentType="video"`)
	assert.Equal(t, 2, res.SegmentsRemoved)
}

func TestRewrite_DASHDropsMatchingSegmentTag(t *testing.T) {
	input := `<MPD><Period id="main"><S t="0" d="10" media="seg-ad-1.m4s"/><S t="10" d="10" media="seg-2.m4s"/></Period></MPD>`
	res := Rewrite(input, "application/dash+xml", regexp.MustCompile(`ad`))
	require.True(t, res.Modified)
	assert.NotContains(t, res.Content, "seg-ad-1.m4s")
	assert.Contains(t, res.Content, "seg-2.m4s")
}

func TestRewrite_UnrecognizedShapeReturnsUnmodified(t *testing.T) {
	input := `{"not":"a manifest"}`
	res := Rewrite(input, "application/json", nil)
	assert.False(t, res.Modified)
	assert.Equal(t, input, res.Content)
}

func TestRewrite_NoAdContentIsUnmodified(t *testing.T) {
	input := "#EXTM3U\n#EXTINF:10.0,\ncontent-1.ts"
	res := Rewrite(input, "application/vnd.apple.mpegurl", adURLPattern)
	assert.False(t, res.Modified)
	assert.Equal(t, input, res.Content)
}
