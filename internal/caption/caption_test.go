package caption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON3_EventsShape(t *testing.T) {
	body := `{"events":[
		{"tStartMs":0,"dDurationMs":1500,"segs":[{"utf8":"Hello"}]},
		{"tStartMs":1500,"dDurationMs":2000,"segs":[{"utf8":"world"}]}
	]}`
	segs, ok := ParseJSON3(body)
	require.True(t, ok)
	require.Len(t, segs, 2)
	assert.Equal(t, "Hello", segs[0].Text)
	assert.InDelta(t, 0, segs[0].StartS, 0.001)
	assert.InDelta(t, 1.5, segs[0].EndS, 0.001)
	assert.Equal(t, "world", segs[1].Text)
}

func TestParseJSON3_SkipsCarriageOnlyEvents(t *testing.T) {
	body := `{"events":[{"tStartMs":0,"dDurationMs":500},{"tStartMs":500,"dDurationMs":500,"segs":[{"utf8":"hi"}]}]}`
	segs, ok := ParseJSON3(body)
	require.True(t, ok)
	require.Len(t, segs, 1)
	assert.Equal(t, "hi", segs[0].Text)
}

func TestParseJSON3_SegmentsShapeFallback(t *testing.T) {
	body := `{"segments":[{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"a"}]}]}`
	segs, ok := ParseJSON3(body)
	require.True(t, ok)
	require.Len(t, segs, 1)
	assert.Equal(t, "a", segs[0].Text)
}

func TestParseJSON3_MalformedBodyFails(t *testing.T) {
	segs, ok := ParseJSON3(`not json at all`)
	assert.False(t, ok)
	assert.Nil(t, segs)
}

func TestParseJSON3_EmptyEventsFails(t *testing.T) {
	segs, ok := ParseJSON3(`{"events":[]}`)
	assert.False(t, ok)
	assert.Nil(t, segs)
}

func TestParseWebVTT_Basic(t *testing.T) {
	body := "WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nHello there\n\n00:00:03.500 --> 00:00:05.000\nSecond line\ncontinued\n"
	segs, ok := ParseWebVTT(body)
	require.True(t, ok)
	require.Len(t, segs, 2)
	assert.Equal(t, "Hello there", segs[0].Text)
	assert.InDelta(t, 1.0, segs[0].StartS, 0.001)
	assert.InDelta(t, 3.0, segs[0].EndS, 0.001)
	assert.Equal(t, "Second line continued", segs[1].Text)
}

func TestParseWebVTT_WithCueIdentifiersAndSettings(t *testing.T) {
	body := "WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000 align:start line:0\nHi\n"
	segs, ok := ParseWebVTT(body)
	require.True(t, ok)
	require.Len(t, segs, 1)
	assert.Equal(t, "Hi", segs[0].Text)
}

func TestParseWebVTT_HourComponent(t *testing.T) {
	body := "WEBVTT\n\n01:00:00.000 --> 01:00:02.000\nLate line\n"
	segs, ok := ParseWebVTT(body)
	require.True(t, ok)
	require.Len(t, segs, 1)
	assert.InDelta(t, 3600, segs[0].StartS, 0.001)
}

func TestParseWebVTT_NoCuesFails(t *testing.T) {
	segs, ok := ParseWebVTT("WEBVTT\n\nNOTE this file has no cues\n")
	assert.False(t, ok)
	assert.Nil(t, segs)
}
