package provenance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarker(t *testing.T) {
	assert.Equal(t, "PAGE_NUM=1", Marker(1))
	assert.Equal(t, "PAGE_NUM=42", Marker(42))
}

func TestWrapPage_MarkerOnBothSides(t *testing.T) {
	wrapped := WrapPage(3, "hello world")
	assert.Equal(t, "PAGE_NUM=3\nhello world\nPAGE_NUM=3", wrapped)
}

func TestJoinPages_OneBasedNumbering(t *testing.T) {
	text := JoinPages([]string{"first", "second", "third"})

	assert.Contains(t, text, "PAGE_NUM=1\nfirst\nPAGE_NUM=1")
	assert.Contains(t, text, "PAGE_NUM=2\nsecond\nPAGE_NUM=2")
	assert.Contains(t, text, "PAGE_NUM=3\nthird\nPAGE_NUM=3")
	assert.NotContains(t, text, "PAGE_NUM=0")
	assert.NotContains(t, text, "PAGE_NUM=4")
}

func TestResolve_SortedDistinct(t *testing.T) {
	text := "PAGE_NUM=7 tail PAGE_NUM=2 middle PAGE_NUM=7 head PAGE_NUM=2"
	assert.Equal(t, []int{2, 7}, Resolve(text))
}

func TestResolve_NoMarkers(t *testing.T) {
	assert.Nil(t, Resolve("plain text with no sentinels"))
	assert.Nil(t, Resolve(""))
}

func TestResolve_RoundTripThroughJoin(t *testing.T) {
	text := JoinPages([]string{"alpha", "beta", "gamma"})
	assert.Equal(t, []int{1, 2, 3}, Resolve(text))
}

func TestStrip_RemovesAllSentinels(t *testing.T) {
	text := JoinPages([]string{"alpha", "beta"})
	stripped := Strip(text)

	require.NotContains(t, stripped, "PAGE_NUM")
	assert.Contains(t, stripped, "alpha")
	assert.Contains(t, stripped, "beta")
}

func TestStrip_PlainTextUntouched(t *testing.T) {
	assert.Equal(t, "nothing to remove", Strip("nothing to remove"))
}

func TestSplitAround_MarkersAreStandaloneElements(t *testing.T) {
	parts := SplitAround("PAGE_NUM=1\nalpha\nPAGE_NUM=1")
	require.Equal(t, []string{"PAGE_NUM=1", "\nalpha\n", "PAGE_NUM=1"}, parts)
}

func TestSplitAround_PreservesEveryCharacter(t *testing.T) {
	text := JoinPages([]string{"alpha", "beta"})
	assert.Equal(t, text, strings.Join(SplitAround(text), ""))

	assert.Equal(t, []string{"no markers here"}, SplitAround("no markers here"))
}

func TestIsMarker(t *testing.T) {
	assert.True(t, IsMarker("PAGE_NUM=7"))
	assert.False(t, IsMarker("PAGE_NUM=7\n"))
	assert.False(t, IsMarker("prefix PAGE_NUM=7"))
	assert.False(t, IsMarker("plain text"))
}
