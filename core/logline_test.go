package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesFromStrings_IndexesSequentially(t *testing.T) {
	lines := LinesFromStrings([]string{"a", "b", "c"})
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.Equal(t, i, line.Index)
	}
	assert.Equal(t, "b", lines[1].Raw)
}

func TestNormalizeLines_BlanksSeparatorLines(t *testing.T) {
	raw := LinesFromStrings([]string{
		"==== Build started ====",
		"error CS1002: ; expected",
		"---",
		"  padded content  ",
	})

	lines := NormalizeLines(raw, DefaultFilterPrefixes)
	require.Len(t, lines, 4)

	assert.Equal(t, "", lines[0].Text(), "separator lines carry no matchable content")
	assert.Equal(t, "error CS1002: ; expected", lines[1].Text())
	assert.Equal(t, "", lines[2].Text())
	assert.Equal(t, "padded content", lines[3].Text(), "whitespace is trimmed")
}

func TestNormalizeLines_PreservesIndexAndRaw(t *testing.T) {
	raw := LinesFromStrings([]string{"==== header", "body"})
	lines := NormalizeLines(raw, DefaultFilterPrefixes)

	assert.Equal(t, 0, lines[0].Index)
	assert.Equal(t, "==== header", lines[0].Raw, "raw text survives normalization")
	assert.Equal(t, 1, lines[1].Index)
}

func TestLogLineText_FallsBackToRaw(t *testing.T) {
	line := LogLine{Index: 0, Raw: "unprocessed"}
	assert.Equal(t, "unprocessed", line.Text())

	line.Normalized = ""
	line.HasNormalized = true
	assert.Equal(t, "", line.Text(), "normalized empty means empty, not raw")
}
