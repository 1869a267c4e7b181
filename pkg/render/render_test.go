package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Table {
	t := &Table{Header: []string{"Package", "Version", "Explain"}}
	t.Add("numpy", "1.24.0", "satisfied")
	t.Add("six", "1.16.0", "missing")

	return t
}

func TestWriteTab(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().WriteTab(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Package"))
	assert.Contains(t, lines[1], "numpy")
}

func TestWriteDelimited(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().WriteDelimited(&buf, "|"))

	assert.Equal(t,
		"Package|Version|Explain\nnumpy|1.24.0|satisfied\nsix|1.16.0|missing\n",
		buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().WriteJSON(&buf))

	out := buf.String()

	// every record line terminated
	assert.True(t, strings.HasSuffix(out, "\n"))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	var rec map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))

	assert.Equal(t, "numpy", rec["package"])
	assert.Equal(t, "satisfied", rec["explain"])
}
