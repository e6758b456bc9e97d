package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"text": FormatText, "JSON": FormatJSON, "auto": FormatAuto, "": FormatAuto} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}

func TestNew_AutoResolvesToJSONForNonTerminal(t *testing.T) {
	// Given: a buffer, which is never a terminal
	buf := &bytes.Buffer{}

	// When: creating an auto writer
	w := New(buf, FormatAuto)

	// Then: JSON is selected
	assert.True(t, w.IsJSON())
	assert.False(t, IsTerminal(buf))
}

func TestWriter_StatusOmitsIconsOffTerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	w.Successf("inserted %d fingerprints", 3)
	w.Warningf("no matches")
	w.Errorf("failed: %s", "boom")

	assert.Equal(t, "inserted 3 fingerprints\nno matches\nfailed: boom\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatJSON)

	require.NoError(t, w.JSON(map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())
}

func TestWriter_TableAndKeyValues(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	require.NoError(t, w.Table([]string{"ID", "TITLE"}, [][]string{{"t1", "Song"}, {"track-22", "Other"}}))
	assert.Equal(t, "ID        TITLE\nt1        Song\ntrack-22  Other\n", buf.String())

	buf.Reset()
	require.NoError(t, w.KeyValues([][2]string{{"ID", "t1"}, {"Title", "Song"}}))
	assert.Equal(t, "ID:     t1\nTitle:  Song\n", buf.String())
}
