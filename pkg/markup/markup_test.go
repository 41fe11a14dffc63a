package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/treenote/pkg/models"
)

func TestRunsRoundTrip(t *testing.T) {
	runs := []models.Run{
		{Text: "Title\n", Attrs: map[string]string{"scale": "h1", "weight": "heavy"}},
		{Text: "a < b & \"c\"\r\n\ttabbed"},
		{Text: "link", Attrs: map[string]string{"link": "node 3"}},
	}

	s, err := EncodeRuns(runs)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "<?xml"))
	assert.Contains(t, s, `<rich_text scale="h1" weight="heavy">`)

	got, err := DecodeRuns(s)
	require.NoError(t, err)
	assert.Equal(t, runs, got)
}

func TestDecodeRunsEmpty(t *testing.T) {
	got, err := DecodeRuns("")
	require.NoError(t, err)
	assert.Nil(t, got)

	s, err := EncodeRuns(nil)
	require.NoError(t, err)
	got, err = DecodeRuns(s)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTableHeaderStoredLast(t *testing.T) {
	matrix := [][]string{{"name", "qty"}, {"apple", "3"}, {"pear", ""}}
	rows := TableRows(matrix)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "qty"}, rows[2].Cells)
	assert.Equal(t, matrix, TableMatrix(rows))
}

func TestTableRoundTrip(t *testing.T) {
	in := &models.Table{
		Rows:      [][]string{{"h1", "h2"}, {"x", "y"}},
		ColWidths: []int{40, 120},
		IsLight:   true,
	}
	s, err := EncodeTable(in)
	require.NoError(t, err)

	out := &models.Table{}
	require.NoError(t, DecodeTable(s, out))
	assert.Equal(t, in.Rows, out.Rows)
	assert.Equal(t, in.ColWidths, out.ColWidths)
	assert.True(t, out.IsLight)
}

func TestSanitize(t *testing.T) {
	dirty := []byte("<a>ok\x01\x0b text\xff</a>")
	clean := Sanitize(dirty)
	assert.Equal(t, "<a>ok text�</a>", string(clean))
}

func TestDecodeRunsSanitizes(t *testing.T) {
	got, err := DecodeRuns("<node><rich_text>bad\x02byte</rich_text></node>")
	require.NoError(t, err)
	assert.Equal(t, []models.Run{{Text: "badbyte"}}, got)
}

func TestInts(t *testing.T) {
	v, err := SplitInts("1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)
	assert.Equal(t, "1,2,3", JoinInts(v))

	_, err = SplitInts("a")
	assert.Error(t, err)
	assert.True(t, ParseBool("True"))
	assert.False(t, ParseBool(""))
}
