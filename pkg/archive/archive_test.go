package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastSealed() *Sealed {
	return &Sealed{LogN: 4}
}

func TestSealedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "doc.ctd")
	payload := []byte("<treenote><node name=\"a\" unique_id=\"1\"/></treenote>\n")
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	packed := filepath.Join(dir, "doc.ctz")
	s := fastSealed()
	require.NoError(t, s.Archive(context.Background(), src, packed, "secret"))

	ok, err := IsArchive(packed)
	require.NoError(t, err)
	assert.True(t, ok)

	out := filepath.Join(dir, "out")
	require.NoError(t, s.Extract(context.Background(), packed, out, "secret"))
	got, err := os.ReadFile(filepath.Join(out, "doc.ctd"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSealedWrongPassword(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "doc.ctb")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))
	packed := filepath.Join(dir, "doc.ctx")
	s := fastSealed()
	require.NoError(t, s.Archive(context.Background(), src, packed, "right"))

	err := s.Extract(context.Background(), packed, filepath.Join(dir, "out"), "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, statErr := os.Stat(filepath.Join(dir, "out", "doc.ctb"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSealedDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "doc.ctb")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))
	packed := filepath.Join(dir, "doc.ctx")
	s := fastSealed()
	require.NoError(t, s.Archive(context.Background(), src, packed, "pw"))

	data, err := os.ReadFile(packed)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(packed, data, 0o644))

	assert.ErrorIs(t, s.Extract(context.Background(), packed, dir, "pw"), ErrWrongPassword)
}

func TestSealedRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.ctx")
	require.NoError(t, os.WriteFile(path, []byte("SQLite format 3\x00"), 0o644))
	err := fastSealed().Extract(context.Background(), path, t.TempDir(), "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWrongPassword)

	ok, err := IsArchive(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	a, err := New("", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &Sealed{}, a)

	a, err = New(ToolSevenZip, "/opt/7za", nil)
	require.NoError(t, err)
	assert.Equal(t, "/opt/7za", a.(*SevenZip).Binary)

	_, err = New("rar", "", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestSevenZipArgs(t *testing.T) {
	args := archiveArgs("/tmp/w/doc.ctb", "/home/u/doc.ctx", "pw")
	assert.Equal(t, "a", args[0])
	assert.Equal(t, "-ppw", args[1])
	assert.Equal(t, "-w/home/u", args[2])
	assert.Equal(t, []string{"--", "/home/u/doc.ctx", "/tmp/w/doc.ctb"}, args[len(args)-3:])

	ex := extractArgs("/home/u/doc.ctx", "/tmp/w", "pw")
	assert.Equal(t, "e", ex[0])
	assert.Contains(t, ex, "-o/tmp/w")
	assert.Equal(t, "/home/u/doc.ctx", ex[len(ex)-1])
}

func TestSevenZipMissingBinary(t *testing.T) {
	z := NewSevenZip(filepath.Join(t.TempDir(), "no-such-7za"), nil)
	err := z.Extract(context.Background(), "x.ctz", t.TempDir(), "pw")
	assert.Error(t, err)
}
