package service

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readString(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestRotateBackups(t *testing.T) {
	tests := []struct {
		name  string
		count int
		saves []string
		want  map[string]string
		gone  []string
	}{
		{
			name:  "three backups drop the oldest on the fourth save",
			count: 3,
			saves: []string{"v1", "v2", "v3", "v4"},
			want:  map[string]string{"/d/doc.ctd~": "v4", "/d/doc.ctd~~": "v3", "/d/doc.ctd~~~": "v2"},
			gone:  []string{"/d/doc.ctd~~~~", "/d/doc.ctd!"},
		},
		{
			name:  "single backup is overwritten",
			count: 1,
			saves: []string{"v1", "v2"},
			want:  map[string]string{"/d/doc.ctd~": "v2"},
			gone:  []string{"/d/doc.ctd~~"},
		},
		{
			name:  "partial chain",
			count: 3,
			saves: []string{"v1", "v2"},
			want:  map[string]string{"/d/doc.ctd~": "v2", "/d/doc.ctd~~": "v1"},
			gone:  []string{"/d/doc.ctd~~~"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll("/d", 0o755))
			for _, content := range tt.saves {
				require.NoError(t, afero.WriteFile(fs, "/d/doc.ctd!", []byte(content), 0o644))
				require.NoError(t, rotateBackups(fs, "/d/doc.ctd!", "/d/doc.ctd~", tt.count))
			}
			for path, content := range tt.want {
				assert.Equal(t, content, readString(t, fs, path), path)
			}
			for _, path := range tt.gone {
				exists, err := afero.Exists(fs, path)
				require.NoError(t, err)
				assert.False(t, exists, path)
			}
		})
	}
}

func TestBackupBaseCustomDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(Options{Fs: fs, BackupDir: "/backups", BackupEnabled: true, BackupCount: 2})
	c.path = "/home/u/notes/doc.ctb"

	got := c.backupBase()
	assert.Equal(t, filepath.Join("/backups", "_home_u_notes_doc.ctb", "doc.ctb~"), got)
	isDir, err := afero.IsDir(fs, filepath.Dir(got))
	require.NoError(t, err)
	assert.True(t, isDir)

	c.opts.BackupDir = ""
	assert.Equal(t, "/home/u/notes/doc.ctb~", c.backupBase())
}

func TestMoveFileOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a", []byte("new"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/b", []byte("old"), 0o644))
	require.NoError(t, moveFile(fs, "/a", "/b"))
	assert.Equal(t, "new", readString(t, fs, "/b"))
	exists, _ := afero.Exists(fs, "/a")
	assert.False(t, exists)
}
