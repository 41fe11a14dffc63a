package service

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/treenote/pkg/archive"
	"github.com/grovetools/treenote/pkg/models"
)

func TestDetectDocType(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/x/db.bin":      "SQLite format 3\x00rest",
		"/x/page.xml":    "\xef\xbb\xbf\n  <?xml version=\"1.0\"?><treenote/>",
		"/x/legacy.txt":  "<cherrytree></cherrytree>",
		"/x/sealed.bin":  string(archive.SealedMagic) + "payload",
		"/x/7z.bin":      string(archive.SevenZipMagic) + "payload",
		"/x/garbage.bin": "hello",
		"/x/empty.bin":   "",
	}
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
	}

	tests := []struct {
		path    string
		want    models.DocType
		enc     bool
		wantErr bool
	}{
		{path: "/x/any.ctb", want: models.DocTypeSQLite},
		{path: "/x/any.ctx", want: models.DocTypeSQLite, enc: true},
		{path: "/x/any.CTD", want: models.DocTypeXML},
		{path: "/x/any.ctz", want: models.DocTypeXML, enc: true},
		{path: "/x/db.bin", want: models.DocTypeSQLite},
		{path: "/x/page.xml", want: models.DocTypeXML},
		{path: "/x/legacy.txt", want: models.DocTypeXML},
		{path: "/x/sealed.bin", want: models.DocTypeUnknown, enc: true},
		{path: "/x/7z.bin", want: models.DocTypeUnknown, enc: true},
		{path: "/x/garbage.bin", wantErr: true},
		{path: "/x/empty.bin", wantErr: true},
		{path: "/x/missing.bin", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, enc, err := DetectDocType(fs, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.enc, enc)
		})
	}
}
