package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/grovetools/treenote/pkg/archive"
	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/xmlstore"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// DetectDocType returns the backend and encryption of the file at path. The
// extension decides when it is a known one; other files are sniffed. An
// archive with an unknown extension reports DocTypeUnknown until unpacked.
func DetectDocType(fsys afero.Fs, path string) (models.DocType, bool, error) {
	if d, enc := models.DocTypeFromPath(path); d != models.DocTypeUnknown {
		return d, enc, nil
	}
	head, err := readHead(fsys, path, 512)
	if err != nil {
		return models.DocTypeUnknown, false, err
	}
	if bytes.HasPrefix(head, archive.SealedMagic) || bytes.HasPrefix(head, archive.SevenZipMagic) {
		return models.DocTypeUnknown, true, nil
	}
	if d := sniff(head); d != models.DocTypeUnknown {
		return d, false, nil
	}
	return models.DocTypeUnknown, false, fmt.Errorf("%s: %w", path, ErrUnknownDocType)
}

func readHead(fsys afero.Fs, path string, n int) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}

func sniff(head []byte) models.DocType {
	if bytes.HasPrefix(head, sqliteHeader) {
		return models.DocTypeSQLite
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")), " \t\r\n")
	for _, prefix := range []string{"<?xml", "<" + xmlstore.RootElement, "<" + xmlstore.LegacyRootElement} {
		if bytes.HasPrefix(trimmed, []byte(prefix)) {
			return models.DocTypeXML
		}
	}
	return models.DocTypeUnknown
}
