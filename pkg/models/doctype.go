package models

import (
	"path/filepath"
	"strings"
)

// DocType is the on-disk representation of a document.
type DocType int

const (
	DocTypeUnknown DocType = iota
	DocTypeSQLite
	DocTypeXML
)

// Extensions map each backend and encryption pair to a file suffix.
const (
	ExtXML             = ".ctd"
	ExtXMLEncrypted    = ".ctz"
	ExtSQLite          = ".ctb"
	ExtSQLiteEncrypted = ".ctx"
)

func (d DocType) String() string {
	switch d {
	case DocTypeSQLite:
		return "sqlite"
	case DocTypeXML:
		return "xml"
	}
	return "unknown"
}

// DocTypeFromPath infers the backend and encryption from the file extension.
func DocTypeFromPath(path string) (DocType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtXML:
		return DocTypeXML, false
	case ExtXMLEncrypted:
		return DocTypeXML, true
	case ExtSQLite:
		return DocTypeSQLite, false
	case ExtSQLiteEncrypted:
		return DocTypeSQLite, true
	}
	return DocTypeUnknown, false
}

// WorkingExtension is the suffix of the unpacked file a codec operates on.
func WorkingExtension(d DocType) string {
	if d == DocTypeSQLite {
		return ExtSQLite
	}
	return ExtXML
}
