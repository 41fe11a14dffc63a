package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_codec.go -package=mocks github.com/grovetools/treenote/pkg/service Codec

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/pending"
	"github.com/grovetools/treenote/pkg/sqlitestore"
	"github.com/grovetools/treenote/pkg/tree"
	"github.com/grovetools/treenote/pkg/xmlstore"
)

// Codec reads and writes one document file.
type Codec interface {
	// Populate attaches every node of the file at path to t.
	Populate(ctx context.Context, path string, t *tree.Tree) error
	// Save writes snap to path. A nil batch asks for a full write.
	Save(ctx context.Context, path string, snap *tree.Snapshot, batch *pending.Batch) error
	DelayedContent(id models.NodeID, syntax string) (*models.Content, error)
	// Close and Reopen release and take back the file without losing state.
	Close() error
	Reopen() error
	// TestConnection checks the file is still writable, reopening it if needed.
	TestConnection(ctx context.Context) error
	Vacuum(ctx context.Context) error
	IntegrityIssues() []string
}

// CodecFactory builds the codec for a document type.
type CodecFactory func(d models.DocType, logger *logrus.Entry) (Codec, error)

// DefaultCodecs maps relational files to sqlitestore and markup files to
// xmlstore.
func DefaultCodecs(d models.DocType, logger *logrus.Entry) (Codec, error) {
	switch d {
	case models.DocTypeSQLite:
		return sqlitestore.New(logger), nil
	case models.DocTypeXML:
		return xmlstore.New(logger), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDocType, d)
}
