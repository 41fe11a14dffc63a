// Package xmlstore persists a document tree as one XML file with nested
// node elements. Every save rewrites the whole file; node content is parsed
// lazily on first access.
package xmlstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/grovetools/treenote/pkg/markup"
	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/pending"
	"github.com/grovetools/treenote/pkg/tree"
)

// ErrWrongRoot is returned for well-formed XML that is not a document.
var ErrWrongRoot = errors.New("unexpected root element")

// DefaultRetryDelay is the wait before retrying an unwritable file.
const DefaultRetryDelay = 500 * time.Millisecond

type Store struct {
	mu         sync.Mutex
	path       string
	cache      map[models.NodeID][]xmlSlot
	retryDelay time.Duration
	logger     *logrus.Entry
}

func New(logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Store{
		cache:      make(map[models.NodeID][]xmlSlot),
		retryDelay: DefaultRetryDelay,
		logger:     logger.WithField("component", "xmlstore"),
	}
}

func (s *Store) SetRetryDelay(d time.Duration) { s.retryDelay = d }

func (s *Store) Path() string { return s.path }

func decode(data []byte) (*xmlDoc, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Populate parses path and attaches every node to t. A document that fails to
// parse is sanitized and parsed once more before giving up.
func (s *Store) Populate(ctx context.Context, path string, t *tree.Tree) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, fs.ErrInvalid)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := decode(data)
	if err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("Parse failed, retrying on sanitized input")
		doc, err = decode(markup.Sanitize(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if root := doc.XMLName.Local; root != RootElement && root != LegacyRootElement {
		return fmt.Errorf("%s: %w %q", path, ErrWrongRoot, root)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.cache = make(map[models.NodeID][]xmlSlot)

	var highest int64
	var scan func(nodes []xmlNode)
	scan = func(nodes []xmlNode) {
		for _, n := range nodes {
			if n.ID > highest {
				highest = n.ID
			}
			scan(n.Children)
		}
	}
	scan(doc.Nodes)

	var attach func(parent models.NodeID, nodes []xmlNode) error
	attach = func(parent models.NodeID, nodes []xmlNode) error {
		for _, n := range nodes {
			id := models.NodeID(n.ID)
			if _, dup := t.Get(id); dup || id <= 0 {
				highest++
				s.logger.WithFields(logrus.Fields{"node_id": n.ID, "new_id": highest}).
					Warn("Node id already in use, assigning a new one")
				id = models.NodeID(highest)
				t.Ledger().AddNode(id)
			}
			rec := models.NodeRecord{ID: id, ParentID: parent, NodeProperties: nodeProps(n)}
			if _, err := t.AttachLoaded(rec); err != nil {
				return err
			}
			s.cache[id] = n.Slots
			if err := attach(id, n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := attach(0, doc.Nodes); err != nil {
		return err
	}

	if doc.Bookmarks != nil {
		var ids []models.NodeID
		for _, f := range strings.Split(doc.Bookmarks.List, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64); err == nil {
				ids = append(ids, models.NodeID(id))
			}
		}
		t.LoadBookmarks(ids)
	}
	t.SetLoader(s)
	return nil
}

// DelayedContent converts the cached slots of a node and drops them from
// the cache.
func (s *Store) DelayedContent(id models.NodeID, syntax string) (*models.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots, ok := s.cache[id]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, tree.ErrNodeNotFound)
	}
	c, err := slotsToContent(slots, syntax)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}
	delete(s.cache, id)
	return c, nil
}

// Save writes the whole snapshot to path, whatever the batch says. Records
// without content are filled from the cache of the last load.
func (s *Store) Save(ctx context.Context, path string, snap *tree.Snapshot, _ *pending.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents := make([]*models.Content, len(snap.Records))
	for i, rec := range snap.Records {
		c := rec.Content
		if c == nil {
			slots, ok := s.cache[rec.ID]
			if !ok {
				return fmt.Errorf("save node %d: content not loaded", rec.ID)
			}
			var err error
			if c, err = slotsToContent(slots, rec.Syntax); err != nil {
				return fmt.Errorf("save node %d: %w", rec.ID, err)
			}
		}
		contents[i] = c
	}

	encoded, err := encodeBinaries(ctx, contents)
	if err != nil {
		return err
	}

	doc := xmlDoc{
		XMLName:   xml.Name{Local: RootElement},
		Bookmarks: &xmlBookmarks{List: joinIDs(snap.Bookmarks)},
	}
	children := snap.Children()
	var build func(parent models.NodeID) []xmlNode
	build = func(parent models.NodeID) []xmlNode {
		idxs := children[parent]
		if len(idxs) == 0 {
			return nil
		}
		out := make([]xmlNode, 0, len(idxs))
		for _, i := range idxs {
			rec := snap.Records[i]
			el := nodeElement(rec)
			el.Slots = contentSlots(contents[i], rec.Syntax, encoded)
			el.Children = build(rec.ID)
			out = append(out, el)
		}
		return out
	}
	doc.Nodes = build(0)

	if err := writeAtomic(path, &doc); err != nil {
		return err
	}
	s.path = path
	return nil
}

// encodeBinaries base64-encodes image and file payloads in parallel.
func encodeBinaries(ctx context.Context, contents []*models.Content) (map[models.AnchoredObject]string, error) {
	var objs []models.AnchoredObject
	for _, c := range contents {
		for _, o := range c.Objects {
			switch o.(type) {
			case *models.Image, *models.EmbeddedFile:
				objs = append(objs, o)
			}
		}
	}
	results := make([]string, len(objs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, o := range objs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch obj := o.(type) {
			case *models.Image:
				results[i] = base64.StdEncoding.EncodeToString(obj.PNG)
			case *models.EmbeddedFile:
				results[i] = base64.StdEncoding.EncodeToString(obj.Data)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[models.AnchoredObject]string, len(objs))
	for i, o := range objs {
		out[o] = results[i]
	}
	return out, nil
}

func writeAtomic(path string, doc *xmlDoc) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	w.WriteString(xml.Header)
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("encode document: %w", err)
	}
	w.WriteString("\n")
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func joinIDs(ids []models.NodeID) string {
	var buf bytes.Buffer
	for i, id := range ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.FormatInt(int64(id), 10))
	}
	return buf.String()
}

// Close is a no-op: the file is only open while it is read or written.
func (s *Store) Close() error { return nil }

// Reopen checks that the file is still there.
func (s *Store) Reopen() error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("reopen %s: %w", s.path, err)
	}
	return nil
}

// TestConnection verifies the file can be opened for writing, waiting once
// before giving up.
func (s *Store) TestConnection(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	if probeWrite(s.path) == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.retryDelay):
	}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s write failed - file is missing", s.path)
	}
	if err := probeWrite(s.path); err != nil {
		return fmt.Errorf("%s write failed - is file blocked by a sync program?: %w", s.path, err)
	}
	return nil
}

func probeWrite(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

// Vacuum has nothing to reclaim in a file rewritten on every save.
func (s *Store) Vacuum(context.Context) error { return nil }

// IntegrityIssues is always empty: a document that parses is consistent.
func (s *Store) IntegrityIssues() []string { return nil }
