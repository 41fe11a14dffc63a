// Package service opens, saves and protects documents on disk. A Control owns
// one open document: its tree, its codec and the files backing it.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/pending"
	"github.com/grovetools/treenote/pkg/tree"
)

type Control struct {
	opts   Options
	fs     afero.Fs
	logger *logrus.Entry
	tree   *tree.Tree
	codec  Codec

	path      string
	workPath  string
	tmpDir    string
	password  string
	docType   models.DocType
	encrypted bool
	issues    []string

	// skipBackup is set by SaveAs: a fresh file has nothing to protect.
	skipBackup bool
	saving     atomic.Bool

	mu      sync.Mutex
	modTime time.Time
}

// New returns a Control holding an empty, unsaved document.
func New(opts Options) *Control {
	opts = opts.withDefaults()
	return &Control{
		opts:   opts,
		fs:     opts.Fs,
		logger: opts.Logger.WithField("component", "storage"),
		tree:   tree.New(nil),
	}
}

func (c *Control) Tree() *tree.Tree { return c.tree }

// Path is the document file, empty until the first SaveAs.
func (c *Control) Path() string { return c.path }

func (c *Control) DocType() models.DocType { return c.docType }

func (c *Control) Encrypted() bool { return c.encrypted }

// IntegrityIssues lists the problems found when the document was loaded.
func (c *Control) IntegrityIssues() []string { return c.issues }

// Load opens the document at path. Encrypted documents are unpacked into a
// private temporary directory first; when password is empty or wrong the
// configured prompter is asked until extraction succeeds or it cancels.
func Load(ctx context.Context, path, password string, opts Options) (*Control, error) {
	c := New(opts)
	if err := c.load(ctx, path, password); err != nil {
		c.logger.WithError(err).WithField("path", path).Error("Failed to load document")
		return nil, err
	}
	return c, nil
}

func (c *Control) load(ctx context.Context, path, password string) (err error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("load %s: %w", path, ErrNotRegularFile)
	}
	docType, encrypted, err := DetectDocType(c.fs, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	workPath := path
	var tmpDir string
	defer func() {
		if err != nil && tmpDir != "" {
			if rmErr := c.fs.RemoveAll(tmpDir); rmErr != nil {
				c.logger.WithError(rmErr).WithField("dir", tmpDir).Warn("Failed to remove working directory")
			}
		}
	}()
	if encrypted {
		if tmpDir, err = c.makeTempDir(); err != nil {
			return err
		}
		if password, err = c.extract(ctx, path, tmpDir, password); err != nil {
			return err
		}
		if workPath, docType, err = c.findExtracted(path, tmpDir, docType); err != nil {
			return err
		}
	}

	codec, err := c.opts.Codecs(docType, c.opts.Logger)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := codec.Populate(ctx, workPath, c.tree); err != nil {
		codec.Close()
		if workPath != path {
			c.fs.Remove(workPath)
		}
		return fmt.Errorf("load %s: %w", path, err)
	}

	c.codec = codec
	c.path = path
	c.workPath = workPath
	c.tmpDir = tmpDir
	c.password = password
	c.docType = docType
	c.encrypted = encrypted
	c.issues = codec.IntegrityIssues()
	for _, issue := range c.issues {
		c.logger.WithField("path", path).Warnf("Integrity check: %s", issue)
	}
	c.setModTime(info.ModTime())
	return nil
}

func (c *Control) makeTempDir() (string, error) {
	dir := filepath.Join(c.opts.TempDir, "treenote-"+uuid.NewString())
	if err := c.fs.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}
	return dir, nil
}

// extract unpacks archive into dir and returns the password that worked.
func (c *Control) extract(ctx context.Context, archivePath, dir, password string) (string, error) {
	retry := false
	for {
		if password == "" {
			if c.opts.Prompter == nil {
				return "", fmt.Errorf("load %s: %w", archivePath, ErrPasswordRequired)
			}
			pw, err := c.opts.Prompter.Password(ctx, archivePath, retry)
			if err != nil {
				return "", fmt.Errorf("load %s: %w", archivePath, err)
			}
			password = pw
		}
		err := c.opts.Archiver.Extract(ctx, archivePath, dir, password)
		if err == nil {
			return password, nil
		}
		if c.opts.Prompter == nil || ctx.Err() != nil {
			return "", fmt.Errorf("load %s: %w", archivePath, err)
		}
		c.logger.WithError(err).WithField("path", archivePath).Debug("Extraction failed, asking again")
		password = ""
		retry = true
	}
}

// findExtracted locates the unpacked working file. An archive holding a
// single file under another name is accepted when the type matches.
func (c *Control) findExtracted(archivePath, dir string, docType models.DocType) (string, models.DocType, error) {
	if docType != models.DocTypeUnknown {
		want := workingPath(dir, archivePath, docType)
		if isRegular(c.fs, want) {
			return want, docType, nil
		}
	}
	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return "", docType, fmt.Errorf("read working directory: %w", err)
	}
	if len(entries) != 1 || !entries[0].Mode().IsRegular() {
		return "", docType, fmt.Errorf("load %s: archive holds %d files, want 1", archivePath, len(entries))
	}
	found := filepath.Join(dir, entries[0].Name())
	got, _, err := DetectDocType(c.fs, found)
	if err != nil || (docType != models.DocTypeUnknown && got != docType) {
		return "", docType, fmt.Errorf("load %s: unexpected archive content %s", archivePath, entries[0].Name())
	}
	want := workingPath(dir, archivePath, got)
	if err := c.fs.Rename(found, want); err != nil {
		return "", docType, fmt.Errorf("rename extracted file: %w", err)
	}
	c.logger.WithFields(logrus.Fields{"from": entries[0].Name(), "to": filepath.Base(want)}).Debug("Renamed extracted document")
	return want, got, nil
}

func workingPath(dir, path string, d models.DocType) string {
	base := filepath.Base(path)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+models.WorkingExtension(d))
}

// SaveAs writes the whole document to path, which becomes the document's
// file. The extension picks the backend and whether password is used.
func (c *Control) SaveAs(ctx context.Context, path, password string) (err error) {
	if !c.saving.CompareAndSwap(false, true) {
		return ErrSaveInProgress
	}
	defer c.saving.Store(false)

	docType, encrypted := models.DocTypeFromPath(path)
	if docType == models.DocTypeUnknown {
		return fmt.Errorf("save as %s: %w", path, ErrUnknownDocType)
	}
	if encrypted && password == "" {
		return fmt.Errorf("save as %s: %w", path, ErrPasswordRequired)
	}

	// materializes every node, so the old codec is no longer needed after
	snap, err := c.tree.Freeze(nil)
	if err != nil {
		return fmt.Errorf("save as %s: %w", path, err)
	}

	codec, err := c.opts.Codecs(docType, c.opts.Logger)
	if err != nil {
		return fmt.Errorf("save as %s: %w", path, err)
	}
	if c.codec != nil {
		if cerr := c.codec.Close(); cerr != nil {
			c.logger.WithError(cerr).Warn("Failed to close previous store")
		}
	}

	workPath := path
	var tmpDir string
	started := false
	defer func() {
		if err == nil {
			return
		}
		codec.Close()
		if started {
			c.fs.Remove(path)
			c.fs.Remove(workPath)
		}
		if tmpDir != "" {
			c.fs.RemoveAll(tmpDir)
		}
		if c.codec != nil {
			if rerr := c.codec.Reopen(); rerr != nil {
				c.logger.WithError(rerr).Warn("Failed to reopen previous store")
			}
		}
		c.logger.WithError(err).WithField("path", path).Error("Save as failed")
	}()

	if encrypted {
		if tmpDir, err = c.makeTempDir(); err != nil {
			return err
		}
		workPath = workingPath(tmpDir, path, docType)
	}
	started = true
	for _, p := range []string{path, workPath} {
		if rmErr := c.fs.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("save as %s: %w", path, rmErr)
		}
	}
	if err = codec.Save(ctx, workPath, snap, nil); err != nil {
		return fmt.Errorf("save as %s: %w", path, err)
	}
	if encrypted {
		if err = c.pack(ctx, codec, workPath, path, password); err != nil {
			return fmt.Errorf("save as %s: %w", path, err)
		}
	}

	if c.tmpDir != "" && c.tmpDir != tmpDir {
		c.fs.RemoveAll(c.tmpDir)
	}
	c.codec = codec
	c.path = path
	c.workPath = workPath
	c.tmpDir = tmpDir
	c.password = password
	c.docType = docType
	c.encrypted = encrypted
	c.issues = nil
	c.skipBackup = true
	c.tree.SetLoader(codec)
	c.tree.Ledger().Clear()
	c.touchModTime()
	return nil
}

// pack archives the working file while the codec lets go of it.
func (c *Control) pack(ctx context.Context, codec Codec, workPath, path, password string) error {
	if err := codec.Close(); err != nil {
		return err
	}
	if err := c.opts.Archiver.Archive(ctx, workPath, path, password); err != nil {
		return fmt.Errorf("couldn't encrypt the file: %w", err)
	}
	if !isRegular(c.fs, path) {
		return errors.New("couldn't encrypt the file")
	}
	return codec.Reopen()
}

// Save writes the pending changes, keeping a backup of the previous file
// until the write succeeded.
func (c *Control) Save(ctx context.Context, needVacuum bool) error {
	batch, snap, err := c.beginSave()
	if err != nil {
		return err
	}
	defer c.saving.Store(false)
	return c.write(ctx, batch, snap, needVacuum)
}

// SaveAsync takes the snapshot on the calling goroutine and writes it in the
// background. Edits made meanwhile are kept for the next save.
func (c *Control) SaveAsync(ctx context.Context, needVacuum bool) <-chan error {
	done := make(chan error, 1)
	batch, snap, err := c.beginSave()
	if err != nil {
		done <- err
		close(done)
		return done
	}
	go func() {
		defer close(done)
		defer c.saving.Store(false)
		done <- c.write(ctx, batch, snap, needVacuum)
	}()
	return done
}

func (c *Control) beginSave() (*pending.Batch, *tree.Snapshot, error) {
	if c.path == "" || c.codec == nil {
		return nil, nil, ErrNotInitialized
	}
	if !c.saving.CompareAndSwap(false, true) {
		return nil, nil, ErrSaveInProgress
	}
	if len(c.issues) > 0 && !c.opts.AllowCorruptWrites {
		c.saving.Store(false)
		return nil, nil, fmt.Errorf("save %s: %w", c.path, ErrIntegrity)
	}
	ledger := c.tree.Ledger()
	batch := ledger.Begin()
	snap, err := c.tree.Freeze(batch)
	if err != nil {
		ledger.Rollback(batch)
		c.saving.Store(false)
		return nil, nil, fmt.Errorf("save %s: %w", c.path, err)
	}
	return batch, snap, nil
}

func (c *Control) write(ctx context.Context, batch *pending.Batch, snap *tree.Snapshot, needVacuum bool) (err error) {
	ledger := c.tree.Ledger()
	mainBackup := c.path + mainBackupMark
	needBackup := c.opts.BackupEnabled && c.opts.BackupCount > 0 && !c.skipBackup
	log := c.logger.WithField("path", c.path)

	// stored is set once the batch reached the working file
	stored := false
	defer c.touchModTime()
	defer func() {
		if err == nil {
			return
		}
		restored := c.restore(mainBackup, needBackup)
		if stored && !(restored && c.workPath == c.path) {
			ledger.Requeue(batch)
		} else {
			ledger.Rollback(batch)
		}
		log.WithError(err).Error("Save failed")
	}()

	if err = c.codec.TestConnection(ctx); err != nil {
		return err
	}

	if needBackup {
		// the unencrypted relational file stays in use, so it is copied
		if c.workPath == c.path && c.docType == models.DocTypeSQLite {
			if err = c.codec.Close(); err != nil {
				return err
			}
			if err = copyFile(c.fs, c.path, mainBackup); err != nil {
				return fmt.Errorf("no write access to %s: %w", filepath.Dir(c.path), err)
			}
			if err = c.codec.Reopen(); err != nil {
				return err
			}
		} else if err = moveFile(c.fs, c.path, mainBackup); err != nil {
			return fmt.Errorf("no write access to %s: %w", filepath.Dir(c.path), err)
		}
		log.Debug("Took pre-save backup")
	}

	if err = c.codec.Save(ctx, c.workPath, snap, batch); err != nil {
		return fmt.Errorf("save %s: %w", c.path, err)
	}
	stored = true
	if needVacuum {
		if err = c.codec.Vacuum(ctx); err != nil {
			return fmt.Errorf("vacuum %s: %w", c.path, err)
		}
		log.Debug("Vacuumed store")
	}
	if c.encrypted {
		if err = c.pack(ctx, c.codec, c.workPath, c.path, c.password); err != nil {
			return fmt.Errorf("save %s: %w", c.path, err)
		}
	}
	if needBackup {
		if err = rotateBackups(c.fs, mainBackup, c.backupBase(), c.opts.BackupCount); err != nil {
			return err
		}
	}

	ledger.Commit(batch)
	c.skipBackup = false
	return nil
}

// restore puts the pre-save backup back and reports whether it did.
// Failures are logged only.
func (c *Control) restore(mainBackup string, needBackup bool) bool {
	if err := c.codec.Close(); err != nil {
		c.logger.WithError(err).Warn("Failed to close store before restore")
	}
	restored := false
	if needBackup && isRegular(c.fs, mainBackup) {
		if err := moveFile(c.fs, mainBackup, c.path); err != nil {
			c.logger.WithError(err).WithField("backup", mainBackup).Error("Failed to restore backup")
		} else {
			restored = true
		}
	}
	if err := c.codec.Reopen(); err != nil {
		c.logger.WithError(err).Error("Failed to reopen store after restore")
	}
	return restored
}

func (c *Control) setModTime(t time.Time) {
	c.mu.Lock()
	c.modTime = t
	c.mu.Unlock()
}

func (c *Control) touchModTime() {
	var t time.Time
	if info, err := c.fs.Stat(c.path); err == nil {
		t = info.ModTime()
	}
	c.setModTime(t)
}

// ModifiedExternally reports whether the file changed on disk since it was
// last loaded or saved by this Control.
func (c *Control) ModifiedExternally() bool {
	if c.path == "" || c.saving.Load() {
		return false
	}
	info, err := c.fs.Stat(c.path)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.modTime.IsZero() && !info.ModTime().Equal(c.modTime)
}

// Close releases the codec and removes any unpacked working copy.
func (c *Control) Close() error {
	var err error
	if c.codec != nil {
		err = c.codec.Close()
	}
	if c.tmpDir != "" {
		if rmErr := c.fs.RemoveAll(c.tmpDir); rmErr != nil && err == nil {
			err = rmErr
		}
		c.tmpDir = ""
	}
	return err
}
