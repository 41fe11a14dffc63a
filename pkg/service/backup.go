package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	backupMark     = "~"
	mainBackupMark = "!"
)

// backupBase returns the name of the newest rotated backup of path. With a
// custom directory backups go to <dir>/<mangled full path>/<file>~.
func (c *Control) backupBase() string {
	base := c.path + backupMark
	if c.opts.BackupDir == "" {
		return base
	}
	abs, err := filepath.Abs(c.path)
	if err != nil {
		abs = c.path
	}
	dir := filepath.Join(c.opts.BackupDir, mangle(abs))
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		c.logger.WithError(err).WithField("dir", dir).Error("Failed to create backup directory")
		return base
	}
	return filepath.Join(dir, filepath.Base(c.path)) + backupMark
}

func mangle(path string) string {
	return strings.NewReplacer(`\`, "_", "/", "_", ":", "_", "?", "_").Replace(path)
}

// rotateBackups shifts the chain newest, newest~, ... one step older,
// dropping the oldest of count backups, then moves main into newest.
func rotateBackups(fsys afero.Fs, main, newest string, count int) error {
	for k := count - 2; k >= 0; k-- {
		p := newest + strings.Repeat(backupMark, k)
		if !isRegular(fsys, p) {
			continue
		}
		if err := moveFile(fsys, p, p+backupMark); err != nil {
			return fmt.Errorf("no write access to %s: %w", filepath.Dir(newest), err)
		}
	}
	if err := moveFile(fsys, main, newest); err != nil {
		return fmt.Errorf("no write access to %s: %w", filepath.Dir(newest), err)
	}
	return nil
}

func isRegular(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// moveFile renames src over dst, copying when a rename is not possible.
func moveFile(fsys afero.Fs, src, dst string) error {
	if err := fsys.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := fsys.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(fsys, src, dst); err != nil {
		return err
	}
	return fsys.Remove(src)
}

func copyFile(fsys afero.Fs, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
