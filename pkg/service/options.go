package service

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/grovetools/treenote/pkg/archive"
)

// PasswordPrompter asks the user for the password of an encrypted document.
// retry is set after a failed attempt. Returning ErrCancelled aborts the load.
type PasswordPrompter interface {
	Password(ctx context.Context, path string, retry bool) (string, error)
}

// Options configures a Control.
type Options struct {
	BackupEnabled bool
	// BackupCount is the number of rotated backups kept next to the file.
	BackupCount int
	// BackupDir, when set, holds the rotated backups instead of the
	// document's own directory.
	BackupDir          string
	AllowCorruptWrites bool

	Archiver archive.Archiver
	Prompter PasswordPrompter
	Codecs   CodecFactory
	Fs       afero.Fs
	// TempDir is where encrypted documents are unpacked.
	TempDir string
	Logger  *logrus.Entry
}

func DefaultOptions() Options {
	return Options{
		BackupEnabled: true,
		BackupCount:   3,
	}
}

func (o Options) withDefaults() Options {
	if o.Archiver == nil {
		o.Archiver = archive.NewSealed()
	}
	if o.Codecs == nil {
		o.Codecs = DefaultCodecs
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		o.Logger = logrus.NewEntry(l)
	}
	return o
}
