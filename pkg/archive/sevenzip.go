package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// SevenZip runs an external 7za binary.
type SevenZip struct {
	Binary string
	logger *logrus.Entry
}

func NewSevenZip(binary string, logger *logrus.Entry) *SevenZip {
	if binary == "" {
		binary = "7za"
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &SevenZip{Binary: binary, logger: logger.WithField("component", "7za")}
}

func extractArgs(archive, destDir, password string) []string {
	return []string{
		"e",
		"-p" + password,
		"-w" + os.TempDir(),
		"-bd",
		"-bso0",
		"-bsp0",
		"-bse1",
		"-y",
		"-o" + filepath.ToSlash(destDir),
		filepath.ToSlash(archive),
	}
}

func archiveArgs(src, archive, password string) []string {
	return []string{
		"a",
		"-p" + password,
		"-w" + filepath.ToSlash(filepath.Dir(archive)),
		"-t7z",
		"-m0=LZMA2:d64k:fb32",
		"-ms=8m",
		"-mmt=" + strconv.Itoa(runtime.NumCPU()),
		"-mx=1",
		"-bd",
		"-bso0",
		"-bsp0",
		"-y",
		"--",
		filepath.ToSlash(archive),
		filepath.ToSlash(src),
	}
}

func (z *SevenZip) Extract(ctx context.Context, archive, destDir, password string) error {
	if err := z.run(ctx, extractArgs(archive, destDir, password)); err != nil {
		return fmt.Errorf("extract %s: %w", archive, err)
	}
	return nil
}

// Archive replaces archive: 7za would otherwise add to an existing one.
func (z *SevenZip) Archive(ctx context.Context, src, archive, password string) error {
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", archive, err)
	}
	if err := z.run(ctx, archiveArgs(src, archive, password)); err != nil {
		return fmt.Errorf("archive %s: %w", src, err)
	}
	if info, err := os.Stat(archive); err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("archive %s: no output written", archive)
	}
	return nil
}

func (z *SevenZip) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, z.Binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	z.logger.WithField("op", args[0]).Debug("Running 7za")
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
