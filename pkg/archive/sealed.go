package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize     = 16
	keySize      = chacha20poly1305.KeySize
	defaultLogN  = 15
	scryptR      = 8
	scryptP      = 1
	headerSize   = 8 + 1 + saltSize + chacha20poly1305.NonceSizeX
	maxEntrySize = 1 << 32
)

// Sealed is the in-process archiver. The file is zipped and the zip is
// encrypted with XChaCha20-Poly1305 under a scrypt derived key.
//
// Layout: magic | log2(N) | salt | nonce | ciphertext. The header is bound
// to the ciphertext as additional data.
type Sealed struct {
	// LogN is the scrypt cost exponent used when sealing.
	LogN uint8
}

func NewSealed() *Sealed {
	return &Sealed{LogN: defaultLogN}
}

func deriveKey(password string, salt []byte, logN uint8) ([]byte, error) {
	if logN < 1 || logN > 30 {
		return nil, fmt.Errorf("invalid key cost %d", logN)
	}
	return scrypt.Key([]byte(password), salt, 1<<logN, scryptR, scryptP, keySize)
}

func (s *Sealed) Archive(ctx context.Context, src, archive, password string) error {
	var zbuf bytes.Buffer
	if err := zipFile(&zbuf, src); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	header := make([]byte, headerSize)
	copy(header, SealedMagic)
	header[8] = s.LogN
	salt := header[9 : 9+saltSize]
	nonce := header[9+saltSize:]
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	key, err := deriveKey(password, salt, s.LogN)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	sealed := aead.Seal(header, nonce, zbuf.Bytes(), header)

	return writeReplace(archive, sealed)
}

func zipFile(w io.Writer, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header: %w", err)
	}
	hdr.Name = filepath.Base(src)
	hdr.Method = zip.Deflate

	zw := zip.NewWriter(w)
	entry, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip %s: %w", src, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("zip %s: %w", src, err)
	}
	return zw.Close()
}

func writeReplace(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (s *Sealed) Extract(ctx context.Context, archive, destDir, password string) error {
	data, err := os.ReadFile(archive)
	if err != nil {
		return fmt.Errorf("read %s: %w", archive, err)
	}
	if len(data) < headerSize || !bytes.HasPrefix(data, SealedMagic) {
		return fmt.Errorf("%s: not a sealed archive", archive)
	}
	header := data[:headerSize]
	salt := header[9 : 9+saltSize]
	nonce := header[9+saltSize:]
	key, err := deriveKey(password, salt, header[8])
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	plain, err := aead.Open(nil, nonce, data[headerSize:], header)
	if err != nil {
		return fmt.Errorf("%s: %w", archive, ErrWrongPassword)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	zr, err := zip.NewReader(bytes.NewReader(plain), int64(len(plain)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	if err := os.MkdirAll(destDir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(zf, destDir); err != nil {
			return err
		}
	}
	return nil
}

// extractEntry writes one entry into destDir, flattening any directories.
func extractEntry(zf *zip.File, destDir string) error {
	name := filepath.Base(filepath.FromSlash(zf.Name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid entry name %q", zf.Name)
	}
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", zf.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(filepath.Join(destDir, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(out, io.LimitReader(rc, maxEntrySize)); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", name, err)
	}
	return out.Close()
}
