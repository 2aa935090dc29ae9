package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bluefinx/foremost-parser/store/models"
)

// DefaultChunkSize is the read buffer for hashing and archiving; chunked
// reads keep memory flat no matter how large a carved file is.
const DefaultChunkSize = 4096

// DefaultArchiveExtensions lists the normalized extensions whose files
// are copied into the archive when copying is enabled.
var DefaultArchiveExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
	"svg":  true,
}

// Hasher streams each file once, computing its SHA-256 and, when
// enabled, duplicating the same bytes into the extension-keyed archive
// layout.
type Hasher struct {
	ChunkSize   int
	ArchiveExts map[string]bool

	// createArchive is swapped in tests.
	createArchive func(path string) (io.WriteCloser, error)
}

func (h *Hasher) create(path string) (io.WriteCloser, error) {
	if h.createArchive != nil {
		return h.createArchive(path)
	}
	return os.Create(path)
}

func (h *Hasher) chunkSize() int {
	if h.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return h.ChunkSize
}

func (h *Hasher) archiveExts() map[string]bool {
	if h.ArchiveExts == nil {
		return DefaultArchiveExtensions
	}
	return h.ArchiveExts
}

// HashAndArchive fills in Hash (and ArchivedPath when applicable) for
// every record in files, reading each source file from dir exactly once.
// Any read failure is fatal: a file that cannot be hashed aborts its
// image's ingestion.
func (h *Hasher) HashAndArchive(dir string, files []*models.File, imageName, archiveRoot string, copyEnabled bool) error {
	for _, f := range files {
		if err := h.hashOne(dir, f, imageName, archiveRoot, copyEnabled); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hasher) hashOne(dir string, f *models.File, imageName, archiveRoot string, copyEnabled bool) error {
	src, err := os.Open(filepath.Join(dir, f.Name))
	if err != nil {
		return errors.Wrapf(err, "open %s for hashing", f.Name)
	}
	defer src.Close()

	digest := sha256.New()
	var w io.Writer = digest
	var dst io.WriteCloser

	archive := copyEnabled && h.archiveExts()[normalizeExtension(f.Extension)]
	if archive {
		extDir := filepath.Join(archiveRoot, imageName, strings.ToLower(f.Extension))
		if err := os.MkdirAll(extDir, 0o755); err != nil {
			return errors.Wrapf(err, "create archive dir for %s", f.Extension)
		}
		dst, err = h.create(filepath.Join(extDir, f.Name))
		if err != nil {
			return errors.Wrapf(err, "create archive copy of %s", f.Name)
		}
		defer dst.Close()
		w = io.MultiWriter(digest, dst)
		f.ArchivedPath = filepath.Join(extDir, f.Name)
	}

	buf := make([]byte, h.chunkSize())
	if _, err := io.CopyBuffer(w, src, buf); err != nil {
		return errors.Wrapf(err, "read %s", f.Name)
	}
	if dst != nil {
		// a close failure can mean unflushed bytes, which would leave a
		// truncated archive copy behind a valid ArchivedPath
		if err := dst.Close(); err != nil {
			return errors.Wrapf(err, "flush archive copy of %s", f.Name)
		}
	}
	f.Hash = hex.EncodeToString(digest.Sum(nil))
	return nil
}
