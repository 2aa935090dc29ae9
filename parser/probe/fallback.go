package probe

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// Sniff derives minimal metadata for a single file without exiftool:
// extension from the name, MIME and type label by content sniffing, and
// the size from the filesystem. It produces the same keys the probe
// would, so records built from it look no different downstream.
func Sniff(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat file")
	}
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "sniff file content")
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	// exiftool reports FileType as an upper-case label like "PNG"; the
	// sniffed extension is the closest local equivalent
	label := strings.ToUpper(strings.TrimPrefix(mime.Extension(), "."))
	if label == "" {
		label = mime.String()
	}
	return Metadata{
		KeyFileName:          filepath.Base(path),
		KeyFileTypeExtension: strings.ToUpper(ext),
		KeyFileType:          label,
		KeyMIMEType:          mime.String(),
		KeyFileSize:          info.Size(),
	}, nil
}
