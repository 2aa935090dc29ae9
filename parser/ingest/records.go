package ingest

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bluefinx/foremost-parser/parser/audit"
	"github.com/bluefinx/foremost-parser/parser/probe"
	"github.com/bluefinx/foremost-parser/store/models"
)

// extensionAliases maps spellings of the same format onto one canonical
// form, so jpg vs jpeg never counts as an extension mismatch.
var extensionAliases = map[string]string{
	"jpeg": "jpg",
	"tiff": "tif",
	"html": "htm",
	"mpeg": "mpg",
}

// excludedMetadataKeys are probe fields that either live in a dedicated
// column or carry nothing worth keeping; they are stripped from the
// metadata bag before persistence.
var excludedMetadataKeys = []string{
	probe.KeySourceFile,
	probe.KeyFileName,
	probe.KeyFileType,
	probe.KeyFileTypeExtension,
	probe.KeyMIMEType,
	probe.KeyFileSize,
	"File:FileModifyDate",
	"File:FileAccessDate",
	"File:FileCreateDate",
	"File:FileInodeChangeDate",
	"File:Directory",
	"File:FilePermissions",
	"ExifTool:ExifToolVersion",
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if canonical, ok := extensionAliases[ext]; ok {
		return canonical
	}
	return ext
}

// BuildRecords converts probed metadata into file rows for one
// subdirectory. Matching side-table entries are consumed, so whatever
// the table still holds after the whole image was processed was
// audit-listed but missing on disk.
func BuildRecords(meta map[string]probe.Metadata, imageID uint, sideTable audit.SideTable, fallbackUsed map[string]bool) ([]*models.File, error) {
	files := make([]*models.File, 0, len(meta))
	for name, m := range meta {
		f := &models.File{
			ImageID:   imageID,
			Name:      name,
			Type:      m.String(probe.KeyFileType),
			Extension: strings.ToLower(m.String(probe.KeyFileTypeExtension)),
			MIME:      m.String(probe.KeyMIMEType),
			Size:      m.Int64(probe.KeyFileSize),
			FromProbe: !fallbackUsed[name],
		}

		if entry, ok := sideTable[name]; ok {
			f.Offset = entry.Offset
			f.ForemostComment = entry.Comment
			delete(sideTable, name)
		}

		nameExt := normalizeExtension(filepath.Ext(name))
		probeExt := normalizeExtension(f.Extension)
		f.ExtensionMismatch = nameExt != "" && probeExt != "" && nameExt != probeExt

		bag := make(map[string]interface{}, len(m))
		for k, v := range m {
			bag[k] = v
		}
		for _, k := range excludedMetadataKeys {
			delete(bag, k)
		}
		if len(bag) > 0 {
			raw, err := json.Marshal(bag)
			if err != nil {
				return nil, errors.Wrapf(err, "encode metadata for %s", name)
			}
			f.MoreMetadata = raw
		}

		files = append(files, f)
	}
	return files, nil
}
