package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ExifTool probes files by spawning the exiftool binary once per batch
// with JSON output. exiftool exits non-zero as soon as one file of the
// invocation is unreadable or malformed, which surfaces here as a
// BatchFailure for the whole batch.
type ExifTool struct {
	// Binary is the exiftool executable, "exiftool" by default.
	Binary string
}

func (e *ExifTool) binary() string {
	if e.Binary == "" {
		return "exiftool"
	}
	return e.Binary
}

func (e *ExifTool) Probe(ctx context.Context, paths []string) BatchResult {
	if len(paths) == 0 {
		return BatchResult{Status: StatusOK, Files: map[string]Metadata{}}
	}
	// -n disables print conversion; without it numeric fields such as
	// File:FileSize come back as display strings ("13 kB").
	args := append([]string{"-j", "-G", "-n"}, paths...)
	cmd := exec.CommandContext(ctx, e.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return BatchResult{
			Status: StatusBatchFailure,
			Cause:  errors.Wrapf(err, "exiftool: %s", strings.TrimSpace(stderr.String())),
		}
	}

	var decoded []Metadata
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		return BatchResult{
			Status: StatusBatchFailure,
			Cause:  errors.Wrap(err, "decode exiftool output"),
		}
	}

	files := make(map[string]Metadata, len(decoded))
	for _, meta := range decoded {
		name := meta.String(KeyFileName)
		if name == "" {
			// exiftool always reports SourceFile even when the File
			// group is missing
			name = filepath.Base(meta.String(KeySourceFile))
		}
		if name == "" {
			continue
		}
		files[name] = meta
	}
	return BatchResult{Status: StatusOK, Files: files}
}

// Version reports the exiftool version, recorded on the image row.
func (e *ExifTool) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.binary(), "-ver").Output()
	if err != nil {
		return "", errors.Wrap(err, "exiftool -ver")
	}
	return strings.TrimSpace(string(out)), nil
}
