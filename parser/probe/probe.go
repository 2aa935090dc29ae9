// Package probe wraps the external exiftool metadata probe and the local
// fallback sniffer used when exiftool cannot handle a file.
package probe

import (
	"context"
)

// Well-known metadata keys, named the way exiftool's -G JSON output
// names them. The fallback sniffer produces the same keys so downstream
// record building never cares where metadata came from.
const (
	KeyFileName          = "File:FileName"
	KeyFileType          = "File:FileType"
	KeyFileTypeExtension = "File:FileTypeExtension"
	KeyMIMEType          = "File:MIMEType"
	KeyFileSize          = "File:FileSize"
	KeySourceFile        = "SourceFile"
)

// Metadata is the loosely typed field bag one probe run yields for one
// file. Values are whatever the probe's JSON decodes to.
type Metadata map[string]interface{}

// String returns the value of key as a string, or "" when absent or not
// textual.
func (m Metadata) String(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Int64 returns the value of key as an int64. JSON numbers arrive as
// float64 and are converted.
func (m Metadata) Int64(key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

type Status int

const (
	StatusOK Status = iota
	// StatusBatchFailure means the probe aborted for the whole batch; a
	// single malformed file is enough to cause it. The caller retries
	// per file.
	StatusBatchFailure
)

// BatchResult is the outcome of probing one batch of paths. Expected
// failure modes are values, not errors: a batch failure is part of
// normal operation.
type BatchResult struct {
	Status Status
	// Files maps file name to its metadata; only valid for StatusOK.
	Files map[string]Metadata
	// Cause carries diagnostics for a batch failure.
	Cause error
}

// Prober extracts metadata for a list of file paths in one external
// call.
type Prober interface {
	Probe(ctx context.Context, paths []string) BatchResult
}
