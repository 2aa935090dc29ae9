// Package ingest turns one subdirectory of carved files into persisted
// file records: probe metadata in batches, build records against the
// audit side table, hash and optionally archive the content.
package ingest

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bluefinx/foremost-parser/parser/probe"
)

// DefaultBatchSize bounds one exiftool invocation. Batches isolate
// faulty files: probing everything at once means one bad file kills the
// metadata of thousands, probing one by one takes ages.
const DefaultBatchSize = 500

// Extractor runs the metadata probe over file paths in batches and
// recovers per file when a batch fails.
type Extractor struct {
	Prober probe.Prober
	// Sniff is the local fallback for files the probe cannot handle.
	Sniff func(path string) (probe.Metadata, error)
	// BatchSize overrides DefaultBatchSize when > 0.
	BatchSize int
}

// Extract probes every path and returns metadata keyed by file name,
// plus the set of names whose metadata came from the fallback sniffer.
// Every input path has an entry in the result unless the returned error
// is non-nil: a file that even the fallback cannot read aborts the
// extraction.
func (e *Extractor) Extract(ctx context.Context, paths []string) (map[string]probe.Metadata, map[string]bool, error) {
	size := e.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	meta := make(map[string]probe.Metadata, len(paths))
	fallbackUsed := map[string]bool{}

	for i := 0; i < len(paths); i += size {
		end := i + size
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[i:end]

		res := e.Prober.Probe(ctx, batch)
		if res.Status == probe.StatusOK {
			for name, m := range res.Files {
				meta[name] = m
			}
		} else {
			log.Warn().Err(res.Cause).Int("batch", len(batch)).
				Msg("batch probe failed, retrying files individually")
		}

		// retry whatever the batch did not cover, one file at a time
		for _, path := range batch {
			if _, ok := meta[filepath.Base(path)]; ok {
				continue
			}
			if err := e.extractOne(ctx, path, meta, fallbackUsed); err != nil {
				return nil, nil, err
			}
		}
	}
	return meta, fallbackUsed, nil
}

func (e *Extractor) extractOne(ctx context.Context, path string, meta map[string]probe.Metadata, fallbackUsed map[string]bool) error {
	res := e.Prober.Probe(ctx, []string{path})
	if res.Status == probe.StatusOK {
		if m, ok := res.Files[filepath.Base(path)]; ok {
			meta[filepath.Base(path)] = m
			return nil
		}
	}

	sniff := e.Sniff
	if sniff == nil {
		sniff = probe.Sniff
	}
	m, err := sniff(path)
	if err != nil {
		return errors.Wrapf(err, "file %s defeated both probe and fallback", path)
	}
	name := filepath.Base(path)
	meta[name] = m
	fallbackUsed[name] = true
	log.Debug().Str("file", name).Msg("probe failed for file, used local fallback")
	return nil
}
