// Package parser orchestrates one ingestion run: audit parsing, batched
// metadata extraction, hashing, persistence and duplicate
// reconciliation, as an all-or-nothing unit per image.
package parser

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/bluefinx/foremost-parser/parser/audit"
	"github.com/bluefinx/foremost-parser/parser/dedup"
	"github.com/bluefinx/foremost-parser/parser/ingest"
	"github.com/bluefinx/foremost-parser/parser/probe"
	"github.com/bluefinx/foremost-parser/report"
	"github.com/bluefinx/foremost-parser/store"
)

type Parser struct {
	Conf   *Conf
	Store  *store.Store
	Prober probe.Prober
	// Sniff overrides the fallback sniffer, for tests.
	Sniff func(path string) (probe.Metadata, error)
}

func New(conf *Conf) *Parser {
	return &Parser{
		Conf:   conf,
		Prober: &probe.ExifTool{Binary: conf.ExiftoolBin},
	}
}

// Run ingests the configured input directory as one image. On any
// unrecoverable failure all partial state of the image, archived copies
// included, is deleted before the error is returned.
func (p *Parser) Run(ctx context.Context) error {
	conf := p.Conf
	if info, err := os.Stat(conf.InputPath); err != nil || !info.IsDir() {
		return errors.Errorf("input path %s is not a directory", conf.InputPath)
	}
	if info, err := os.Stat(conf.OutputPath); err != nil || !info.IsDir() {
		return errors.Errorf("output path %s is not a directory", conf.OutputPath)
	}

	if p.Store == nil {
		st, err := store.Open(conf.DatabasePath())
		if err != nil {
			return err
		}
		p.Store = st
	}

	log.Info().Str("input", conf.InputPath).Msg("parsing audit file")
	img, sideTable, err := audit.Parse(conf.InputPath)
	if err != nil {
		return err
	}
	if et, ok := p.Prober.(*probe.ExifTool); ok {
		if v, err := et.Version(ctx); err == nil {
			img.ExiftoolVersion = v
		} else {
			log.Warn().Err(err).Msg("could not establish exiftool version")
		}
	}
	if err := p.Store.InsertImage(img); err != nil {
		return err
	}

	// the audit's image name can be a full path; only its base names the
	// archive directory
	archiveName := filepath.Base(img.Name)

	if err := p.ingestFiles(ctx, img.ID, archiveName, sideTable); err != nil {
		return p.cleanup(img.ID, archiveName, err)
	}

	counts, err := p.Store.FilesPerExtension(img.ID)
	if err != nil {
		return p.cleanup(img.ID, archiveName, err)
	}
	if err := p.Store.UpdateImageFilesPerExtension(img.ID, counts); err != nil {
		return p.cleanup(img.ID, archiveName, err)
	}

	log.Info().Msg("starting duplicate detection")
	rec := &dedup.Reconciler{Store: p.Store}
	if err := rec.Reconcile(img.ID, conf.CrossImage); err != nil {
		return p.cleanup(img.ID, archiveName, err)
	}

	for name := range sideTable {
		log.Warn().Str("file", name).
			Msg("file listed in audit table but never found on disk")
	}

	log.Info().Msg("generating report")
	path, err := report.WriteJSON(p.Store, img.ID, conf.OutputPath)
	if err != nil {
		return p.cleanup(img.ID, archiveName, err)
	}
	log.Info().Str("report", path).Msg("image ingested")
	return nil
}

// ingestFiles walks the subdirectories of the input in sorted order and
// runs extract -> build -> hash -> persist per subdirectory.
func (p *Parser) ingestFiles(ctx context.Context, imageID uint, imageName string, sideTable audit.SideTable) error {
	subdirs, err := collectSubdirs(p.Conf.InputPath)
	if err != nil {
		return err
	}

	extractor := &ingest.Extractor{
		Prober:    p.Prober,
		Sniff:     p.Sniff,
		BatchSize: p.Conf.BatchSize,
	}
	hasher := &ingest.Hasher{}

	for _, subdir := range subdirs {
		log.Info().Str("dir", filepath.Base(subdir)).Msg("processing files")

		paths, err := listFiles(subdir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			continue
		}

		meta, fallbackUsed, err := extractor.Extract(ctx, paths)
		if err != nil {
			return err
		}
		files, err := ingest.BuildRecords(meta, imageID, sideTable, fallbackUsed)
		if err != nil {
			return err
		}
		err = hasher.HashAndArchive(subdir, files, imageName, p.Conf.OutputPath, p.Conf.CopyImages)
		if err != nil {
			return err
		}
		if err := p.Store.InsertFiles(files); err != nil {
			return err
		}
	}
	return nil
}

// cleanup discards every trace of a half-ingested image: archived
// copies, then the image with all dependent rows.
func (p *Parser) cleanup(imageID uint, imageName string, cause error) error {
	log.Error().Err(cause).Msg("ingestion failed, discarding image")
	archiveDir := filepath.Join(p.Conf.OutputPath, imageName)
	err := multierr.Combine(
		cause,
		errors.Wrap(os.RemoveAll(archiveDir), "remove archived copies"),
		p.Store.DeleteImage(imageID),
	)
	return err
}

func collectSubdirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk input directory")
	}
	sort.Strings(dirs)
	return dirs, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
