// Package report renders the per-image JSON report consumed by
// downstream tooling.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/bluefinx/foremost-parser/store"
)

type Overview struct {
	ImageName          string     `json:"image_name"`
	ImageSize          int64      `json:"image_size"`
	ForemostVersion    string     `json:"foremost_version,omitempty"`
	ForemostInvocation string     `json:"foremost_invocation,omitempty"`
	ExiftoolVersion    string     `json:"exiftool_version,omitempty"`
	ScanStart          *time.Time `json:"scan_start,omitempty"`
	ScanEnd            *time.Time `json:"scan_end,omitempty"`
	FilesTotal         int64      `json:"files_total"`
	FilesParsed        int        `json:"files_parsed"`
	DuplicateFiles     int        `json:"duplicate_files"`
	DuplicateGroups    int        `json:"duplicate_groups"`
	GeneratedAt        time.Time  `json:"generated_at"`
}

type FileEntry struct {
	Name              string `json:"name"`
	Size              int64  `json:"size"`
	Offset            int64  `json:"offset"`
	Type              string `json:"type,omitempty"`
	MIME              string `json:"mime,omitempty"`
	Hash              string `json:"hash,omitempty"`
	ArchivedPath      string `json:"archived_path,omitempty"`
	Comment           string `json:"comment,omitempty"`
	FromProbe         bool   `json:"from_probe"`
	ExtensionMismatch bool   `json:"extension_mismatch,omitempty"`
	DuplicateGroupID  uint   `json:"duplicate_group_id,omitempty"`
}

type ExtensionSection struct {
	Extension string      `json:"extension"`
	Count     int         `json:"count"`
	Files     []FileEntry `json:"files"`
}

type Report struct {
	Overview   Overview           `json:"overview"`
	Extensions []ExtensionSection `json:"extensions"`
}

// Build assembles the report for one image from the store.
func Build(st *store.Store, imageID uint) (*Report, error) {
	img, err := st.ReadImage(imageID)
	if err != nil {
		return nil, err
	}
	files, err := st.ReadFilesForImage(imageID)
	if err != nil {
		return nil, err
	}
	memberships, err := st.ReadMembershipsForImage(imageID)
	if err != nil {
		return nil, err
	}

	groups := map[uint]bool{}
	byExt := map[string][]FileEntry{}
	for _, f := range files {
		entry := FileEntry{
			Name:              f.Name,
			Size:              f.Size,
			Offset:            f.Offset,
			Type:              f.Type,
			MIME:              f.MIME,
			Hash:              f.Hash,
			ArchivedPath:      f.ArchivedPath,
			Comment:           f.ForemostComment,
			FromProbe:         f.FromProbe,
			ExtensionMismatch: f.ExtensionMismatch,
		}
		if groupID, ok := memberships[f.ID]; ok {
			entry.DuplicateGroupID = groupID
			groups[groupID] = true
		}
		byExt[f.Extension] = append(byExt[f.Extension], entry)
	}

	rep := &Report{
		Overview: Overview{
			ImageName:          img.Name,
			ImageSize:          img.Size,
			ForemostVersion:    img.ForemostVersion,
			ForemostInvocation: img.ForemostInvocation,
			ExiftoolVersion:    img.ExiftoolVersion,
			ScanStart:          img.ScanStart,
			ScanEnd:            img.ScanEnd,
			FilesTotal:         img.FilesTotal,
			FilesParsed:        len(files),
			DuplicateFiles:     len(memberships),
			DuplicateGroups:    len(groups),
			GeneratedAt:        time.Now().UTC(),
		},
	}

	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		entries := byExt[ext]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		rep.Extensions = append(rep.Extensions, ExtensionSection{
			Extension: ext,
			Count:     len(entries),
			Files:     entries,
		})
	}
	return rep, nil
}

// WriteJSON builds the report and writes it under outDir as
// report_<imageName>.json, returning the written path.
func WriteJSON(st *store.Store, imageID uint, outDir string) (string, error) {
	rep, err := Build(st, imageID)
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode report")
	}
	path := filepath.Join(outDir, fmt.Sprintf("report_%s.json", filepath.Base(rep.Overview.ImageName)))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", errors.Wrap(err, "write report")
	}
	return path, nil
}
