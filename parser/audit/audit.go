// Package audit parses Foremost's audit.txt: the header lines describing
// the scanned image and the per-file table with sizes, offsets and
// comments.
package audit

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bluefinx/foremost-parser/store/models"
)

// FileName is the audit log's fixed name inside a Foremost output
// directory. A directory without it is not Foremost output.
const FileName = "audit.txt"

// Entry is one row of the audit table, keyed by recovered file name.
type Entry struct {
	Size    string
	Offset  int64
	Comment string
}

// SideTable maps recovered file names to their audit rows. Ingestion
// consumes entries as files are found; whatever remains afterwards was
// listed in the audit but never seen on disk.
type SideTable map[string]Entry

var (
	// "File: example.dd"
	imageNameRe = regexp.MustCompile(`File:\s+(.+)`)
	// "Length: 5 GB (5762727936 bytes)"
	imageSizeRe = regexp.MustCompile(`Length:\s+\d+\s*\w+\s*\((\d+)\s*bytes\)`)
	// "Output directory: /output"
	outputDirRe = regexp.MustCompile(`Output directory:\s+(.+)`)
	// "Invocation: foremost -i example.dd"
	invocationRe = regexp.MustCompile(`Invocation:\s+(.+)`)
	// "Foremost version 1.5.7 by Jesse Kornblum, Kris Kendall, and Nick Mikus"
	foremostVersionRe = regexp.MustCompile(`Foremost version\s+([\d.]+)\s+by`)
	// "Start: Fri Nov 29 16:24:35 2024"
	scanStartRe = regexp.MustCompile(`Start:\s+(.+)`)
	// "Finish: Fri Nov 29 16:25:57 2024"
	scanEndRe = regexp.MustCompile(`Finish:\s+(.+)`)
	// "9838 FILES EXTRACTED"
	filesTotalRe = regexp.MustCompile(`(\d+)\s+FILES EXTRACTED`)

	columnSplitRe = regexp.MustCompile(`\s{2,}|\t+`)
	tableRowRe    = regexp.MustCompile(`^\d+:`)
)

const timeLayout = "Mon Jan _2 15:04:05 2006"

// Parse reads audit.txt from dir and returns the image metadata plus the
// per-file side table.
func Parse(dir string) (*models.Image, SideTable, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", FileName)
	}
	defer f.Close()

	img := &models.Image{}
	table := SideTable{}
	inTable := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parseHeaderLine(line, img)
		inTable = parseTableLine(line, table, inTable)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", FileName)
	}
	if img.Name == "" {
		return nil, nil, errors.Errorf("%s carries no image name", FileName)
	}
	return img, table, nil
}

func parseHeaderLine(line string, img *models.Image) {
	if m := imageSizeRe.FindStringSubmatch(line); m != nil {
		img.Size, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m := outputDirRe.FindStringSubmatch(line); m != nil {
		img.OriginalOutputDir = m[1]
	}
	if m := invocationRe.FindStringSubmatch(line); m != nil {
		img.ForemostInvocation = m[1]
	}
	if m := foremostVersionRe.FindStringSubmatch(line); m != nil {
		img.ForemostVersion = m[1]
	}
	if m := scanStartRe.FindStringSubmatch(line); m != nil {
		if t, err := time.Parse(timeLayout, m[1]); err == nil {
			img.ScanStart = &t
		}
	}
	if m := scanEndRe.FindStringSubmatch(line); m != nil {
		if t, err := time.Parse(timeLayout, m[1]); err == nil {
			img.ScanEnd = &t
		}
	}
	if m := filesTotalRe.FindStringSubmatch(line); m != nil {
		img.FilesTotal, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m := imageNameRe.FindStringSubmatch(line); m != nil && img.Name == "" {
		img.Name = m[1]
	}
}

// parseTableLine tracks whether the scanner is inside the audit table
// and collects its rows. Returns the updated in-table state.
func parseTableLine(line string, table SideTable, inTable bool) bool {
	if strings.HasPrefix(line, "Num") && strings.Contains(line, "Comment") {
		return true
	}
	if strings.HasPrefix(line, "Finish:") {
		return false
	}
	if !inTable {
		return false
	}

	columns := columnSplitRe.Split(line, -1)
	if len(columns) == 0 || !tableRowRe.MatchString(strings.TrimSpace(columns[0])) {
		return true
	}

	entry := Entry{}
	name := ""
	if len(columns) > 1 {
		// names key the side table against filepath.Base lookups, so
		// stray whitespace would orphan the row
		name = strings.TrimSpace(columns[1])
	}
	if len(columns) > 2 {
		entry.Size = columns[2]
	}
	if len(columns) > 3 {
		entry.Offset, _ = strconv.ParseInt(strings.TrimSpace(columns[3]), 10, 64)
	}
	if len(columns) > 4 {
		entry.Comment = columns[4]
	}
	if name != "" {
		table[name] = entry
	}
	return true
}
