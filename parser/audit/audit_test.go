package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAudit = `Foremost version 1.5.7 by Jesse Kornblum, Kris Kendall, and Nick Mikus
Audit File

Foremost started at Fri Nov 29 16:24:35 2024
Invocation: foremost -i example.dd -o /output
Output directory: /output
Configuration file: /etc/foremost.conf
------------------------------------------------------------------
File: example.dd
Start: Fri Nov 29 16:24:35 2024
Length: 5 GB (5762727936 bytes)

Num	 Name (bs=512)	       Size	 File Offset	 Comment

0:	00000001.jpg 	       97 KB 	        8192 	 (JFIF)
1:	00000245.png 	        4 KB 	      125440 	  (1024 x 768)
2:	00000253.htm 	        2 KB 	      129536
Finish: Fri Nov 29 16:25:57 2024

3 FILES EXTRACTED

jpg:= 1
png:= 1
htm:= 1
------------------------------------------------------------------

Foremost finished at Fri Nov 29 16:25:57 2024
`

func writeAudit(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

func TestParseHeader(t *testing.T) {
	img, table, err := Parse(writeAudit(t, sampleAudit))
	require.NoError(t, err)

	assert.Equal(t, "example.dd", img.Name)
	assert.EqualValues(t, 5762727936, img.Size)
	assert.Equal(t, "1.5.7", img.ForemostVersion)
	assert.Equal(t, "foremost -i example.dd -o /output", img.ForemostInvocation)
	assert.Equal(t, "/output", img.OriginalOutputDir)
	assert.EqualValues(t, 3, img.FilesTotal)
	require.NotNil(t, img.ScanStart)
	require.NotNil(t, img.ScanEnd)
	assert.Equal(t, 2024, img.ScanStart.Year())
	assert.True(t, img.ScanEnd.After(*img.ScanStart))
	assert.Len(t, table, 3)
}

func TestParseTableRows(t *testing.T) {
	_, table, err := Parse(writeAudit(t, sampleAudit))
	require.NoError(t, err)

	jpg := table["00000001.jpg"]
	assert.Equal(t, "97 KB", jpg.Size)
	assert.EqualValues(t, 8192, jpg.Offset)
	assert.Equal(t, "(JFIF)", jpg.Comment)

	png := table["00000245.png"]
	assert.EqualValues(t, 125440, png.Offset)
	assert.Equal(t, "(1024 x 768)", png.Comment)

	// row without comment
	htm := table["00000253.htm"]
	assert.EqualValues(t, 129536, htm.Offset)
	assert.Empty(t, htm.Comment)
}

func TestParseTableRowTrimsName(t *testing.T) {
	table := SideTable{}
	// a single trailing space at end of line is not a column delimiter
	// and used to stick to the name
	assert.True(t, parseTableLine("3:\t00000301.gif ", table, true))
	require.Contains(t, table, "00000301.gif")
}

func TestParseMissingAuditFile(t *testing.T) {
	_, _, err := Parse(t.TempDir())
	assert.Error(t, err)
}

func TestParseAuditWithoutImageName(t *testing.T) {
	_, _, err := Parse(writeAudit(t, "Audit File\nno image here\n"))
	assert.Error(t, err)
}
