package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStubExiftool installs a shell script that mimics exiftool's JSON
// output mode. Like the real binary, it renders FileSize through print
// conversion ("13 kB") unless -n is on the command line.
func writeStubExiftool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub binary is a shell script")
	}
	bin := filepath.Join(t.TempDir(), "exiftool")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin
}

const stubExiftool = `#!/bin/sh
size='"13 kB"'
for arg in "$@"; do
	if [ "$arg" = "-n" ]; then
		size=13103
	fi
done
printf '[{"SourceFile":"./00000001.jpg","File:FileName":"00000001.jpg","File:FileType":"JPEG","File:FileSize":%s}]\n' "$size"
`

func TestExifToolNumericFileSize(t *testing.T) {
	e := &ExifTool{Binary: writeStubExiftool(t, stubExiftool)}

	res := e.Probe(context.Background(), []string{"./00000001.jpg"})
	require.Equal(t, StatusOK, res.Status, "%v", res.Cause)
	require.Contains(t, res.Files, "00000001.jpg")

	m := res.Files["00000001.jpg"]
	assert.Equal(t, "JPEG", m.String(KeyFileType))
	// print conversion would yield "13 kB" here, which decodes to 0
	assert.Equal(t, int64(13103), m.Int64(KeyFileSize))
}

func TestExifToolBatchFailure(t *testing.T) {
	e := &ExifTool{Binary: writeStubExiftool(t, "#!/bin/sh\necho 'Error: bad file' >&2\nexit 1\n")}

	res := e.Probe(context.Background(), []string{"./broken.jpg"})
	assert.Equal(t, StatusBatchFailure, res.Status)
	require.Error(t, res.Cause)
	assert.Contains(t, res.Cause.Error(), "bad file")
}

func TestExifToolVersion(t *testing.T) {
	e := &ExifTool{Binary: writeStubExiftool(t, "#!/bin/sh\necho 12.40\n")}

	v, err := e.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12.40", v)
}
