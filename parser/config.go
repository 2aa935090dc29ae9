package parser

import (
	"path/filepath"
)

// Conf carries the whole configuration, filled from CLI flags and
// environment variables.
type Conf struct {
	// InputPath is the Foremost output directory to ingest.
	InputPath string `env:"INPUT_PATH" yaml:"input_path"`
	// OutputPath receives archived copies, the report and the default
	// database file.
	OutputPath string `env:"OUTPUT_PATH" yaml:"output_path"`
	// DBPath overrides the database location; empty means
	// <OutputPath>/foremost-parser.sqlite.
	DBPath string `env:"DB_PATH" yaml:"db_path"`
	// CopyImages enables archiving of image-format files by extension.
	CopyImages bool `env:"IMAGES" yaml:"copy_images"`
	// CrossImage widens duplicate detection to all previously ingested
	// images.
	CrossImage bool `env:"CROSS_IMAGE" yaml:"cross_image"`
	// ExiftoolBin is the probe binary.
	ExiftoolBin string `env:"EXIFTOOL_BIN" yaml:"exiftool_bin"`
	// BatchSize bounds one probe invocation.
	BatchSize int `env:"BATCH_SIZE" yaml:"batch_size"`
}

func (c *Conf) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.OutputPath, "foremost-parser.sqlite")
}
