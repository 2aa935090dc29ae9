package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Image is one ingested Foremost output directory, i.e. one scanned
// forensic image. Metadata comes from the audit.txt header lines.
type Image struct {
	Model
	Name               string `gorm:"size:255"`
	Size               int64
	ExiftoolVersion    string `gorm:"size:50"`
	ForemostVersion    string `gorm:"size:50"`
	ForemostInvocation string `gorm:"size:255"`
	OriginalOutputDir  string `gorm:"size:255"`
	ScanStart          *time.Time
	ScanEnd            *time.Time
	FilesTotal         int64
	// FilesPerExtension holds the per-extension file counts for the
	// report overview, e.g. {"jpg": 120, "pdf": 3}.
	FilesPerExtension datatypes.JSON

	Files []File `gorm:"constraint:OnDelete:CASCADE"`
}

func (m *Image) BeforeSave(tx *gorm.DB) error {
	m.Name = truncate(m.Name, 255)
	m.ExiftoolVersion = truncate(m.ExiftoolVersion, 50)
	m.ForemostVersion = truncate(m.ForemostVersion, 50)
	m.ForemostInvocation = truncate(m.ForemostInvocation, 255)
	m.OriginalOutputDir = truncate(m.OriginalOutputDir, 255)
	return nil
}
