package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// File is one carved file recovered by Foremost. Hash and ArchivedPath
// stay empty until the hashing pass fills them in; everything else is
// immutable after ingestion.
type File struct {
	Model
	ImageID   uint   `gorm:"index;not null"`
	Name      string `gorm:"size:255;not null"`
	Type      string `gorm:"size:255"`
	Extension string `gorm:"size:10"`
	MIME      string `gorm:"size:50"`
	Size      int64
	// Offset is the byte offset of the carved data within the source
	// image, taken from the audit table.
	Offset       int64
	ArchivedPath string `gorm:"size:255"`
	Hash         string `gorm:"size:64;index"`
	// ExtensionMismatch is set when the name-derived extension and the
	// probe-reported one disagree after alias normalization.
	ExtensionMismatch bool
	// FromProbe is false for files whose metadata came from the local
	// fallback sniffer instead of exiftool.
	FromProbe       bool
	ForemostComment string `gorm:"size:255"`
	// MoreMetadata keeps every probe field that has no dedicated column.
	MoreMetadata datatypes.JSON
}

func (m *File) BeforeSave(tx *gorm.DB) error {
	m.Name = truncate(m.Name, 255)
	m.Type = truncate(m.Type, 255)
	m.Extension = truncate(m.Extension, 10)
	m.MIME = truncate(m.MIME, 50)
	m.ArchivedPath = truncate(m.ArchivedPath, 255)
	m.Hash = truncate(m.Hash, 64)
	m.ForemostComment = truncate(m.ForemostComment, 255)
	return nil
}

// HashIndexEntry is a minimal {file, hash, image} projection so duplicate
// lookups never have to load full File rows.
type HashIndexEntry struct {
	Model
	FileID  uint   `gorm:"uniqueIndex;not null"`
	Hash    string `gorm:"size:64;index;not null"`
	ImageID uint   `gorm:"index;not null"`
}

func (HashIndexEntry) ConflictColumns() []clause.Column {
	return []clause.Column{{Name: "file_id"}}
}
