package models

import (
	"gorm.io/gorm/clause"
)

// DuplicateGroup is the set of all files, across every ingested image,
// that share one content hash. The unique key on Hash guarantees at most
// one group per hash system-wide.
type DuplicateGroup struct {
	Model
	Hash string `gorm:"size:64;unique;not null"`
}

func (DuplicateGroup) ConflictColumns() []clause.Column {
	return []clause.Column{{Name: "hash"}}
}

// GroupImageLink associates a duplicate group with every image that
// contributes at least one member. Linking an already linked pair is a
// no-op through the unique pair index.
type GroupImageLink struct {
	Model
	GroupID uint `gorm:"uniqueIndex:idx_group_image_links_group_image;not null"`
	ImageID uint `gorm:"uniqueIndex:idx_group_image_links_group_image;not null"`
}

func (GroupImageLink) ConflictColumns() []clause.Column {
	return []clause.Column{{Name: "group_id"}, {Name: "image_id"}}
}

// DuplicateMembership ties one file to its duplicate group. The unique
// index on FileID enforces that a file belongs to at most one group.
type DuplicateMembership struct {
	Model
	GroupID uint `gorm:"index;not null"`
	FileID  uint `gorm:"uniqueIndex;not null"`
}

func (DuplicateMembership) ConflictColumns() []clause.Column {
	return []clause.Column{{Name: "file_id"}}
}
