package store

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bluefinx/foremost-parser/store/models"
)

// HashEntry is the projection handed to duplicate grouping. ImageID
// rides along so cross-image grouping can link every contributing image.
type HashEntry struct {
	FileID  uint
	Hash    string
	ImageID uint
}

// WithTx runs fn against a transactional view of the store. A non-nil
// error from fn rolls the whole transaction back.
func (s *Store) WithTx(fn func(tx *Store) error) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) InsertImage(img *models.Image) error {
	return errors.Wrap(s.DB.Create(img).Error, "insert image")
}

func (s *Store) ReadImage(id uint) (*models.Image, error) {
	var img models.Image
	if err := s.DB.First(&img, id).Error; err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	return &img, nil
}

func (s *Store) UpdateImageFilesPerExtension(imageID uint, counts map[string]int64) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return errors.Wrap(err, "encode extension counts")
	}
	err = s.DB.Model(&models.Image{}).Where("id = ?", imageID).
		Update("files_per_extension", raw).Error
	return errors.Wrap(err, "update extension counts")
}

// InsertFiles persists one subdirectory's file records plus their hash
// index entries in a single transaction, so a mid-batch failure leaves
// nothing behind.
func (s *Store) InsertFiles(files []*models.File) error {
	if len(files) == 0 {
		return nil
	}
	return s.WithTx(func(tx *Store) error {
		if err := tx.DB.Create(files).Error; err != nil {
			return errors.Wrap(err, "insert files")
		}
		var entries []*models.HashIndexEntry
		for _, f := range files {
			if f.Hash == "" {
				continue
			}
			entries = append(entries, &models.HashIndexEntry{
				FileID:  f.ID,
				Hash:    f.Hash,
				ImageID: f.ImageID,
			})
		}
		if len(entries) == 0 {
			return nil
		}
		err := tx.DB.Clauses(clause.OnConflict{
			Columns:   models.HashIndexEntry{}.ConflictColumns(),
			DoNothing: true,
		}).Create(entries).Error
		return errors.Wrap(err, "insert hash index entries")
	})
}

func (s *Store) ReadFilesForImage(imageID uint) ([]models.File, error) {
	var files []models.File
	err := s.DB.Where("image_id = ?", imageID).Find(&files).Error
	return files, errors.Wrap(err, "read files for image")
}

func (s *Store) ReadHashIndexForImage(imageID uint) ([]HashEntry, error) {
	var out []HashEntry
	err := s.DB.Model(&models.HashIndexEntry{}).
		Where("image_id = ?", imageID).
		Select("file_id", "hash", "image_id").Scan(&out).Error
	return out, errors.Wrap(err, "read hash index for image")
}

func (s *Store) ReadAllHashIndex() ([]HashEntry, error) {
	var out []HashEntry
	err := s.DB.Model(&models.HashIndexEntry{}).
		Select("file_id", "hash", "image_id").Scan(&out).Error
	return out, errors.Wrap(err, "read hash index")
}

// FilesPerExtension counts an image's files grouped by extension.
func (s *Store) FilesPerExtension(imageID uint) (map[string]int64, error) {
	var rows []struct {
		Extension string
		Count     int64
	}
	err := s.DB.Model(&models.File{}).
		Where("image_id = ?", imageID).
		Select("extension", "count(id) as count").
		Group("extension").Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count files per extension")
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Extension] = r.Count
	}
	return counts, nil
}

// CheckGroupForImage reports whether a duplicate group for the hash
// exists at all, and whether it is already linked to the image.
func (s *Store) CheckGroupForImage(hash string, imageID uint) (exists, linked bool, err error) {
	var group models.DuplicateGroup
	err = s.DB.Where(models.DuplicateGroup{Hash: hash}).Limit(1).Find(&group).Error
	if err != nil {
		return false, false, errors.Wrap(err, "query duplicate group")
	}
	if group.ID == 0 {
		return false, false, nil
	}
	var n int64
	err = s.DB.Model(&models.GroupImageLink{}).
		Where("group_id = ? AND image_id = ?", group.ID, imageID).
		Count(&n).Error
	if err != nil {
		return true, false, errors.Wrap(err, "query group image link")
	}
	return true, n > 0, nil
}

// InsertGroup creates the duplicate group for a hash. A concurrent or
// earlier insert of the same hash is not an error: the unique key on
// hash turns the second insert into a no-op.
func (s *Store) InsertGroup(hash string) error {
	group := &models.DuplicateGroup{Hash: hash}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   group.ConflictColumns(),
		DoNothing: true,
	}).Create(group).Error
	return errors.Wrap(err, "insert duplicate group")
}

func (s *Store) readGroup(hash string) (*models.DuplicateGroup, error) {
	var group models.DuplicateGroup
	err := s.DB.Where(models.DuplicateGroup{Hash: hash}).Limit(1).Find(&group).Error
	if err != nil {
		return nil, errors.Wrap(err, "query duplicate group")
	}
	if group.ID == 0 {
		return nil, errors.Errorf("duplicate group for hash %s not found", hash)
	}
	return &group, nil
}

func (s *Store) LinkGroupToImage(hash string, imageID uint) error {
	group, err := s.readGroup(hash)
	if err != nil {
		return err
	}
	link := &models.GroupImageLink{GroupID: group.ID, ImageID: imageID}
	err = s.DB.Clauses(clause.OnConflict{
		Columns:   link.ConflictColumns(),
		DoNothing: true,
	}).Create(link).Error
	return errors.Wrap(err, "link group to image")
}

// InsertMembership records that a file belongs to the group of its hash.
// A file already in a group keeps its existing membership.
func (s *Store) InsertMembership(hash string, fileID uint) error {
	group, err := s.readGroup(hash)
	if err != nil {
		return err
	}
	member := &models.DuplicateMembership{GroupID: group.ID, FileID: fileID}
	err = s.DB.Clauses(clause.OnConflict{
		Columns:   member.ConflictColumns(),
		DoNothing: true,
	}).Create(member).Error
	return errors.Wrap(err, "insert duplicate membership")
}

// ReadMembershipsForImage returns the memberships of an image's files,
// keyed by file id.
func (s *Store) ReadMembershipsForImage(imageID uint) (map[uint]uint, error) {
	var members []models.DuplicateMembership
	err := s.DB.
		Where("file_id IN (?)", s.DB.Model(&models.File{}).
			Where("image_id = ?", imageID).Select("id")).
		Find(&members).Error
	if err != nil {
		return nil, errors.Wrap(err, "read memberships for image")
	}
	out := make(map[uint]uint, len(members))
	for _, m := range members {
		out[m.FileID] = m.GroupID
	}
	return out, nil
}

// ReadImagesForGroup returns the ids of all images linked to a group.
func (s *Store) ReadImagesForGroup(groupID uint) ([]uint, error) {
	var ids []uint
	err := s.DB.Model(&models.GroupImageLink{}).
		Where("group_id = ?", groupID).
		Pluck("image_id", &ids).Error
	return ids, errors.Wrap(err, "read images for group")
}

// DeleteImage removes an image and everything hanging off it:
// memberships of its files, its hash index entries, its file rows, its
// group links, then any group left without members, and finally the
// image row. Ownership is walked explicitly rather than through ORM
// cascades.
func (s *Store) DeleteImage(imageID uint) error {
	return s.WithTx(func(tx *Store) error {
		fileIDs := tx.DB.Model(&models.File{}).
			Where("image_id = ?", imageID).Select("id")
		if err := tx.DB.Where("file_id IN (?)", fileIDs).
			Delete(&models.DuplicateMembership{}).Error; err != nil {
			return errors.Wrap(err, "delete memberships")
		}
		if err := tx.DB.Where("image_id = ?", imageID).
			Delete(&models.HashIndexEntry{}).Error; err != nil {
			return errors.Wrap(err, "delete hash index entries")
		}
		if err := tx.DB.Where("image_id = ?", imageID).
			Delete(&models.File{}).Error; err != nil {
			return errors.Wrap(err, "delete files")
		}
		if err := tx.DB.Where("image_id = ?", imageID).
			Delete(&models.GroupImageLink{}).Error; err != nil {
			return errors.Wrap(err, "delete group image links")
		}
		orphans := tx.DB.Model(&models.DuplicateMembership{}).Select("group_id")
		if err := tx.DB.Where("id NOT IN (?)", orphans).
			Delete(&models.DuplicateGroup{}).Error; err != nil {
			return errors.Wrap(err, "delete orphaned groups")
		}
		err := tx.DB.Delete(&models.Image{}, imageID).Error
		return errors.Wrap(err, "delete image")
	})
}
