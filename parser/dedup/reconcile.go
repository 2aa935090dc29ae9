package dedup

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bluefinx/foremost-parser/store"
)

// Reconciler materializes duplicate groups in the store. Reconciliation
// is idempotent: rerunning it for the same hashes and files changes
// nothing after the first successful run.
type Reconciler struct {
	Store *store.Store
}

// Reconcile groups the hash index of imageID (or the full index across
// all images when crossImage is set) and persists one duplicate group
// per shared hash, one link per contributing image and one membership
// per file. Each hash commits as its own transaction.
func (r *Reconciler) Reconcile(imageID uint, crossImage bool) error {
	var (
		entries []store.HashEntry
		err     error
	)
	if crossImage {
		entries, err = r.Store.ReadAllHashIndex()
	} else {
		entries, err = r.Store.ReadHashIndexForImage(imageID)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.Info().Msg("no file hashes found, skipping duplicate detection")
		return nil
	}

	groups := GroupByHash(entries)
	members := 0
	for hash, files := range groups {
		if err := r.reconcileHash(hash, files); err != nil {
			return errors.Wrapf(err, "reconcile duplicates for hash %s", hash)
		}
		members += len(files)
	}
	log.Info().Int("groups", len(groups)).Int("files", members).
		Bool("cross_image", crossImage).Msg("duplicate detection finished")
	return nil
}

func (r *Reconciler) reconcileHash(hash string, files []store.HashEntry) error {
	return r.Store.WithTx(func(tx *store.Store) error {
		images := map[uint]bool{}
		for _, f := range files {
			images[f.ImageID] = true
		}
		for imageID := range images {
			exists, linked, err := tx.CheckGroupForImage(hash, imageID)
			if err != nil {
				return err
			}
			if !exists {
				// a racing run may have created the group after the
				// check; the unique key on hash makes this a no-op then
				if err := tx.InsertGroup(hash); err != nil {
					return err
				}
			}
			if !linked {
				if err := tx.LinkGroupToImage(hash, imageID); err != nil {
					return err
				}
			}
		}
		for _, f := range files {
			if err := tx.InsertMembership(hash, f.FileID); err != nil {
				return err
			}
		}
		return nil
	})
}
