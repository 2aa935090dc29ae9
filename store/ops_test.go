package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluefinx/foremost-parser/store/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	return st
}

func insertTestImage(t *testing.T, st *Store, name string) *models.Image {
	t.Helper()
	img := &models.Image{Name: name}
	require.NoError(t, st.InsertImage(img))
	return img
}

func TestInsertFilesWritesHashIndex(t *testing.T) {
	st := openTestStore(t)
	img := insertTestImage(t, st, "a.dd")

	files := []*models.File{
		{ImageID: img.ID, Name: "00000001.jpg", Hash: "aa"},
		{ImageID: img.ID, Name: "00000002.jpg", Hash: "aa"},
		{ImageID: img.ID, Name: "00000003.png"}, // no hash, no index entry
	}
	require.NoError(t, st.InsertFiles(files))

	entries, err := st.ReadHashIndexForImage(img.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "aa", e.Hash)
		assert.Equal(t, img.ID, e.ImageID)
	}

	all, err := st.ReadAllHashIndex()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFilesPerExtension(t *testing.T) {
	st := openTestStore(t)
	img := insertTestImage(t, st, "a.dd")

	require.NoError(t, st.InsertFiles([]*models.File{
		{ImageID: img.ID, Name: "1.jpg", Extension: "jpg"},
		{ImageID: img.ID, Name: "2.jpg", Extension: "jpg"},
		{ImageID: img.ID, Name: "3.pdf", Extension: "pdf"},
	}))

	counts, err := st.FilesPerExtension(img.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"jpg": 2, "pdf": 1}, counts)

	require.NoError(t, st.UpdateImageFilesPerExtension(img.ID, counts))
	got, err := st.ReadImage(img.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jpg":2,"pdf":1}`, string(got.FilesPerExtension))
}

func TestGroupBookkeepingIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	img := insertTestImage(t, st, "a.dd")

	exists, linked, err := st.CheckGroupForImage("h1", img.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.False(t, linked)

	// run everything twice, second run must change nothing
	for i := 0; i < 2; i++ {
		require.NoError(t, st.InsertGroup("h1"))
		require.NoError(t, st.LinkGroupToImage("h1", img.ID))
		require.NoError(t, st.InsertMembership("h1", 1))
		require.NoError(t, st.InsertMembership("h1", 2))
	}

	exists, linked, err = st.CheckGroupForImage("h1", img.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, linked)

	var groups, links, members int64
	st.DB.Model(&models.DuplicateGroup{}).Count(&groups)
	st.DB.Model(&models.GroupImageLink{}).Count(&links)
	st.DB.Model(&models.DuplicateMembership{}).Count(&members)
	assert.EqualValues(t, 1, groups)
	assert.EqualValues(t, 1, links)
	assert.EqualValues(t, 2, members)
}

func TestLinkGroupToImageMissingGroup(t *testing.T) {
	st := openTestStore(t)
	img := insertTestImage(t, st, "a.dd")
	assert.Error(t, st.LinkGroupToImage("nope", img.ID))
	assert.Error(t, st.InsertMembership("nope", 1))
}

func TestDeleteImageCascades(t *testing.T) {
	st := openTestStore(t)
	imgA := insertTestImage(t, st, "a.dd")
	imgB := insertTestImage(t, st, "b.dd")

	filesA := []*models.File{
		{ImageID: imgA.ID, Name: "1.jpg", Hash: "h1"},
		{ImageID: imgA.ID, Name: "2.jpg", Hash: "h1"},
	}
	filesB := []*models.File{
		{ImageID: imgB.ID, Name: "3.jpg", Hash: "h1"},
		{ImageID: imgB.ID, Name: "4.jpg", Hash: "h2"},
		{ImageID: imgB.ID, Name: "5.jpg", Hash: "h2"},
	}
	require.NoError(t, st.InsertFiles(filesA))
	require.NoError(t, st.InsertFiles(filesB))

	require.NoError(t, st.InsertGroup("h1"))
	require.NoError(t, st.LinkGroupToImage("h1", imgA.ID))
	require.NoError(t, st.LinkGroupToImage("h1", imgB.ID))
	for _, f := range filesA {
		require.NoError(t, st.InsertMembership("h1", f.ID))
	}
	require.NoError(t, st.InsertMembership("h1", filesB[0].ID))
	require.NoError(t, st.InsertGroup("h2"))
	require.NoError(t, st.LinkGroupToImage("h2", imgB.ID))
	require.NoError(t, st.InsertMembership("h2", filesB[1].ID))
	require.NoError(t, st.InsertMembership("h2", filesB[2].ID))

	require.NoError(t, st.DeleteImage(imgB.ID))

	// image B and everything below it is gone
	_, err := st.ReadImage(imgB.ID)
	assert.Error(t, err)
	left, err := st.ReadFilesForImage(imgB.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	idx, err := st.ReadAllHashIndex()
	require.NoError(t, err)
	assert.Len(t, idx, 2)

	// group h1 survives through image A's members, h2 is orphaned
	exists, linked, err := st.CheckGroupForImage("h1", imgA.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, linked)
	exists, _, err = st.CheckGroupForImage("h2", imgB.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	var members int64
	st.DB.Model(&models.DuplicateMembership{}).Count(&members)
	assert.EqualValues(t, 2, members)
}

func TestFileStringTruncation(t *testing.T) {
	st := openTestStore(t)
	img := insertTestImage(t, st, "a.dd")

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	f := &models.File{ImageID: img.ID, Name: string(long), Type: string(long)}
	require.NoError(t, st.InsertFiles([]*models.File{f}))
	assert.Len(t, f.Name, 255)
	assert.Len(t, f.Type, 255)
}
