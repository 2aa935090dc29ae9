package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bluefinx/foremost-parser/store"
)

func TestGroupByHashDropsSingletons(t *testing.T) {
	groups := GroupByHash([]store.HashEntry{
		{FileID: 1, Hash: "h", ImageID: 1},
		{FileID: 2, Hash: "h", ImageID: 1},
		{FileID: 3, Hash: "k", ImageID: 1},
	})
	assert.Len(t, groups, 1)
	assert.Len(t, groups["h"], 2)
	assert.NotContains(t, groups, "k")
}

func TestGroupByHashIgnoresEmptyHashes(t *testing.T) {
	groups := GroupByHash([]store.HashEntry{
		{FileID: 1, Hash: ""},
		{FileID: 2, Hash: ""},
	})
	assert.Empty(t, groups)
}

func TestGroupByHashEmptyInput(t *testing.T) {
	assert.Empty(t, GroupByHash(nil))
}

func TestGroupByHashCrossImage(t *testing.T) {
	groups := GroupByHash([]store.HashEntry{
		{FileID: 1, Hash: "h", ImageID: 1},
		{FileID: 4, Hash: "h", ImageID: 2},
	})
	assert.Len(t, groups["h"], 2)
	assert.Equal(t, uint(1), groups["h"][0].ImageID)
	assert.Equal(t, uint(2), groups["h"][1].ImageID)
}
