package fallback

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/listings/internal/model"
)

func testStore(t *testing.T, capacity int64) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "fallback.json"), capacity)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := testStore(t, 1<<20)

	properties, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, properties)
}

func TestAppendAndLoad(t *testing.T) {
	s := testStore(t, 1<<20)

	err := s.Append(&model.Property{ID: "tmp-1", OwnerID: "u1", Title: "Loft", GalleryURLs: model.GalleryURLs{"a", "b"}})
	require.NoError(t, err)
	err = s.Append(&model.Property{ID: "tmp-2", OwnerID: "u2", Title: "Villa"})
	require.NoError(t, err)

	properties, err := s.Load()
	require.NoError(t, err)
	require.Len(t, properties, 2)
	assert.Equal(t, "tmp-1", properties[0].ID)
	assert.Equal(t, model.GalleryURLs{"a", "b"}, properties[0].GalleryURLs)
}

func TestUpdateReplacesMatchingID(t *testing.T) {
	s := testStore(t, 1<<20)
	require.NoError(t, s.Append(&model.Property{ID: "tmp-1", OwnerID: "u1", Title: "Loft"}))

	err := s.Update(&model.Property{ID: "tmp-1", OwnerID: "u1", Title: "Penthouse"})
	require.NoError(t, err)

	properties, err := s.Load()
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, "Penthouse", properties[0].Title)
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	s := testStore(t, 1<<20)
	require.NoError(t, s.Append(&model.Property{ID: "tmp-1", OwnerID: "u1", Title: "Loft"}))

	err := s.Update(&model.Property{ID: "tmp-9", Title: "Ghost"})
	require.NoError(t, err)

	properties, err := s.Load()
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, "Loft", properties[0].Title)
}

func TestDelete(t *testing.T) {
	s := testStore(t, 1<<20)
	require.NoError(t, s.Append(&model.Property{ID: "tmp-1", Title: "Loft"}))
	require.NoError(t, s.Append(&model.Property{ID: "tmp-2", Title: "Villa"}))

	err := s.Delete("tmp-1")
	require.NoError(t, err)

	properties, err := s.Load()
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, "tmp-2", properties[0].ID)
}

func TestCapacityExceeded(t *testing.T) {
	s := testStore(t, 64)
	assert.Equal(t, int64(64), s.Capacity())

	err := s.Append(&model.Property{
		ID:          "tmp-1",
		OwnerID:     "u1",
		Title:       "A record that serializes to well over sixty-four bytes of JSON",
		Description: "padding padding padding",
	})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// Nothing is written on a rejected save
	properties, loadErr := s.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, properties)
}

func TestSerializedSize(t *testing.T) {
	properties := []*model.Property{{ID: "tmp-1", Title: "Loft"}}

	size, err := SerializedSize(properties)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}
