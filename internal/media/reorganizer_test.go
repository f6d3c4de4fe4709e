package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickworks/listings/internal/model"
	"github.com/brickworks/listings/internal/storage"
)

const tempPrefix = "uploads/tmp/"

// fakeAssetStore keeps blobs in memory, addressable as "mem://<name>".
type fakeAssetStore struct {
	mu          sync.Mutex
	blobs       map[string][]byte
	uploads     int
	failFetch   map[string]bool
	failUpload  bool
	failDelete  bool
	deleteCalls []string
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{
		blobs:     map[string][]byte{},
		failFetch: map[string]bool{},
	}
}

func (f *fakeAssetStore) put(name string, data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	url := "mem://" + name
	f.blobs[url] = data
	return url
}

func (f *fakeAssetStore) Upload(_ context.Context, name string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return "", errors.New("upload refused")
	}
	url := "mem://" + name
	f.blobs[url] = data
	f.uploads++
	return url, nil
}

func (f *fakeAssetStore) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch[url] {
		return nil, fmt.Errorf("%w: %s", storage.ErrAssetUnavailable, url)
	}
	data, ok := f.blobs[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrAssetUnavailable, url)
	}
	return data, nil
}

func (f *fakeAssetStore) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, url)
	if f.failDelete {
		return errors.New("delete refused")
	}
	delete(f.blobs, url)
	return nil
}

func TestReorganizeMigratesTemporaryAssets(t *testing.T) {
	assets := newFakeAssetStore()
	urlA := assets.put("uploads/tmp/sess1/gallery-A", []byte("photo-a"))
	urlB := assets.put("uploads/tmp/sess1/gallery-B", []byte("photo-b"))
	r := NewReorganizer(assets, tempPrefix)

	mappings, err := r.Reorganize(context.Background(), "42", []model.MediaRef{
		{URL: urlA, Role: model.RoleGallery},
		{URL: urlB, Role: model.RoleGallery},
	})
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	// Input order preserved
	assert.Equal(t, urlA, mappings[0].OldURL)
	assert.Equal(t, urlB, mappings[1].OldURL)
	for _, m := range mappings {
		assert.Contains(t, m.NewURL, "records/42/gallery-")
	}

	// Bytes moved, temporaries cleaned up
	data, err := assets.Fetch(context.Background(), mappings[0].NewURL)
	require.NoError(t, err)
	assert.Equal(t, []byte("photo-a"), data)
	_, err = assets.Fetch(context.Background(), urlA)
	assert.ErrorIs(t, err, storage.ErrAssetUnavailable)
}

func TestReorganizeSkipsPermanentReferences(t *testing.T) {
	assets := newFakeAssetStore()
	banner := assets.put("records/42/banner-1", []byte("banner"))
	r := NewReorganizer(assets, tempPrefix)

	mappings, err := r.Reorganize(context.Background(), "42", []model.MediaRef{
		{URL: banner, Role: model.RoleBanner},
	})
	require.NoError(t, err)
	assert.Empty(t, mappings)
	assert.Zero(t, assets.uploads)
}

func TestReorganizeIdempotent(t *testing.T) {
	assets := newFakeAssetStore()
	url := assets.put("uploads/tmp/sess1/banner-X", []byte("banner"))
	r := NewReorganizer(assets, tempPrefix)
	refs := []model.MediaRef{{URL: url, Role: model.RoleBanner}}

	first, err := r.Reorganize(context.Background(), "7", refs)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The temporary URL no longer resolves: the second run must not create
	// a second permanent copy.
	second, err := r.Reorganize(context.Background(), "7", refs)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, assets.uploads)
}

func TestReorganizePartialFailure(t *testing.T) {
	assets := newFakeAssetStore()
	urlA := assets.put("uploads/tmp/sess1/gallery-A", []byte("a"))
	urlB := assets.put("uploads/tmp/sess1/gallery-B", []byte("b"))
	urlC := assets.put("uploads/tmp/sess1/gallery-C", []byte("c"))
	assets.failFetch[urlB] = true
	r := NewReorganizer(assets, tempPrefix)

	mappings, err := r.Reorganize(context.Background(), "42", []model.MediaRef{
		{URL: urlA, Role: model.RoleGallery},
		{URL: urlB, Role: model.RoleGallery},
		{URL: urlC, Role: model.RoleGallery},
	})
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, urlA, mappings[0].OldURL)
	assert.Equal(t, urlC, mappings[1].OldURL)
}

func TestReorganizeUploadFailureSkipsAsset(t *testing.T) {
	assets := newFakeAssetStore()
	url := assets.put("uploads/tmp/sess1/banner-X", []byte("banner"))
	assets.failUpload = true
	r := NewReorganizer(assets, tempPrefix)

	mappings, err := r.Reorganize(context.Background(), "42", []model.MediaRef{
		{URL: url, Role: model.RoleBanner},
	})
	require.NoError(t, err)
	assert.Empty(t, mappings)

	// Failed upload must not consume the temporary asset
	_, err = assets.Fetch(context.Background(), url)
	assert.NoError(t, err)
}

func TestReorganizeDeleteFailureSwallowed(t *testing.T) {
	assets := newFakeAssetStore()
	url := assets.put("uploads/tmp/sess1/floorplan-X", []byte("plan"))
	assets.failDelete = true
	r := NewReorganizer(assets, tempPrefix)

	mappings, err := r.Reorganize(context.Background(), "42", []model.MediaRef{
		{URL: url, Role: model.RoleFloorPlan},
	})
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Contains(t, mappings[0].NewURL, "records/42/floorplan-")
	assert.Equal(t, []string{url}, assets.deleteCalls)
}

func TestReorganizeSharedURLMigratedOnce(t *testing.T) {
	assets := newFakeAssetStore()
	url := assets.put("uploads/tmp/sess1/photo-X", []byte("photo"))
	r := NewReorganizer(assets, tempPrefix)

	// The same upload serves as banner and as first gallery entry.
	mappings, err := r.Reorganize(context.Background(), "42", []model.MediaRef{
		{URL: url, Role: model.RoleBanner},
		{URL: url, Role: model.RoleGallery},
	})
	require.NoError(t, err)

	// One permanent copy, one mapping entry; the first occurrence names it.
	require.Len(t, mappings, 1)
	assert.Equal(t, 1, assets.uploads)
	assert.Contains(t, mappings[0].NewURL, "records/42/banner-")

	// The single entry rewrites both fields to the same permanent URL.
	p := &model.Property{BannerImageURL: url, GalleryURLs: model.GalleryURLs{url}}
	p.RewriteMediaRefs(AsMap(mappings))
	assert.Equal(t, mappings[0].NewURL, p.BannerImageURL)
	assert.Equal(t, mappings[0].NewURL, p.GalleryURLs[0])
}

func TestReorganizeOverlappingCallsSameRecord(t *testing.T) {
	assets := newFakeAssetStore()
	url := assets.put("uploads/tmp/sess1/banner-X", []byte("banner"))
	r := NewReorganizer(assets, tempPrefix)
	refs := []model.MediaRef{{URL: url, Role: model.RoleBanner}}

	var wg sync.WaitGroup
	total := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mappings, err := r.Reorganize(context.Background(), "42", refs)
			assert.NoError(t, err)
			total[i] = len(mappings)
		}(i)
	}
	wg.Wait()

	// Serialized per record: exactly one call wins, one permanent copy.
	assert.Equal(t, 1, total[0]+total[1])
	assert.Equal(t, 1, assets.uploads)
}

func TestIsTemporary(t *testing.T) {
	r := NewReorganizer(newFakeAssetStore(), tempPrefix)

	assert.True(t, r.IsTemporary("mem://uploads/tmp/sess1/gallery-A"))
	assert.False(t, r.IsTemporary("mem://records/42/gallery-1"))
	assert.False(t, r.IsTemporary(""))
}

func TestPermanentName(t *testing.T) {
	name := PermanentName("42", model.RoleGallery)
	assert.True(t, strings.HasPrefix(name, "records/42/gallery-"))
}
