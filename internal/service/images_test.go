package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarukhin/tasknote-api/internal/model"
)

func TestFingerprint(t *testing.T) {
	a := fingerprint([]byte("image-bytes-a"))
	b := fingerprint([]byte("image-bytes-b"))

	assert.Equal(t, a, fingerprint([]byte("image-bytes-a")), "same bytes must fingerprint identically")
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestDiffImages(t *testing.T) {
	imgA := model.Image{ID: "1", Hash: "hash-a"}
	imgB := model.Image{ID: "2", Hash: "hash-b"}
	imgC := model.Image{ID: "3", Hash: "hash-c"}
	// same bytes re-uploaded: different id, same hash
	imgA2 := model.Image{ID: "9", Hash: "hash-a"}

	tests := []struct {
		name       string
		prev       []model.Image
		next       []model.Image
		wantDelete []string
	}{
		{
			name:       "no change",
			prev:       []model.Image{imgA, imgB},
			next:       []model.Image{imgA, imgB},
			wantDelete: nil,
		},
		{
			name:       "all removed",
			prev:       []model.Image{imgA, imgB},
			next:       nil,
			wantDelete: []string{"hash-a", "hash-b"},
		},
		{
			name:       "one swapped",
			prev:       []model.Image{imgA, imgB},
			next:       []model.Image{imgB, imgC},
			wantDelete: []string{"hash-a"},
		},
		{
			name:       "addition only",
			prev:       []model.Image{imgA},
			next:       []model.Image{imgA, imgB, imgC},
			wantDelete: nil,
		},
		{
			name:       "compared by hash not id",
			prev:       []model.Image{imgA},
			next:       []model.Image{imgA2},
			wantDelete: nil,
		},
		{
			name:       "both empty",
			prev:       nil,
			next:       nil,
			wantDelete: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toDelete := diffImages(tt.prev, tt.next)

			var hashes []string
			for _, img := range toDelete {
				hashes = append(hashes, img.Hash)
			}
			assert.ElementsMatch(t, tt.wantDelete, hashes)
		})
	}
}

func TestResolveAttachments_DedupWithinRequest(t *testing.T) {
	svc, store, blobStore := newTestService(t)

	detail, err := svc.Create(context.Background(), identA, validRequest(), []model.Attachment{
		att("a.jpg", "same-bytes"),
		att("a-copy.jpg", "same-bytes"),
		att("b.jpg", "other-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, blobStore.UploadCount, "identical bytes must upload once")
	assert.Len(t, store.AllImages(), 2)
	assert.Len(t, detail.ImageURLs, 2)
	assert.Len(t, detail.ImageIDs, 2)
}

func TestResolveAttachments_DedupAcrossRequests(t *testing.T) {
	svc, store, blobStore := newTestService(t)

	first, err := svc.Create(context.Background(), identA, validRequest(), []model.Attachment{
		att("a.jpg", "shared-bytes"),
	})
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), identA, validRequest(), []model.Attachment{
		att("a-again.jpg", "shared-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, blobStore.UploadCount, "one blob object per distinct byte sequence")
	assert.Equal(t, 1, blobStore.ObjectCount())
	assert.Len(t, store.AllImages(), 1, "one registry record per fingerprint")
	assert.Equal(t, first.ImageIDs, second.ImageIDs, "both tasks share the registry entry")
}

func TestResolveAttachments_EmptyAttachmentDiscarded(t *testing.T) {
	svc, store, blobStore := newTestService(t)

	detail, err := svc.Create(context.Background(), identA, validRequest(), []model.Attachment{
		{Filename: "empty.jpg", ContentType: "image/jpeg", Data: nil},
		att("real.jpg", "real-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, blobStore.UploadCount)
	assert.Len(t, store.AllImages(), 1)
	assert.Len(t, detail.ImageURLs, 1)
}

func TestResolveAttachments_UploadFailureAbortsMutation(t *testing.T) {
	svc, store, blobStore := newTestService(t)
	blobStore.UploadErr = errUploadBroken

	_, err := svc.Create(context.Background(), identA, validRequest(), []model.Attachment{
		att("a.jpg", "bytes"),
	})
	require.Error(t, err)

	assert.Equal(t, 0, store.TaskCount(), "no partial task without its images")
	assert.Empty(t, store.AllImages())
	assert.Empty(t, store.AllLogs())
}

func TestResolveAttachments_AuditsNewImagesOnly(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.Create(context.Background(), identA, validRequest(), []model.Attachment{
		att("a.jpg", "bytes-a"),
	})
	require.NoError(t, err)

	// resubmitting the same bytes matches the registry, no new audit entry
	_, err = svc.Create(context.Background(), identA, validRequest(), []model.Attachment{
		att("a.jpg", "bytes-a"),
	})
	require.NoError(t, err)

	imageLogs, err := store.Logs().ListByEntity(context.Background(), model.EntityImage)
	require.NoError(t, err)
	require.Len(t, imageLogs, 1)
	assert.Equal(t, model.LogInsert, imageLogs[0].Type)
	assert.Nil(t, imageLogs[0].Previous)
	assert.NotNil(t, imageLogs[0].Current)
}
