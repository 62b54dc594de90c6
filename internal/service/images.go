package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"

	"github.com/dmarukhin/tasknote-api/internal/auth"
	"github.com/dmarukhin/tasknote-api/internal/model"
	"github.com/dmarukhin/tasknote-api/internal/repo"
)

// fingerprint is the registry's dedup key: an MD5 of the full byte
// stream, base64-encoded. MD5 is picked for speed, not strength; a
// collision only merges two uploads into one registry entry.
func fingerprint(data []byte) string {
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// resolveAttachments turns uploaded files into registry entries.
// Empty attachments are dropped, duplicates inside one request collapse
// to a single entry, fingerprints already in the registry are reused,
// and only genuinely new bytes reach the blob store. Each new entry is
// audit-logged as an insert on the same transaction.
//
// An upload failure aborts the whole mutation: a task is never created
// with part of its images missing.
func (s *TaskService) resolveAttachments(ctx context.Context, st repo.Store, ident auth.Identity, atts []model.Attachment) ([]model.Image, error) {
	type pending struct {
		hash string
		att  model.Attachment
	}

	var order []pending
	seen := make(map[string]bool)
	for _, att := range atts {
		if len(att.Data) == 0 {
			continue
		}
		hash := fingerprint(att.Data)
		if seen[hash] {
			continue
		}
		seen[hash] = true
		order = append(order, pending{hash: hash, att: att})
	}
	if len(order) == 0 {
		return nil, nil
	}

	hashes := make([]string, len(order))
	for i, p := range order {
		hashes[i] = p.hash
	}
	existing, err := st.Images().FindByHashes(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("lookup image registry: %w", err)
	}
	byHash := make(map[string]model.Image, len(existing))
	for _, img := range existing {
		byHash[img.Hash] = img
	}

	resolved := make([]model.Image, 0, len(order))
	for _, p := range order {
		if img, ok := byHash[p.hash]; ok {
			resolved = append(resolved, img)
			continue
		}

		key, url, err := s.blob.Upload(ctx, bytes.NewReader(p.att.Data), int64(len(p.att.Data)), p.att.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload image %q: %w", p.att.Filename, err)
		}

		img, err := st.Images().Create(ctx, model.Image{Hash: p.hash, Key: key, URL: url})
		if err != nil {
			s.logger.Error("image record failed after blob upload, blob orphaned",
				zap.String("key", key), zap.Error(err))
			return nil, fmt.Errorf("register image %q: %w", p.att.Filename, err)
		}

		if _, err := st.Logs().Create(ctx, model.Log{
			Type:     model.LogInsert,
			UserID:   ident.Subject,
			UserAddr: ident.RemoteAddr,
			Entity:   model.EntityImage,
			Current:  model.ImageSnapshot(img),
		}); err != nil {
			return nil, fmt.Errorf("audit image insert: %w", err)
		}

		resolved = append(resolved, img)
	}
	return resolved, nil
}

// diffImages compares the previous and the newly resolved image sets by
// fingerprint, never by identifier: resubmitting unchanged bytes in any
// order is a storage no-op. The caller keeps next as the final set
// (retained ∪ to-add); the return value is what dropped out.
func diffImages(prev, next []model.Image) (toDelete []model.Image) {
	keep := make(map[string]bool, len(next))
	for _, img := range next {
		keep[img.Hash] = true
	}
	for _, img := range prev {
		if !keep[img.Hash] {
			toDelete = append(toDelete, img)
		}
	}
	return toDelete
}

// removeImage deletes one registry entry and its blob, audit-logged.
// The registry is global: nothing checks whether another task still
// references the entry. Known data-loss hazard; the sweeper keeps the
// fallout visible.
func (s *TaskService) removeImage(ctx context.Context, st repo.Store, ident auth.Identity, img model.Image) error {
	if err := s.blob.Delete(ctx, img.Key); err != nil {
		return fmt.Errorf("delete blob %s: %w", img.Key, err)
	}
	if err := st.Images().Delete(ctx, img.ID); err != nil {
		return fmt.Errorf("delete image record %s: %w", img.ID, err)
	}
	if _, err := st.Logs().Create(ctx, model.Log{
		Type:     model.LogDelete,
		UserID:   ident.Subject,
		UserAddr: ident.RemoteAddr,
		Entity:   model.EntityImage,
		Previous: model.ImageSnapshot(img),
	}); err != nil {
		return fmt.Errorf("audit image delete: %w", err)
	}
	return nil
}

func imageIDs(images []model.Image) []string {
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}

func imageURLs(images []model.Image) []string {
	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
	}
	return urls
}
