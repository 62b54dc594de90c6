package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dmarukhin/tasknote-api/internal/auth"
	"github.com/dmarukhin/tasknote-api/internal/blob"
	"github.com/dmarukhin/tasknote-api/internal/model"
	"github.com/dmarukhin/tasknote-api/internal/repo"
)

// TaskService runs the task mutation workflow: validation, image
// resolution, persistence and audit logging. All writes of one call go
// through a single transaction, so image records, the task row and the
// audit entries commit or fail together.
type TaskService struct {
	store    repo.Store
	blob     blob.Store
	validate *validator.Validate
	logger   *zap.Logger
}

func NewTaskService(store repo.Store, blobStore blob.Store, logger *zap.Logger) *TaskService {
	return &TaskService{
		store:    store,
		blob:     blobStore,
		validate: newValidator(),
		logger:   logger,
	}
}

func (s *TaskService) Create(ctx context.Context, ident auth.Identity, req model.TaskRequest, atts []model.Attachment) (model.TaskDetail, error) {
	var detail model.TaskDetail
	if err := s.validateRequest(req); err != nil {
		return detail, err
	}

	err := s.store.WithinTx(ctx, func(st repo.Store) error {
		// Images resolve before the task write, always.
		images, err := s.resolveAttachments(ctx, st, ident, atts)
		if err != nil {
			return err
		}

		task, err := st.Tasks().Create(ctx, model.Task{
			Owner:       ident.Subject,
			Name:        req.Name,
			Description: req.Description,
			StartDate:   req.StartDate,
			EndDate:     *req.EndDate,
			Priority:    req.Priority,
			Completed:   req.Completed,
			ImageIDs:    imageIDs(images),
		})
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		if _, err := st.Logs().Create(ctx, model.Log{
			Type:     model.LogInsert,
			UserID:   ident.Subject,
			UserAddr: ident.RemoteAddr,
			Entity:   model.EntityTask,
			Current:  model.TaskSnapshot(task),
		}); err != nil {
			return fmt.Errorf("audit task insert: %w", err)
		}

		detail = model.TaskDetail{Task: task, ImageURLs: imageURLs(images)}
		return nil
	})
	if err != nil {
		return detail, err
	}

	s.logger.Info("task created",
		zap.String("task_id", detail.ID),
		zap.String("owner", ident.Subject),
		zap.Int("images", len(detail.ImageURLs)),
	)
	return detail, nil
}

func (s *TaskService) Get(ctx context.Context, ident auth.Identity, id string) (model.TaskDetail, error) {
	var detail model.TaskDetail

	task, err := s.store.Tasks().Get(ctx, ident.Subject, id)
	if err != nil {
		return detail, err
	}
	images, err := s.imagesInOrder(ctx, s.store, task.ImageIDs)
	if err != nil {
		return detail, err
	}

	return model.TaskDetail{Task: task, ImageURLs: imageURLs(images)}, nil
}

func (s *TaskService) List(ctx context.Context, ident auth.Identity) ([]model.Task, error) {
	return s.store.Tasks().List(ctx, ident.Subject)
}

func (s *TaskService) Update(ctx context.Context, ident auth.Identity, req model.TaskRequest, atts []model.Attachment) (model.TaskDetail, error) {
	var detail model.TaskDetail
	if req.ID == "" {
		return detail, newValidationError("id", "is required")
	}
	if err := s.validateRequest(req); err != nil {
		return detail, err
	}

	err := s.store.WithinTx(ctx, func(st repo.Store) error {
		prev, err := st.Tasks().Get(ctx, ident.Subject, req.ID)
		if err != nil {
			return err
		}
		prevImages, err := s.imagesInOrder(ctx, st, prev.ImageIDs)
		if err != nil {
			return err
		}

		next, err := s.resolveAttachments(ctx, st, ident, atts)
		if err != nil {
			return err
		}

		// next already holds retained ∪ to-add; only removals are left.
		for _, img := range diffImages(prevImages, next) {
			if err := s.removeImage(ctx, st, ident, img); err != nil {
				return err
			}
		}

		task := prev
		task.Name = req.Name
		task.Description = req.Description
		task.StartDate = req.StartDate
		task.EndDate = *req.EndDate
		task.Priority = req.Priority
		task.Completed = req.Completed
		task.ImageIDs = imageIDs(next)

		updated, err := st.Tasks().Update(ctx, task)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		if _, err := st.Logs().Create(ctx, model.Log{
			Type:     model.LogUpdate,
			UserID:   ident.Subject,
			UserAddr: ident.RemoteAddr,
			Entity:   model.EntityTask,
			Previous: model.TaskSnapshot(prev),
			Current:  model.TaskSnapshot(updated),
		}); err != nil {
			return fmt.Errorf("audit task update: %w", err)
		}

		detail = model.TaskDetail{Task: updated, ImageURLs: imageURLs(next)}
		return nil
	})
	if err != nil {
		return detail, err
	}

	s.logger.Info("task updated",
		zap.String("task_id", detail.ID),
		zap.String("owner", ident.Subject),
	)
	return detail, nil
}

func (s *TaskService) Delete(ctx context.Context, ident auth.Identity, id string) error {
	err := s.store.WithinTx(ctx, func(st repo.Store) error {
		task, err := st.Tasks().Get(ctx, ident.Subject, id)
		if err != nil {
			return err
		}
		images, err := s.imagesInOrder(ctx, st, task.ImageIDs)
		if err != nil {
			return err
		}

		for _, img := range images {
			if err := s.removeImage(ctx, st, ident, img); err != nil {
				return err
			}
		}

		if err := st.Tasks().Delete(ctx, ident.Subject, id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}

		if _, err := st.Logs().Create(ctx, model.Log{
			Type:     model.LogDelete,
			UserID:   ident.Subject,
			UserAddr: ident.RemoteAddr,
			Entity:   model.EntityTask,
			Previous: model.TaskSnapshot(task),
		}); err != nil {
			return fmt.Errorf("audit task delete: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("task deleted",
		zap.String("task_id", id),
		zap.String("owner", ident.Subject),
	)
	return nil
}

// imagesInOrder resolves image ids in the order the task stores them.
func (s *TaskService) imagesInOrder(ctx context.Context, st repo.Store, ids []string) ([]model.Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := st.Images().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup task images: %w", err)
	}

	byID := make(map[string]model.Image, len(found))
	for _, img := range found {
		byID[img.ID] = img
	}
	images := make([]model.Image, 0, len(ids))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			images = append(images, img)
		}
	}
	return images, nil
}
