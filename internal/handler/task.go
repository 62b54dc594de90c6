package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dmarukhin/tasknote-api/internal/auth"
	"github.com/dmarukhin/tasknote-api/internal/model"
	"github.com/dmarukhin/tasknote-api/internal/repo"
	"github.com/dmarukhin/tasknote-api/internal/service"
	"github.com/dmarukhin/tasknote-api/pkg/respond"
)

const (
	maxUploadBytes = 32 << 20
	dateLayout     = "2006-01-02"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, atts, fields := h.parseForm(r)
	if len(fields) > 0 {
		respond.FieldErrors(w, r, fields)
		return
	}

	task, err := h.service.Create(r.Context(), ident, req, atts)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", "/task/"+task.ID)
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	task, err := h.service.Get(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.service.List(r.Context(), ident)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, atts, fields := h.parseForm(r)
	if len(fields) > 0 {
		respond.FieldErrors(w, r, fields)
		return
	}

	task, err := h.service.Update(r.Context(), ident, req, atts)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.service.Delete(r.Context(), ident, chi.URLParam(r, "id")); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseForm reads the multipart body into a request plus attachments.
// Malformed values are collected per field so the caller gets one 400
// with everything that is wrong, same shape as validation failures.
func (h *TaskHandler) parseForm(r *http.Request) (model.TaskRequest, []model.Attachment, map[string]string) {
	fields := map[string]string{}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		fields["body"] = "expected multipart form data"
		return model.TaskRequest{}, nil, fields
	}

	req := model.TaskRequest{
		ID:          r.FormValue("id"),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Completed:   r.FormValue("completed") == "true",
	}

	if v := r.FormValue("startDate"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			fields["startDate"] = "must be a date in the form 2006-01-02"
		} else {
			t = t.UTC()
			req.StartDate = &t
		}
	}
	if v := r.FormValue("endDate"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			fields["endDate"] = "must be a date in the form 2006-01-02"
		} else {
			t = t.UTC()
			req.EndDate = &t
		}
	}
	if v := r.FormValue("priority"); v != "" {
		p, ok := model.ParsePriority(v)
		if !ok {
			fields["priority"] = "priority must be one of low, medium, high"
		} else {
			req.Priority = p
		}
	}

	var atts []model.Attachment
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			f, err := fh.Open()
			if err != nil {
				fields["images"] = "could not read uploaded file " + fh.Filename
				break
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				fields["images"] = "could not read uploaded file " + fh.Filename
				break
			}
			atts = append(atts, model.Attachment{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	return req, atts, fields
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.FieldErrors(w, r, verr.Fields)
	case errors.Is(err, repo.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
