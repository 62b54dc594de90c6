package service

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmarukhin/tasknote-api/internal/model"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return model.Priority(fl.Field().String()).Valid()
	})
	v.RegisterStructValidation(validateDates, model.TaskRequest{})
	return v
}

// validateDates holds the cross-field rules: start <= end when both are
// present, and the end date may not lie strictly before today.
func validateDates(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.TaskRequest)
	if req.EndDate == nil {
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if req.EndDate.Before(today) {
		sl.ReportError(req.EndDate, "EndDate", "EndDate", "notpast", "")
	}
	if req.StartDate != nil && req.StartDate.After(*req.EndDate) {
		sl.ReportError(req.StartDate, "StartDate", "StartDate", "beforeend", "")
	}
}

var fieldNames = map[string]string{
	"Name":        "name",
	"Description": "description",
	"StartDate":   "startDate",
	"EndDate":     "endDate",
	"Priority":    "priority",
}

func fieldMessage(field, tag string) string {
	switch {
	case field == "StartDate" && tag == "beforeend":
		return "start date must not be after end date"
	case field == "EndDate" && tag == "notpast":
		return "end date must not be in the past"
	case field == "Priority":
		return "priority must be one of low, medium, high"
	case tag == "required":
		return "is required"
	}
	return "is invalid"
}

func (s *TaskService) validateRequest(req model.TaskRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fieldNames[fe.StructField()]
		if name == "" {
			name = fe.StructField()
		}
		fields[name] = fieldMessage(fe.StructField(), fe.Tag())
	}
	return &ValidationError{Fields: fields}
}
