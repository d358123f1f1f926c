package domain

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateTask checks the task invariants. The title is judged after trimming.
func ValidateTask(t Task) error {
	t.Title = strings.TrimSpace(t.Title)
	return validationError(validate.Struct(t))
}

// ValidateDrawing checks the drawing record fields; shape data is checked by its codec.
func ValidateDrawing(d Drawing) error {
	d.Name = strings.TrimSpace(d.Name)
	return validationError(validate.Struct(d))
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = reason(fe)
	}
	return &ValidationError{Fields: fields}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be an RFC 3339 timestamp"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func ValidPriority(p string) bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// ParseDueDate accepts an RFC 3339 timestamp or a calendar date and returns
// the normalized UTC timestamp.
func ParseDueDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC().Format(time.RFC3339), nil
	}
	if d, err := time.Parse(time.DateOnly, raw); err == nil {
		return d.UTC().Format(time.RFC3339), nil
	}
	return "", NewValidationError("due_date", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// NormalizeTags trims labels, drops empties and keeps the first occurrence of each.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
