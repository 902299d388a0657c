package products

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Input holds the raw form fields of a create or update request.
type Input struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description"`
	Status      string `form:"status" validate:"required,oneof=active inactive"`
	Date        string `form:"date" validate:"required,datetime=2006-01-02"`
}

var inputFieldNames = map[string]string{
	"Title":       "title",
	"Description": "description",
	"Status":      "status",
	"Date":        "date",
}

// Fields validates the input and converts it into storable fields. All
// violations are reported together in a *ValidationError.
func (in Input) Fields() (Fields, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Status = strings.TrimSpace(in.Status)
	in.Date = strings.TrimSpace(in.Date)

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return Fields{}, fmt.Errorf("validate input: %w", err)
		}
		verr := &ValidationError{}
		for _, fe := range fieldErrs {
			name := inputFieldNames[fe.Field()]
			verr.add(name, formatFieldError(name, fe))
		}
		return Fields{}, verr
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return Fields{}, NewValidationError("date", err.Error())
	}

	return Fields{
		Title:       in.Title,
		Description: in.Description,
		Status:      Status(in.Status),
		Date:        date,
	}, nil
}

func formatFieldError(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as YYYY-MM-DD", field)
	default:
		return field + " is invalid"
	}
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date formatted as YYYY-MM-DD", raw)
	}
	return date, nil
}

// ParseFilter builds a Filter from optional query values. Empty values are
// ignored.
func ParseFilter(status, startDate, endDate string) (Filter, error) {
	var (
		filter Filter
		verr   ValidationError
	)

	if status = strings.TrimSpace(status); status != "" {
		filter.Status = Status(status)
		if !filter.Status.Valid() {
			verr.add("status", "status must be one of: active inactive")
		}
	}
	if strings.TrimSpace(startDate) != "" {
		date, err := ParseDate(startDate)
		if err != nil {
			verr.add("startDate", err.Error())
		}
		filter.StartDate = date
	}
	if strings.TrimSpace(endDate) != "" {
		date, err := ParseDate(endDate)
		if err != nil {
			verr.add("endDate", err.Error())
		}
		filter.EndDate = date
	}
	if !filter.StartDate.IsZero() && !filter.EndDate.IsZero() && filter.EndDate.Before(filter.StartDate) {
		verr.add("endDate", "endDate must not be before startDate")
	}

	if len(verr.Fields) > 0 {
		return Filter{}, &verr
	}
	return filter, nil
}
