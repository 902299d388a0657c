package products

import (
	"errors"
	"testing"
	"time"
)

func TestInputFields(t *testing.T) {
	tests := []struct {
		name       string
		input      Input
		wantFields []string
	}{
		{
			name:  "valid",
			input: Input{Title: "Pen", Status: "active", Date: "2024-01-01"},
		},
		{
			name:       "empty title",
			input:      Input{Title: "", Status: "active", Date: "2024-01-01"},
			wantFields: []string{"title"},
		},
		{
			name:       "blank title",
			input:      Input{Title: "   ", Status: "inactive", Date: "2024-01-01"},
			wantFields: []string{"title"},
		},
		{
			name:       "unknown status",
			input:      Input{Title: "Pen", Status: "archived", Date: "2024-01-01"},
			wantFields: []string{"status"},
		},
		{
			name:       "unparseable date",
			input:      Input{Title: "Pen", Status: "active", Date: "01/02/2024"},
			wantFields: []string{"date"},
		},
		{
			name:       "every field reported at once",
			input:      Input{},
			wantFields: []string{"title", "status", "date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := tt.input.Fields()
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if fields.Title != tt.input.Title {
					t.Fatalf("want title %q, got %q", tt.input.Title, fields.Title)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want *ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Fatalf("want fields %v, got %v", tt.wantFields, verr.Fields)
			}
			for _, f := range tt.wantFields {
				if _, ok := verr.Fields[f]; !ok {
					t.Fatalf("want field %q in %v", f, verr.Fields)
				}
			}
		})
	}
}

func TestInputFields_Normalizes(t *testing.T) {
	fields, err := Input{Title: "  Pen ", Description: "blue", Status: "inactive", Date: "2024-03-05"}.Fields()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.Title != "Pen" {
		t.Fatalf("want trimmed title, got %q", fields.Title)
	}
	if fields.Status != StatusInactive {
		t.Fatalf("want status inactive, got %q", fields.Status)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !fields.Date.Equal(want) {
		t.Fatalf("want date %v, got %v", want, fields.Date)
	}
	if fields.ImageURL != nil {
		t.Fatal("want nil image url")
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		start     string
		end       string
		wantErr   bool
		wantEmpty bool
	}{
		{name: "no filter", wantEmpty: true},
		{name: "status only", status: "active"},
		{name: "range", start: "2024-01-01", end: "2024-01-31"},
		{name: "start only", start: "2024-01-01"},
		{name: "bad status", status: "deleted", wantErr: true},
		{name: "bad start", start: "yesterday", wantErr: true},
		{name: "reversed range", start: "2024-02-01", end: "2024-01-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := ParseFilter(tt.status, tt.start, tt.end)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("want *ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantEmpty && filter != (Filter{}) {
				t.Fatalf("want empty filter, got %+v", filter)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"status": "status is required",
		"date":   "date is required",
	}}
	want := "invalid product: date: date is required; status: status is required"
	if err.Error() != want {
		t.Fatalf("want %q, got %q", want, err.Error())
	}
}
