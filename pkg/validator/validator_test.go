package validator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone_number" validate:"required,phone"`
}

type formRequest struct {
	Delay float64 `form:"delay" validate:"gte=0.1,lte=10"`
}

func TestCustomValidator_ValidateReturnsValidationError(t *testing.T) {
	cv := New()

	err := cv.Validate(sampleRequest{})
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}

	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	if _, exists := ve.Errors["name"]; !exists {
		t.Errorf("expected 'name' to be in validation errors")
	}
	if _, exists := ve.Errors["phone_number"]; !exists {
		t.Errorf("expected 'phone_number' to be in validation errors")
	}
}

func TestPhoneTag(t *testing.T) {
	cv := New()

	cases := map[string]bool{
		"+2547123456": true,
		"+123456":     true,
		"+12345":      false,
		"2547123456":  false,
		"  ":          false,
	}

	for phone, valid := range cases {
		err := cv.Validate(sampleRequest{Name: "x", Phone: phone})
		if valid && err != nil {
			t.Errorf("%q: unexpected error %v", phone, err)
		}
		if !valid {
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Errorf("%q: expected validation error, got %v", phone, err)
				continue
			}
			if msg := ve.Errors["phone_number"]; phone != "  " && !strings.Contains(msg, "must start with +") {
				t.Errorf("%q: unexpected message %q", phone, msg)
			}
		}
	}
}

func TestFormTagNames(t *testing.T) {
	cv := New()

	err := cv.Validate(formRequest{Delay: 30})
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, exists := ve.Errors["delay"]; !exists {
		t.Errorf("expected 'delay' key, got %v", ve.Errors)
	}
}

func TestHandleValidationError_Returns422WithDetails(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	c := e.NewContext(req, rec)

	cv := New()
	err := cv.Validate(sampleRequest{})

	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}

	if err := HandleValidationError(c, err); err != nil {
		t.Fatalf("HandleValidationError returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var body ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body.Success {
		t.Errorf("expected Success=false, got true")
	}
	if body.Error != "Validation failed" {
		t.Errorf("expected error='Validation failed', got %q", body.Error)
	}
	if len(body.Details) == 0 {
		t.Fatalf("expected details in validation response, got none")
	}
}
