// Package validation provides input validation for the Sitara API.
package validation

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// roadTypes the scorer understands.
var roadTypes = map[string]bool{
	"footpath":    true,
	"highway":     true,
	"main_road":   true,
	"residential": true,
}

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate runs the validators and collects their errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// ValidLatitude checks a latitude in degrees
func ValidLatitude(field string, value float64) func() *ValidationError {
	return func() *ValidationError {
		if value < -90 || value > 90 {
			return &ValidationError{Field: field, Message: "must be between -90 and 90"}
		}
		return nil
	}
}

// ValidLongitude checks a longitude in degrees
func ValidLongitude(field string, value float64) func() *ValidationError {
	return func() *ValidationError {
		if value < -180 || value > 180 {
			return &ValidationError{Field: field, Message: "must be between -180 and 180"}
		}
		return nil
	}
}

// ValidHour checks an hour of day, nil means "not provided"
func ValidHour(field string, value *int) func() *ValidationError {
	return func() *ValidationError {
		if value != nil && (*value < 0 || *value > 23) {
			return &ValidationError{Field: field, Message: "must be between 0 and 23"}
		}
		return nil
	}
}

// ValidDayOfWeek checks a day of week, nil means "not provided"
func ValidDayOfWeek(field string, value *int) func() *ValidationError {
	return func() *ValidationError {
		if value != nil && (*value < 0 || *value > 6) {
			return &ValidationError{Field: field, Message: "must be between 0 and 6"}
		}
		return nil
	}
}

// ValidRoadType checks a road type, empty means "not provided"
func ValidRoadType(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !roadTypes[strings.ToLower(value)] {
			return &ValidationError{Field: field, Message: "must be one of footpath, highway, main_road, residential"}
		}
		return nil
	}
}

// ValidUnitInterval checks a score-like field in [0,1], nil means "not provided"
func ValidUnitInterval(field string, value *float64) func() *ValidationError {
	return func() *ValidationError {
		if value != nil && (*value < 0 || *value > 1) {
			return &ValidationError{Field: field, Message: "must be between 0 and 1"}
		}
		return nil
	}
}

// NonNegative checks a non-negative numeric field, nil means "not provided"
func NonNegative(field string, value *float64) func() *ValidationError {
	return func() *ValidationError {
		if value != nil && *value < 0 {
			return &ValidationError{Field: field, Message: "must not be negative"}
		}
		return nil
	}
}
