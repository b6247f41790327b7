package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	v    *validator.Validate
	once sync.Once
)

// MaxPageTokenLen caps accepted page tokens.
const MaxPageTokenLen = 4096

// Field names (json) whose bound violations are page-size errors rather than
// generic validation failures.
var pageSizeFields = map[string]bool{
	"max_results": true,
	"max_sheets":  true,
	"max_tables":  true,
}

// Field names whose violations invalidate the continuation cursor.
var cursorFields = map[string]bool{
	"page_token":  true,
	"start_index": true,
}

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// Report json names so messages match the tool schema.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// Custom: opaque page token as issued by a backend. Any printable
		// characters pass; only the backend decides whether a token is valid.
		_ = v.RegisterValidation("pagetoken", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true // use omitempty with this tag
			}
			return len(s) <= MaxPageTokenLen && strings.IndexFunc(s, unicode.IsControl) < 0
		})
		// Custom: RFC 3339 timestamp
		_ = v.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(time.RFC3339, strings.TrimSpace(fl.Field().String()))
			return err == nil
		})
		// Custom: spreadsheet id (Drive file id or a local workbook path)
		_ = v.RegisterValidation("sheetid", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" || len(s) > 1024 {
				return false
			}
			return strings.IndexFunc(s, unicode.IsControl) < 0
		})
	})
	return v
}

// ValidateStruct validates a struct and returns a user-friendly "CODE: message"
// string suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	err := Validator().Struct(s)
	if err == nil {
		return ""
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "VALIDATION: invalid inputs"
	}
	fe := ve[0]
	field := fe.Field()
	switch {
	case pageSizeFields[field]:
		return fmt.Sprintf("INVALID_PAGE_SIZE: %s must be between 1 and 1000", field)
	case cursorFields[field]:
		if field == "start_index" {
			return "INVALID_CURSOR: start_index must be >= 0"
		}
		return "INVALID_CURSOR: page_token is malformed; restart pagination without it"
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("VALIDATION: %s is required", field)
	case "sheetid":
		return fmt.Sprintf("VALIDATION: %s must be a spreadsheet id", field)
	case "rfc3339":
		return fmt.Sprintf("VALIDATION: %s must be an RFC 3339 timestamp (e.g. 2024-01-31T00:00:00Z)", field)
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("VALIDATION: invalid %s", field)
}

// Bind decodes tool arguments into target. A decode failure is returned as a
// "CODE: message" string like ValidateStruct; a type mismatch on a page-size
// field is INVALID_PAGE_SIZE and on a cursor field INVALID_CURSOR.
func Bind(args any, target any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return "VALIDATION: arguments are not a JSON object"
	}
	if err := json.Unmarshal(data, target); err != nil {
		return BindError(err)
	}
	return ""
}

// BindError renders an argument decoding error as a "CODE: message" string.
func BindError(err error) string {
	var ute *json.UnmarshalTypeError
	if !errors.As(err, &ute) {
		return "VALIDATION: arguments must be a JSON object"
	}
	field := ute.Field
	if i := strings.LastIndex(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch {
	case pageSizeFields[field]:
		return fmt.Sprintf("INVALID_PAGE_SIZE: %s must be an integer between 1 and 1000, got %s", field, ute.Value)
	case field == "start_index":
		return fmt.Sprintf("INVALID_CURSOR: start_index must be a non-negative integer, got %s", ute.Value)
	case cursorFields[field]:
		return fmt.Sprintf("INVALID_CURSOR: %s must be a string token, got %s", field, ute.Value)
	case field == "":
		return "VALIDATION: arguments must be a JSON object"
	}
	return fmt.Sprintf("VALIDATION: %s must be of type %s, got %s", field, ute.Type, ute.Value)
}
