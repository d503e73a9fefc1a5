package utils

import (
  "encoding/json"
  "errors"
  "fmt"
  "reflect"
  "regexp"
  "strings"
  "sync"

  "github.com/gin-gonic/gin/binding"
  "github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?\d[\d\s-]{8,15}$`)

var registerOnce sync.Once

type FieldError struct {
  Field         string        `json:"field"`
  Tag           string        `json:"tag"`
  Message       string        `json:"message"`
}

// IsValidPhone reports whether s looks like a loose international number.
// The empty string is accepted; callers clear the field in that case.
func IsValidPhone(s string) bool {
  if s == "" {
    return true
  }
  return phonePattern.MatchString(s)
}

// RegisterValidators hooks the custom rules into gin's binding engine and
// makes field errors report json names instead of Go field names.
func RegisterValidators() error {
  var err error
  registerOnce.Do(func() {
    v, ok := binding.Validator.Engine().(*validator.Validate)
    if !ok {
      err = fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
      return
    }
    v.RegisterTagNameFunc(func(fld reflect.StructField) string {
      name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
      if name == "-" {
        return ""
      }
      return name
    })
    err = v.RegisterValidation("intlphone", func(fl validator.FieldLevel) bool {
      return IsValidPhone(fl.Field().String())
    })
  })
  return err
}

// ValidationDetails converts a binding error into field-level detail. The
// second return is false when err is not a validation failure.
func ValidationDetails(err error) ([]FieldError, bool) {
  var typeErr *json.UnmarshalTypeError
  if errors.As(err, &typeErr) {
    return []FieldError{{Field: typeErr.Field, Tag: "type", Message: "expected " + typeErr.Type.String()}}, true
  }
  var verrs validator.ValidationErrors
  if !errors.As(err, &verrs) {
    return nil, false
  }
  out := make([]FieldError, 0, len(verrs))
  for _, fe := range verrs {
    out = append(out, FieldError{
      Field:    fe.Field(),
      Tag:      fe.Tag(),
      Message:  fieldMessage(fe),
    })
  }
  return out, true
}

func fieldMessage(fe validator.FieldError) string {
  switch fe.Tag() {
  case "required":
    return "field required"
  case "email":
    return "value is not a valid email address"
  case "min":
    return fmt.Sprintf("must be at least %s characters long", fe.Param())
  case "max":
    return fmt.Sprintf("must be at most %s characters long", fe.Param())
  case "eqfield":
    return "passwords do not match"
  case "intlphone":
    return "Invalid phone number format"
  default:
    return fmt.Sprintf("failed %s validation", fe.Tag())
  }
}
