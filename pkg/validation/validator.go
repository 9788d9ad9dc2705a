package validation

import (
	"errors"
	"net"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Validator returns the shared validator with the risk engine's custom tags
// registered. Field names in errors use the json tag.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("record_id", validateRecordID)
		_ = validate.RegisterValidation("ip_or_unknown", validateIPOrUnknown)
	})
	return validate
}

// ValidateStruct validates s and returns a *ValidationError on failure.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// IsRecordID reports whether id is a positive integer or a UUID in the
// canonical text form the database renders, so the id can be compared as
// text without normalization.
func IsRecordID(id string) bool {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n > 0 && strconv.FormatInt(n, 10) == id
	}
	if len(id) == 36 {
		u, err := uuid.Parse(id)
		return err == nil && u.String() == id
	}
	return false
}

func validateRecordID(fl validator.FieldLevel) bool {
	return IsRecordID(fl.Field().String())
}

func validateIPOrUnknown(fl validator.FieldLevel) bool {
	v := strings.TrimSpace(fl.Field().String())
	if v == "" || strings.EqualFold(v, "unknown") {
		return true
	}
	return net.ParseIP(v) != nil
}
