package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SaveOp describes the write a document is being prepared for.
type SaveOp struct {
	IsNew          bool
	Now            time.Time
	SkipValidation bool
}

// Document is implemented by every persisted entity. BeforeSave runs the
// entity's validation and derived-field steps and must be called before
// every insert or replace.
type Document interface {
	GetID() primitive.ObjectID
	SetID(primitive.ObjectID)
	BeforeSave(op SaveOp) error
}

// AfterLoader is implemented by entities with computed virtual fields.
type AfterLoader interface {
	AfterLoad()
}

// Profile is the public projection of a user embedded into other documents.
type Profile struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email,omitempty" json:"email,omitempty"`
	Photo string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role  string             `bson:"role,omitempty" json:"role,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the validate tags of v. Failures are returned keyed by
// json field path, using messages[path+"."+tag] when present.
func checkStruct(v any, messages map[string]string) (map[string]string, error) {
	err := validate.Struct(v)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		if _, seen := fields[path]; seen {
			continue
		}
		if msg, ok := messages[path+"."+fe.Tag()]; ok {
			if strings.Contains(msg, "%v") {
				msg = fmt.Sprintf(msg, fe.Value())
			}
			fields[path] = msg
			continue
		}
		fields[path] = defaultMessage(path, fe)
	}
	return fields, nil
}

func defaultMessage(path string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Path `%s` is required", path)
	case "email":
		return "Please provide a valid email"
	case "oneof":
		return fmt.Sprintf("`%v` is not a valid value for `%s` (allowed: %s)", fe.Value(), path, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("Path `%s` (%v) is less than the minimum allowed (%s)", path, fe.Value(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("Path `%s` (%v) is more than the maximum allowed (%s)", path, fe.Value(), fe.Param())
	case "len":
		return fmt.Sprintf("Path `%s` must have exactly %s entries", path, fe.Param())
	}
	return fmt.Sprintf("Path `%s` failed on %q", path, fe.Tag())
}

func validationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation(fields)
}
