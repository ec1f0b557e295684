package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type LocationRequest struct {
	Lat     *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng     *float64 `json:"lng" validate:"required,min=-180,max=180"`
	Address string   `json:"address,omitempty" validate:"max=300"`
}

func (l LocationRequest) location() ecoquest.Location {
	return ecoquest.Location{Lat: *l.Lat, Lng: *l.Lng, Address: l.Address}
}

type CreateHuntRequest struct {
	UserID   string           `json:"userId" validate:"required,max=128"`
	Theme    string           `json:"theme" validate:"required,oneof=urban-nature sustainable-shopping pollinator-hunt zero-waste-picnic"`
	Location *LocationRequest `json:"location" validate:"required"`
}

type CompleteStopRequest struct {
	Answer    string `json:"answer,omitempty" validate:"max=500"`
	PhotoData string `json:"photoData,omitempty"`
}

type DemoUserRequest struct {
	Name string `json:"name,omitempty" validate:"max=64"`
}

// validateRequest returns nil or the field errors for v.
func validateRequest(v any) []ecoquest.FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ecoquest.FieldError{{Field: "body", Message: err.Error()}}
	}

	fields := make([]ecoquest.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the struct name: "CreateHuntRequest.location.lat" -> "location.lat".
		_, field, _ := strings.Cut(fe.Namespace(), ".")

		var msg string
		switch fe.Tag() {
		case "required":
			msg = field + " is required"
		case "min":
			msg = field + " must be at least " + fe.Param()
		case "max":
			if fe.Kind() == reflect.String {
				msg = field + " must be at most " + fe.Param() + " characters"
			} else {
				msg = field + " must be at most " + fe.Param()
			}
		case "oneof":
			msg = field + " must be one of: " + fe.Param()
		default:
			msg = field + " is invalid"
		}
		fields = append(fields, ecoquest.FieldError{Field: field, Message: msg})
	}
	return fields
}
