package model

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = func() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// ValidateStruct runs the struct tag rules of an entity and turns failures
// into a ValidationError.
func ValidateStruct(entity any) error {
	err := validate.Struct(entity)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	flds := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: ruleMessage(fe)})
	}
	return NewValidationError("invalid "+strings.ToLower(reflect.Indirect(reflect.ValueOf(entity)).Type().Name()), flds...)
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag()
}

func mergeValidation(errs ...error) error {
	var flds []FieldError
	msg := ""
	for _, err := range errs {
		if err == nil {
			continue
		}
		var v *ValidationError
		if !errors.As(err, &v) {
			return err
		}
		if msg == "" {
			msg = v.Message
		}
		flds = append(flds, v.Fields...)
	}
	if msg == "" {
		return nil
	}
	return NewValidationError(msg, flds...)
}

func prefixFields(err error, prefix string) error {
	var v *ValidationError
	if !errors.As(err, &v) {
		return err
	}
	flds := make([]FieldError, len(v.Fields))
	for i, f := range v.Fields {
		flds[i] = FieldError{Field: prefix + "." + f.Field, Error: f.Error}
	}
	return NewValidationError(v.Message, flds...)
}
