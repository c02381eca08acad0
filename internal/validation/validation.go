// Package validation holds the stateless admission checks run on raw customer
// and address input before anything reaches the store.
package validation

import (
	"regexp"
	"strings"

	"customer-registry/internal/pkg/apperrors"

	"github.com/go-playground/validator/v10"
)

const (
	tagPhone = "phone10"
	tagEmail = "emailshape"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation(tagPhone, func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation(tagEmail, func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Field is a named raw value checked by ValidateRequired.
type Field struct {
	Name  string
	Value string
}

type CustomerFields struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
}

func (f CustomerFields) required() []Field {
	return []Field{
		{Name: "firstName", Value: f.FirstName},
		{Name: "lastName", Value: f.LastName},
		{Name: "phoneNumber", Value: f.PhoneNumber},
		{Name: "email", Value: f.Email},
	}
}

// ValidateRequired rejects the first field that is absent or blank.
func ValidateRequired(fields ...Field) error {
	for _, f := range fields {
		if validate.Var(strings.TrimSpace(f.Value), "required") != nil {
			return apperrors.NewValidationError(f.Name, apperrors.ReasonRequiredField, "missing required field")
		}
	}
	return nil
}

// ValidateName accepts a non-empty value made only of ASCII letters.
func ValidateName(field, value string) error {
	if validate.Var(value, "required,alpha") != nil {
		return apperrors.NewValidationError(field, apperrors.ReasonBadName, "only letters are allowed")
	}
	return nil
}

func ValidatePhone(value string) error {
	if validate.Var(value, "required,"+tagPhone) != nil {
		return apperrors.NewValidationError("phoneNumber", apperrors.ReasonBadPhone, "must be exactly 10 digits")
	}
	return nil
}

func ValidateEmail(value string) error {
	if validate.Var(value, "required,"+tagEmail) != nil {
		return apperrors.NewValidationError("email", apperrors.ReasonBadEmail, "invalid email format")
	}
	return nil
}

func ValidateAddress(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidationError("address", apperrors.ReasonEmptyAddress, "address cannot be empty")
	}
	return nil
}

// ValidateCustomerFields runs every customer check and returns the first
// failure. Missing fields are reported before malformed ones.
func ValidateCustomerFields(f CustomerFields) error {
	if err := ValidateRequired(f.required()...); err != nil {
		return err
	}
	return firstError(
		func() error { return ValidateName("firstName", f.FirstName) },
		func() error { return ValidateName("lastName", f.LastName) },
		func() error { return ValidatePhone(f.PhoneNumber) },
		func() error { return ValidateEmail(f.Email) },
	)
}

// ValidateNewCustomer is ValidateCustomerFields plus the initial address.
func ValidateNewCustomer(f CustomerFields, address string) error {
	fields := append(f.required(), Field{Name: "address", Value: address})
	if err := ValidateRequired(fields...); err != nil {
		return err
	}
	if err := ValidateCustomerFields(f); err != nil {
		return err
	}
	return ValidateAddress(address)
}

func firstError(checks ...func() error) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
