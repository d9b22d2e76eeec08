package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	pinCodeRe = regexp.MustCompile(`^[0-9]{6}$`)
	phoneRe   = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the storefront's custom tags
// ("pincode", "phone") registered.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
			return IsPinCode(fl.Field().String())
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsPhone(fl.Field().String())
		})
	})
	return validate
}

// Struct validates v and flattens the first failure into a readable message.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "pincode":
		return errors.New("PIN code must be 6 digits")
	case "phone":
		return fmt.Errorf("%s must be a valid phone number", fe.Field())
	case "email":
		return errors.New("email must be a valid address")
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}

func IsPinCode(s string) bool {
	return pinCodeRe.MatchString(s)
}

// NormalizePhone strips spaces and dashes from user-typed numbers.
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(s))
}

func IsPhone(s string) bool {
	return phoneRe.MatchString(NormalizePhone(s))
}

// E164 prefixes bare 10-digit Indian mobile numbers with +91 for SMS delivery.
func E164(phone string) string {
	p := NormalizePhone(phone)
	if strings.HasPrefix(p, "+") {
		return p
	}
	if len(p) == 10 {
		return "+91" + p
	}
	return "+" + p
}
