package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type delivery struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required,phone"`
	Email   string `json:"email" validate:"required,email"`
	PinCode string `json:"pin_code" validate:"required,pincode"`
}

func TestStruct(t *testing.T) {
	ok := delivery{Name: "Asha", Phone: "98765 43210", Email: "asha@example.com", PinCode: "560001"}
	assert.NoError(t, Struct(ok))

	missing := ok
	missing.Name = ""
	assert.EqualError(t, Struct(missing), "name is required")

	badPin := ok
	badPin.PinCode = "56001"
	assert.EqualError(t, Struct(badPin), "PIN code must be 6 digits")

	badPhone := ok
	badPhone.Phone = "12ab"
	assert.EqualError(t, Struct(badPhone), "phone must be a valid phone number")

	badEmail := ok
	badEmail.Email = "asha"
	assert.EqualError(t, Struct(badEmail), "email must be a valid address")
}

func TestPhoneHelpers(t *testing.T) {
	assert.True(t, IsPhone("+91 98765-43210"))
	assert.False(t, IsPhone("12345"))
	assert.Equal(t, "+919876543210", E164("98765 43210"))
	assert.Equal(t, "+919876543210", E164("+91 9876543210"))
	assert.Equal(t, "+919876543210", E164("919876543210"))
}

func TestIsPinCode(t *testing.T) {
	assert.True(t, IsPinCode("560001"))
	assert.False(t, IsPinCode("5600011"))
	assert.False(t, IsPinCode("56O001"))
}
