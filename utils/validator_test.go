package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Username string  `json:"username" validate:"required,username"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,pwdmin"`
	Confirm  string  `json:"confirm" validate:"eqfield=Password"`
	Source   string  `json:"source" validate:"oneof=manual sale"`
	Bio      *string `json:"bio" validate:"max=5"`
}

func TestValidateStruct(t *testing.T) {
	ok := signup{Username: "jane.doe", Email: "jane@example.com", Password: "secret", Confirm: "secret"}
	assert.NoError(t, ValidateStruct(&ok))

	bad := ok
	bad.Username = ""
	assert.EqualError(t, ValidateStruct(bad), "username is required")

	bad = ok
	bad.Username = "no spaces"
	assert.Error(t, ValidateStruct(bad))

	bad = ok
	bad.Email = "not-an-email"
	assert.EqualError(t, ValidateStruct(bad), "email must be a valid email address")

	bad = ok
	bad.Password, bad.Confirm = "12345", "12345"
	assert.EqualError(t, ValidateStruct(bad), "password must be at least 6 characters")

	bad = ok
	bad.Confirm = "different"
	assert.EqualError(t, ValidateStruct(bad), "confirm must equal Password")

	bad = ok
	bad.Source = "gift"
	assert.EqualError(t, ValidateStruct(bad), "source must be one of: manual, sale")

	long := "toolong"
	bad = ok
	bad.Bio = &long
	assert.EqualError(t, ValidateStruct(bad), "bio must be at most 5 characters")

	assert.Error(t, ValidateStruct("not a struct"))
}
