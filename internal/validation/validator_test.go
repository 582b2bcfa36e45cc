package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type siteRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=10"`
	Status   *string `json:"status" validate:"oneof=active inactive"`
	MaxUsers int     `json:"maxUsers" validate:"min=0,max=100"`
}

func TestValidateRequired(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&loginRequest{Email: "a@b.com", Password: "x"}))

	err := v.Validate(&loginRequest{Email: "a@b.com"})
	assert.ErrorContains(t, err, "password")

	err = v.Validate(&loginRequest{Password: "x"})
	assert.ErrorContains(t, err, "email")
}

func TestValidateEmail(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&loginRequest{Email: "ops@example.com", Password: "x"}))
	assert.Error(t, v.Validate(&loginRequest{Email: "not-an-email", Password: "x"}))
}

func TestValidateBounds(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&siteRequest{Name: "Depot"}))
	assert.ErrorContains(t, v.Validate(&siteRequest{Name: "D"}), "minimum length")
	assert.ErrorContains(t, v.Validate(&siteRequest{Name: "a very long name"}), "maximum length")
	assert.ErrorContains(t, v.Validate(&siteRequest{Name: "Depot", MaxUsers: 200}), "maximum value")
	assert.ErrorContains(t, v.Validate(&siteRequest{Name: "Depot", MaxUsers: -1}), "minimum value")
}

func TestValidateOneOf(t *testing.T) {
	v := NewValidator()

	active := "active"
	junk := "frozen"

	assert.NoError(t, v.Validate(&siteRequest{Name: "Depot", Status: &active}))
	assert.ErrorContains(t, v.Validate(&siteRequest{Name: "Depot", Status: &junk}), "one of")

	// Nil optional pointers pass.
	assert.NoError(t, v.Validate(&siteRequest{Name: "Depot"}))
}

func TestValidateRejectsNonStructs(t *testing.T) {
	v := NewValidator()
	assert.Error(t, v.Validate("not a struct"))
}
