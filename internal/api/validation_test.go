package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	FullName        string `json:"fullName" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func TestValidateStruct_UsesJSONFieldNames(t *testing.T) {
	errs := ValidateStruct(&signupForm{
		FullName:        "J",
		Email:           "bad",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	})

	fields := FieldErrors(errs)
	require.Len(t, fields, 3)
	assert.Equal(t, []string{"fullName must be at least 2 characters"}, fields["fullName"])
	assert.Equal(t, []string{"email must be a valid email address"}, fields["email"])
	assert.Equal(t, []string{"confirmPassword must match password"}, fields["confirmPassword"])
}

func TestValidateStruct_Valid(t *testing.T) {
	errs := ValidateStruct(&signupForm{
		FullName:        "Jo",
		Email:           "jo@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	assert.Empty(t, errs)
}

func TestBindAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
	}{
		{"malformed json", `{"fullName":`, false, http.StatusBadRequest},
		{"failing fields", `{"fullName":"J","email":"x","password":"p","confirmPassword":"p"}`, false, http.StatusBadRequest},
		{"valid", `{"fullName":"Jo","email":"jo@example.com","password":"secret1","confirmPassword":"secret1"}`, true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var form signupForm
			ok := BindAndValidate(c, &form)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRespondWithValidationErrors_Shape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithValidationErrors(c, []ValidationError{{Field: "phone", Tag: "min", Message: "phone must be at least 10 characters"}})

	var body ValidationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid input", body.Error)
	assert.Equal(t, []string{"phone must be at least 10 characters"}, body.Details.FieldErrors["phone"])
}
