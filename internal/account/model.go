package account

type SignupRequest struct {
	FullName        string `json:"fullName" validate:"required,min=2" example:"Jordan Tremblay"`
	Email           string `json:"email" validate:"required,email" example:"jordan@example.com"`
	Phone           string `json:"phone" validate:"required,min=10" example:"5145550199"`
	Password        string `json:"password" validate:"required,min=6" example:"s3cret!"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password" example:"s3cret!"`
	Locale          string `json:"locale,omitempty" example:"en"`
}

type SignupResponse struct {
	UserID string `json:"userId"`
	// ConfirmationRequired is true when no session was issued and the
	// visitor has to follow the emailed link first.
	ConfirmationRequired bool `json:"confirmationRequired"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"jordan@example.com"`
	Password string `json:"password" validate:"required,min=6" example:"s3cret!"`
	Redirect string `json:"redirect,omitempty" example:"/en/dashboard/bookings"`
	Locale   string `json:"locale,omitempty" example:"en"`
}

type LoginResponse struct {
	Redirect string `json:"redirect" example:"/en/dashboard"`
}

type ForgotPasswordRequest struct {
	Email  string `json:"email" validate:"required,email" example:"jordan@example.com"`
	Locale string `json:"locale,omitempty" example:"en"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}
