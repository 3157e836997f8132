package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database,omitempty" example:"ok"`
}

type URLResponse struct {
	URL string `json:"url" example:"https://checkout.stripe.com/c/pay/cs_test_123"`
}

type ClientSecretResponse struct {
	ClientSecret string `json:"clientSecret" example:"cs_test_123_secret_456"`
}

type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

type ReceivedResponse struct {
	Received bool `json:"received" example:"true"`
}

// ValidationErrorResponse carries per-field messages keyed by the JSON field name.
type ValidationErrorResponse struct {
	Error   string            `json:"error" example:"Invalid input"`
	Details ValidationDetails `json:"details"`
}

type ValidationDetails struct {
	FieldErrors map[string][]string `json:"fieldErrors"`
}
