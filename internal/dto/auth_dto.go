package dto

// SignInRequest carries the credential pair for the identity boundary.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignInResponse returns the token pair plus the stored profile.
type SignInResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// PasswordResetRequest asks for a single-use reset link.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetResponse carries the generated link.
type PasswordResetResponse struct {
	ResetLink string `json:"reset_link"`
}
