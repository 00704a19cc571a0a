package auth

import "github.com/lemussistemas/salsa-hn-frontend/users"

// tokenPair is returned by /auth/login/ and /auth/refresh/.
type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type registerResponse struct {
	User    users.User `json:"user"`
	Tokens  tokenPair  `json:"tokens"`
	Message string     `json:"message,omitempty"`
}

type profileResponse struct {
	User    users.User `json:"user"`
	Message string     `json:"message,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type changePasswordRequest struct {
	OldPassword  string `json:"old_password"`
	NewPassword  string `json:"new_password"`
	NewPassword2 string `json:"new_password2"`
}
