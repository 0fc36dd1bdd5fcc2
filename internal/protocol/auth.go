package protocol

// HTTP endpoints and the session cookie.

const (
	// LoginPath accepts a LoginRequest and answers with a LoginResponse.
	LoginPath = "/api/auth/login"

	// DashboardPath is where a successful login lands.
	DashboardPath = "/dashboard.html"

	// SessionCookie is the cookie the server issues on login.
	SessionCookie = "neonddos_session"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by POST /api/auth/login.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
