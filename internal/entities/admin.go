package entities

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// ImportResult summarises a bulk product import.
type ImportResult struct {
	Success int      `json:"success"`
	Errors  []string `json:"errors"`
}
