package dto

// LoginRequest accepts a username or an email in Username
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CancelTaskRequest names the capacity the caller cancels in
type CancelTaskRequest struct {
	Role string `json:"role" binding:"required,oneof=publisher taker"`
}
