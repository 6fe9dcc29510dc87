// Package mockgateway is a runnable stand-in for the externally-owned
// verification backend. It implements the same wire contract the client
// speaks so the full onboarding flow can be exercised without the real
// service: registration with hashed credentials, face approval, and a
// scriptable NIC verdict per NIC number.
package mockgateway

import (
	"time"

	"github.com/google/uuid"
)

// User is an account registered with the mock backend.
type User struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	PhoneNumber  string
	Address      string
	DateOfBirth  string
	NICNumber    string
	Device       string // browser/OS summary captured at registration
	RegisteredAt time.Time
	FaceVerified bool
	NicVerified  bool
}

// registerRequest mirrors the client's registration payload.
type registerRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	DateOfBirth string `json:"dateOfBirth"`
	NICNumber   string `json:"nicNumber"`
}

// envelope is the wire response wrapper for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// nicRejection is the data payload of a refused NIC verification.
type nicRejection struct {
	Error       string   `json:"error"`
	UserMessage string   `json:"userMessage"`
	Suggestions []string `json:"suggestions"`
}
