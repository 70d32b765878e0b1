package auth

import (
	"fmt"
	"time"
)

// User is a stored account. Passwords are kept exactly as entered.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func (u User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if u.Email == "" && u.Phone == "" {
		return fmt.Errorf("user %s has neither email nor phone", u.ID)
	}
	return nil
}

// Session is the reduced copy of a User stored as the client's currentUser.
type Session struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (u User) Session() Session {
	return Session{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OTPRequest struct {
	Phone string `json:"phone"`
}

type OTPVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

// otpIssue is the pending one-time code for a phone number.
type otpIssue struct {
	Code     string
	IssuedAt time.Time
}
