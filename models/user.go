package models

import "time"

// Role is the account type; each role logs in through its own endpoint.
type Role string

const (
	RoleReader    Role = "reader"
	RoleLibrarian Role = "librarian"
	RoleManager   Role = "manager"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Genders lists the accepted gender values in display order.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

type User struct {
	ID          string     `json:"user_id" db:"user_id"`
	Username    string     `json:"username" db:"username"`
	Password    string     `json:"-" db:"password"` // bcrypt hash
	FullName    string     `json:"full_name" db:"full_name"`
	Email       string     `json:"email" db:"email"`
	PhoneNumber *string    `json:"phone_number" db:"phone_number"`
	DOB         *time.Time `json:"dob" db:"dob"`
	Address     *string    `json:"address" db:"address"`
	Gender      *Gender    `json:"gender" db:"gender"`
	Role        Role       `json:"role" db:"role"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty" db:"last_login"`
	LastLogout  *time.Time `json:"last_logout,omitempty" db:"last_logout"`
}

type Reader struct {
	ID            string `json:"reader_id" db:"reader_id"`
	UserID        string `json:"user_id" db:"user_id"`
	TotalBorrowed int    `json:"total_borrowed" db:"total_borrowed"`
}

type Librarian struct {
	ID                string `json:"lib_id" db:"lib_id"`
	UserID            string `json:"user_id" db:"user_id"`
	YearsOfExperience int    `json:"years_of_experience" db:"years_of_experience"`
}

type Manager struct {
	ID          string `json:"manager_id" db:"manager_id"`
	UserID      string `json:"user_id" db:"user_id"`
	AccessLevel int    `json:"access_level" db:"access_level"`
}

// LibrarianAccount joins a librarian profile with its user row.
type LibrarianAccount struct {
	Librarian
	Username    string    `json:"username" db:"username"`
	FullName    string    `json:"full_name" db:"full_name"`
	Email       string    `json:"email" db:"email"`
	PhoneNumber *string   `json:"phone_number" db:"phone_number"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginUser struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        LoginUser `json:"user"`
}

type RegisterRequest struct {
	Username   string `json:"username" validate:"required,min=3,max=50"`
	Email      string `json:"email" validate:"required,email,max=100"`
	Password   string `json:"password" validate:"required,min=6"`
	FullName   string `json:"full_name" validate:"required,max=100"`
	DOB        string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Gender     string `json:"gender" validate:"omitempty,oneof=male female other"`
	Phone      string `json:"phone" validate:"omitempty,max=15"`
	Address    string `json:"address"`
	ReaderType string `json:"reader_type" validate:"omitempty,oneof=standard vip"`
}

type RegisterResponse struct {
	UserID     string `json:"user_id"`
	ReaderID   string `json:"reader_id"`
	CardID     string `json:"card_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	ReaderType string `json:"reader_type"`
	CardFee    int    `json:"card_fee"`
}

type CreateLibrarianRequest struct {
	Username          string `json:"username" validate:"required,min=3,max=50"`
	Password          string `json:"password" validate:"required,min=6"`
	FullName          string `json:"full_name" validate:"required,max=100"`
	Email             string `json:"email" validate:"required,email"`
	PhoneNumber       string `json:"phone_number" validate:"omitempty,max=15"`
	YearsOfExperience int    `json:"years_of_experience" validate:"gte=0"`
}

// OptionSet describes one registration form field.
type OptionSet struct {
	Options     []string          `json:"options"`
	Required    bool              `json:"required"`
	Default     string            `json:"default,omitempty"`
	Description map[string]string `json:"description,omitempty"`
}

type RegistrationOptions struct {
	Gender     OptionSet `json:"gender"`
	ReaderType OptionSet `json:"reader_type"`
}
