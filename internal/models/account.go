package models

import "encoding/json"

// Envelope wraps every REST response.
type Envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CodeSuccess marks a successful envelope.
const CodeSuccess = "000"

// Success reports whether the envelope carries a business success.
func (e Envelope) Success() bool {
	return e.Code == CodeSuccess
}

// LoginRequest authenticates by phone number.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// LoginResponse carries the bearer credential.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// PhoneLookupRequest checks whether a phone number is registered.
type PhoneLookupRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// PhoneLookupResponse answers PhoneLookupRequest.
type PhoneLookupResponse struct {
	Exists bool `json:"exists"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	Email       string `json:"email,omitempty"`
}

// User is the profile returned by v1/users/me.
type User struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
	FullName    string `json:"full_name"`
	Email       string `json:"email,omitempty"`
	IDTag       string `json:"id_tag,omitempty"`
}

// UpdateUserRequest changes profile fields.
type UpdateUserRequest struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Location is a charging station site.
type Location struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Connectors []Connector `json:"connectors,omitempty"`
}

// Connector is one plug at a location.
type Connector struct {
	ID       string  `json:"id"`
	Number   int     `json:"number"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	PowerKW  float64 `json:"power_kw"`
	PriceKWh float64 `json:"price_per_kwh"`
}

// Page is a paginated list.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}
