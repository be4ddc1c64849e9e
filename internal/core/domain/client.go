package domain

import "strings"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Client models a customer of the rental service.
type Client struct {
	ID                 string `json:"id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone,omitempty"`
	Role               string `json:"role"`
	ActiveRentalsCount int    `json:"active_rentals_count"`
}

// FullName returns "first last".
func (c Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// MatchesFullName reports whether name equals "first last", ignoring case
// and surrounding whitespace.
func (c Client) MatchesFullName(name string) bool {
	return strings.EqualFold(c.FullName(), strings.Join(strings.Fields(name), " "))
}

// Caller is the authenticated actor of an engine operation.
type Caller struct {
	ID   string
	Role string
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Owns reports whether the rental belongs to the caller.
func (c Caller) Owns(r *Rental) bool {
	return r != nil && c.ID != "" && r.ClientID == c.ID
}
