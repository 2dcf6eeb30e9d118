package entities

import "slices"

const RoleAdmin = "ADMIN"

type User struct {
	ID          int64  `json:"id"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	PhoneNumber string `json:"phone_number"`
}

// IsAdmin treats both the ADMIN role and the configured allowlist as admins.
func (u User) IsAdmin(adminEmails []string) bool {
	return u.Role == RoleAdmin || slices.Contains(adminEmails, u.Email)
}

func (u User) CanAccess(t Ticket, adminEmails []string) bool {
	return t.UserID == u.ID || u.IsAdmin(adminEmails)
}
