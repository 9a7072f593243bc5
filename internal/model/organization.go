package model

// Organization is the NGO profile attached one-to-one to a user with
// RoleNGO. IsApproved only ever moves from false to true.
type Organization struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"userId"`
	OrganizationName string `json:"organizationName"`
	Description      string `json:"description"`
	Website          string `json:"website"`
	IsApproved       bool   `json:"isApproved"`
}
