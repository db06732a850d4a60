package domain

import "time"

// Member is a user of the closed-membership system. Accounts are provisioned
// out of band; this service only authenticates and authorizes them.
type Member struct {
	ID        string
	Username  string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
