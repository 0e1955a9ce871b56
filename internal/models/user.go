package models

// User is a directory entry the core reads for waitlist eligibility.
type User struct {
	ID      string  `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Surname string  `db:"surname" json:"surname"`
	Email   string  `db:"email" json:"email"`
	Section *string `db:"section" json:"section,omitempty"`
}
