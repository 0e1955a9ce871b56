package models

// Organization is a student organization the event directory references by
// name. Resolution is case-insensitive exact-name matching.
type Organization struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Department string `db:"department" json:"department"`
}
