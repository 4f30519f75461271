// Package identity resolves an account to its linked domain record: the
// control number of a student or the personnel code of a staff member.
package identity

// StudentRecord links an account to the students table.
type StudentRecord struct {
	ControlNumber string
	FullName      string
	Career        string
	Semester      int
}

// StaffRecord links an account to the staff table.
type StaffRecord struct {
	PersonnelCode string
	FullName      string
	Department    string
}
