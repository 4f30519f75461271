package programs

import "time"

// Semester bounds for an enrollment.
const (
	MinSemester = 1
	MaxSemester = 12
)

// Career is an academic program.
type Career struct {
	ID   int64
	Code string
	Name string
}

// Enrollment links a student to a career in a given semester.
type Enrollment struct {
	ID            int64
	ControlNumber string
	StudentName   string
	CareerName    string
	Semester      int
	EnrolledAt    time.Time
}
