package library

import "time"

// Loan is a library book loan. ReturnedAt is nil while the book is out.
type Loan struct {
	ID            int64
	ControlNumber string
	StudentName   string
	BookTitle     string
	LoanedAt      time.Time
	ReturnedAt    *time.Time
}

// Outstanding reports whether the book has not been returned.
func (l Loan) Outstanding() bool {
	return l.ReturnedAt == nil
}

// Filter narrows a loan listing. Zero values mean "no filter".
type Filter struct {
	ControlNumber   string
	OutstandingOnly bool
}
