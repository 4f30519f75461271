package schedule

import "time"

// Room is a reservable classroom.
type Room struct {
	ID       int64
	Name     string
	Capacity int
}

// Reservation books a room for a time window.
type Reservation struct {
	ID        int64
	RoomID    int64
	RoomName  string
	StaffName string
	Purpose   string
	StartsAt  time.Time
	EndsAt    time.Time
}

// Overlaps reports whether two half-open windows [StartsAt, EndsAt)
// intersect.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.StartsAt.Before(end) && r.EndsAt.After(start)
}
