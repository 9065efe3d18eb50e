package domain

import "time"

// AppointmentHistory is an immutable audit trail entry for a committed transition.
type AppointmentHistory struct {
	ID            string
	AppointmentID string
	ChangedByRole Role
	ChangedByID   *string
	FromStatus    Status
	ToStatus      Status
	Trigger       string
	Comment       string
	CreatedAt     time.Time
}
