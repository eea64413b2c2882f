package models

// EnrollmentStatus represents the lifecycle of a student's placement in a classroom.
// Only ACTIVE enrollments contribute courses to a student's timetable.
type EnrollmentStatus string

const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusLeft        EnrollmentStatus = "LEFT"
)
