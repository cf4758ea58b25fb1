package models

type Course struct {
	ID         int64   `json:"id"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Instructor string  `json:"instructor,omitempty"`
	Students   []int64 `json:"students,omitempty"`
}

type CourseEnrollment struct {
	CourseIDs []int64 `json:"course_ids"`
}
