package models

type Appointment struct {
	ID               int64   `json:"id"`
	CreatorStudentID int64   `json:"creator_student_id"`
	CourseID         int64   `json:"course_id"`
	StartTime        string  `json:"start_time"`
	EndTime          string  `json:"end_time"`
	AdditionalInfo   string  `json:"additional_info,omitempty"`
	Location         string  `json:"location,omitempty"`
	Attendees        []int64 `json:"attendees,omitempty"`
}

// AppointmentInput is the body of /create_appointment/ and /edit_appointment/.
type AppointmentInput struct {
	CourseID       int64  `json:"course_id" validate:"gt=0"`
	StartTime      string `json:"start_time" validate:"required"`
	EndTime        string `json:"end_time" validate:"required"`
	Location       string `json:"location,omitempty"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// FeedPost is an appointment joined with its course and creator.
type FeedPost struct {
	ID             int64  `json:"id"`
	CreatorID      int64  `json:"creator_id"`
	CreatorName    string `json:"creator_name"`
	CourseID       int64  `json:"course_id"`
	CourseCode     string `json:"course_code"`
	CourseName     string `json:"course_name"`
	From           string `json:"from"`
	To             string `json:"to"`
	Location       string `json:"location,omitempty"`
	AdditionalInfo string `json:"additional_info,omitempty"`
	Joined         bool   `json:"joined"`
	IsCreator      bool   `json:"is_creator"`
}
