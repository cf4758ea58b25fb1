package models

type Student struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	AppointmentID *int64  `json:"appointment_id"`
	Courses       []int64 `json:"courses"`
}

// Initials returns the first letter of every word in the name.
func (s *Student) Initials() string {
	var out []rune
	inWord := false
	for _, r := range s.Name {
		if r == ' ' {
			inWord = false
			continue
		}
		if !inWord {
			out = append(out, r)
			inWord = true
		}
	}
	return string(out)
}

type NewStudent struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Creator struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
