package handlers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/studysync/studysync/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	errNotFound      = errors.New("not found")
	errAlreadyExists = errors.New("already exists")
	errForbidden     = errors.New("forbidden")
)

type studentRecord struct {
	models.Student
	passwordHash []byte
}

// campusStore holds students, courses and appointments in memory.
type campusStore struct {
	mu           sync.Mutex
	nextID       int64
	students     map[int64]*studentRecord
	byEmail      map[string]int64
	courses      map[int64]*models.Course
	appointments map[int64]*models.Appointment
}

func newCampusStore() *campusStore {
	return &campusStore{
		students:     map[int64]*studentRecord{},
		byEmail:      map[string]int64{},
		courses:      map[int64]*models.Course{},
		appointments: map[int64]*models.Appointment{},
	}
}

func (s *campusStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *campusStore) createStudent(in models.NewStudent) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(in.Email)
	if _, ok := s.byEmail[email]; ok {
		return 0, errAlreadyExists
	}

	id := s.id()
	s.students[id] = &studentRecord{
		Student:      models.Student{ID: id, Name: in.Name, Email: in.Email, Courses: []int64{}},
		passwordHash: hash,
	}
	s.byEmail[email] = id
	return id, nil
}

func (s *campusStore) authenticate(email, password string) (*models.Student, bool) {
	s.mu.Lock()
	rec, ok := s.lookupEmail(email)
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	if bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)) != nil {
		return nil, false
	}
	st := rec.Student
	return &st, true
}

func (s *campusStore) lookupEmail(email string) (*studentRecord, bool) {
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, false
	}
	return s.students[id], true
}

func (s *campusStore) studentByEmail(email string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupEmail(email)
	if !ok {
		return nil, errNotFound
	}
	st := rec.Student
	st.Courses = append([]int64(nil), rec.Courses...)
	return &st, nil
}

func (s *campusStore) createCourse(code, name, instructor string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.id()
	s.courses[id] = &models.Course{ID: id, Code: code, Name: name, Instructor: instructor}
	return id
}

func (s *campusStore) allCourses() []models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *campusStore) course(id int64) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, errNotFound
	}
	out := *c
	out.Students = s.enrolled(id)
	return &out, nil
}

func (s *campusStore) enrolled(courseID int64) []int64 {
	var ids []int64
	for _, st := range s.students {
		for _, c := range st.Courses {
			if c == courseID {
				ids = append(ids, st.ID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *campusStore) coursesFor(email string) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupEmail(email)
	if !ok {
		return nil, errNotFound
	}

	out := make([]models.Course, 0, len(rec.Courses))
	for _, id := range rec.Courses {
		if c, ok := s.courses[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *campusStore) setCourses(email string, courseIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupEmail(email)
	if !ok {
		return errNotFound
	}
	for _, id := range courseIDs {
		if _, ok := s.courses[id]; !ok {
			return fmt.Errorf("course %d: %w", id, errNotFound)
		}
	}
	rec.Courses = append([]int64{}, courseIDs...)
	return nil
}

func (s *campusStore) appointmentsList() []models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, s.withAttendees(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *campusStore) withAttendees(a *models.Appointment) models.Appointment {
	out := *a
	out.Attendees = nil
	for _, st := range s.students {
		if st.AppointmentID != nil && *st.AppointmentID == a.ID {
			out.Attendees = append(out.Attendees, st.ID)
		}
	}
	sort.Slice(out.Attendees, func(i, j int) bool { return out.Attendees[i] < out.Attendees[j] })
	return out
}

func (s *campusStore) appointment(id int64) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, errNotFound
	}
	out := s.withAttendees(a)
	return &out, nil
}

func (s *campusStore) creator(appointmentID int64) (*models.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[appointmentID]
	if !ok {
		return nil, errNotFound
	}
	st, ok := s.students[a.CreatorStudentID]
	if !ok {
		return nil, errNotFound
	}
	return &models.Creator{ID: st.ID, Name: st.Name}, nil
}

// createAppointment stores a new appointment and makes its creator attend it.
func (s *campusStore) createAppointment(email string, in models.AppointmentInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupEmail(email)
	if !ok {
		return 0, errNotFound
	}
	if _, ok := s.courses[in.CourseID]; !ok {
		return 0, fmt.Errorf("course %d: %w", in.CourseID, errNotFound)
	}

	id := s.id()
	s.appointments[id] = &models.Appointment{
		ID:               id,
		CreatorStudentID: rec.ID,
		CourseID:         in.CourseID,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		Location:         in.Location,
		AdditionalInfo:   in.AdditionalInfo,
	}
	rec.AppointmentID = &id
	return id, nil
}

// editAppointment updates the appointment the caller attends, which the
// caller must have created.
func (s *campusStore) editAppointment(email string, in models.AppointmentInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.ownAppointment(email)
	if err != nil {
		return err
	}
	if _, ok := s.courses[in.CourseID]; !ok {
		return fmt.Errorf("course %d: %w", in.CourseID, errNotFound)
	}

	a.CourseID = in.CourseID
	a.StartTime = in.StartTime
	a.EndTime = in.EndTime
	a.Location = in.Location
	a.AdditionalInfo = in.AdditionalInfo
	return nil
}

func (s *campusStore) ownAppointment(email string) (*models.Appointment, error) {
	rec, ok := s.lookupEmail(email)
	if !ok {
		return nil, errNotFound
	}
	if rec.AppointmentID == nil {
		return nil, errNotFound
	}
	a, ok := s.appointments[*rec.AppointmentID]
	if !ok {
		return nil, errNotFound
	}
	if a.CreatorStudentID != rec.ID {
		return nil, errForbidden
	}
	return a, nil
}

func (s *campusStore) join(email string, appointmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupEmail(email)
	if !ok {
		return errNotFound
	}
	if _, ok := s.appointments[appointmentID]; !ok {
		return errNotFound
	}
	id := appointmentID
	rec.AppointmentID = &id
	return nil
}

func (s *campusStore) leave(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupEmail(email)
	if !ok {
		return errNotFound
	}
	if rec.AppointmentID == nil {
		return errNotFound
	}
	rec.AppointmentID = nil
	return nil
}

// end deletes the caller's own appointment and releases its attendees.
func (s *campusStore) end(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.ownAppointment(email)
	if err != nil {
		return err
	}
	for _, st := range s.students {
		if st.AppointmentID != nil && *st.AppointmentID == a.ID {
			st.AppointmentID = nil
		}
	}
	delete(s.appointments, a.ID)
	return nil
}
