package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/middleware"
	"github.com/studysync/studysync/internal/models"
)

// Backend is an in-process implementation of the study-session REST API,
// used to exercise the client end to end.
type Backend struct {
	Tokens *TokenIssuer
	store  *campusStore
	logger *logrus.Logger
}

const (
	defaultAccessKey  = "studysync-local-access-signing-key-0001"
	defaultRefreshKey = "studysync-local-refresh-signing-key-0001"
)

func NewBackend(logger *logrus.Logger) (*Backend, error) {
	tokens, err := NewTokenIssuer(defaultAccessKey, defaultRefreshKey, 30*time.Minute, 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	return &Backend{
		Tokens: tokens,
		store:  newCampusStore(),
		logger: logger,
	}, nil
}

func (b *Backend) AddStudent(name, email, password string) (int64, error) {
	return b.store.createStudent(models.NewStudent{Name: name, Email: email, Password: password})
}

func (b *Backend) AddCourse(code, name, instructor string) int64 {
	return b.store.createCourse(code, name, instructor)
}

// Student returns the stored student with the given email.
func (b *Backend) Student(email string) (*models.Student, error) {
	return b.store.studentByEmail(email)
}

func (b *Backend) Router() *mux.Router {
	forms := &formValidator{}
	authHandlers := NewAuthHandlers(b.store, b.Tokens, forms, b.logger)
	courseHandlers := NewCourseHandlers(b.store, forms, b.logger)
	authMiddleware := middleware.NewAuthMiddleware(b.Tokens, b.logger)

	return setupRouter(authHandlers, courseHandlers, authMiddleware)
}

func setupRouter(
	authHandlers *AuthHandlers,
	courseHandlers *CourseHandlers,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/auth/login", authHandlers.Login).Methods("POST")
	router.HandleFunc("/auth/refresh", authHandlers.Refresh).Methods("POST")
	router.HandleFunc("/create_student/", authHandlers.CreateStudent).Methods("POST")

	router.HandleFunc("/course/{id}", courseHandlers.Course).Methods("GET")
	router.HandleFunc("/appointment/{id}", courseHandlers.Appointment).Methods("GET")
	router.HandleFunc("/get_creator/{id}", courseHandlers.Creator).Methods("GET")

	protected := router.NewRoute().Subrouter()
	protected.Use(authMiddleware.RequireAuth)
	protected.HandleFunc("/current_user", courseHandlers.CurrentUser).Methods("GET")
	protected.HandleFunc("/all_courses", courseHandlers.AllCourses).Methods("GET")
	protected.HandleFunc("/get_courses_for_student", courseHandlers.EnrolledCourses).Methods("GET")
	protected.HandleFunc("/set_courses_for_student", courseHandlers.SetEnrolledCourses).Methods("POST")
	protected.HandleFunc("/feed/", courseHandlers.Feed).Methods("GET")
	protected.HandleFunc("/create_appointment/", courseHandlers.CreateAppointment).Methods("POST")
	protected.HandleFunc("/edit_appointment/", courseHandlers.EditAppointment).Methods("POST")
	protected.HandleFunc("/join_appointment/{id}", courseHandlers.JoinAppointment).Methods("POST")
	protected.HandleFunc("/leave_appointment/", courseHandlers.LeaveAppointment).Methods("POST")
	protected.HandleFunc("/end_appointment/", courseHandlers.EndAppointment).Methods("POST")

	return router
}
