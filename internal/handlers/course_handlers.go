package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/middleware"
	"github.com/studysync/studysync/internal/models"
)

type CourseHandlers struct {
	store  *campusStore
	forms  *formValidator
	logger *logrus.Logger
}

func NewCourseHandlers(store *campusStore, forms *formValidator, logger *logrus.Logger) *CourseHandlers {
	return &CourseHandlers{
		store:  store,
		forms:  forms,
		logger: logger,
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil
}

// subject is set by middleware.RequireAuth on every protected route.
func subject(r *http.Request) string {
	s, _ := middleware.Subject(r.Context())
	return s
}

func (h *CourseHandlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	student, err := h.store.studentByEmail(subject(r))
	if err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, student)
}

func (h *CourseHandlers) AllCourses(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.store.allCourses())
}

func (h *CourseHandlers) EnrolledCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.store.coursesFor(subject(r))
	if err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, courses)
}

func (h *CourseHandlers) SetEnrolledCourses(w http.ResponseWriter, r *http.Request) {
	var req models.CourseEnrollment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.setCourses(subject(r), req.CourseIDs); err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, req.CourseIDs)
}

func (h *CourseHandlers) Feed(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.store.appointmentsList())
}

func (h *CourseHandlers) Course(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid course id")
		return
	}

	course, err := h.store.course(id)
	if err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, course)
}

func (h *CourseHandlers) Appointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid appointment id")
		return
	}

	appt, err := h.store.appointment(id)
	if err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appt)
}

func (h *CourseHandlers) Creator(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid appointment id")
		return
	}

	creator, err := h.store.creator(id)
	if err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, creator)
}

func (h *CourseHandlers) decodeAppointment(w http.ResponseWriter, r *http.Request) (models.AppointmentInput, bool) {
	var in models.AppointmentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return in, false
	}

	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	if err := h.forms.Check(in); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return in, false
	}
	return in, true
}

func (h *CourseHandlers) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeAppointment(w, r)
	if !ok {
		return
	}

	id, err := h.store.createAppointment(subject(r), in)
	if err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}

	h.logger.WithField("appointment_id", id).Info("Appointment created")
	respondWithJSON(w, http.StatusOK, id)
}

func (h *CourseHandlers) EditAppointment(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeAppointment(w, r)
	if !ok {
		return
	}

	if err := h.store.editAppointment(subject(r), in); err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Appointment updated"})
}

func (h *CourseHandlers) JoinAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid appointment id")
		return
	}

	if err := h.store.join(subject(r), id); err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Joined"})
}

func (h *CourseHandlers) LeaveAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.store.leave(subject(r)); err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Left"})
}

func (h *CourseHandlers) EndAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.store.end(subject(r)); err != nil {
		respondWithStoreError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Ended"})
}
