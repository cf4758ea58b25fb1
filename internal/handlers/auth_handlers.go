package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
)

type AuthHandlers struct {
	store  *campusStore
	tokens *TokenIssuer
	forms  *formValidator
	logger *logrus.Logger
}

func NewAuthHandlers(store *campusStore, tokens *TokenIssuer, forms *formValidator, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		store:  store,
		tokens: tokens,
		forms:  forms,
		logger: logger,
	}
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Login handles the OAuth2 password form; username is the student email.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		respondWithError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	student, ok := h.store.authenticate(username, password)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondWithError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	tokens, err := h.tokens.Issue(student.Email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate tokens")
		respondWithError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	respondWithJSON(w, http.StatusOK, tokens)
}

// Refresh rotates both tokens for a valid refresh token.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	refreshToken := r.PostForm.Get("refresh_token")
	if refreshToken == "" {
		respondWithError(w, http.StatusUnauthorized, "Refresh token is required")
		return
	}

	subject, err := h.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		h.logger.WithError(err).Debug("Refresh token rejected")
		respondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	if _, err := h.store.studentByEmail(subject); err != nil {
		respondWithError(w, http.StatusUnauthorized, "Unknown subject")
		return
	}

	tokens, err := h.tokens.Issue(subject)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate new tokens")
		respondWithError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	respondWithJSON(w, http.StatusOK, tokens)
}

// CreateStudent registers a student and returns the new id.
func (h *AuthHandlers) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.NewStudent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.forms.Check(req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := h.store.createStudent(req)
	switch {
	case errors.Is(err, errAlreadyExists):
		respondWithError(w, http.StatusConflict, "Email already registered")
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to create student")
		respondWithError(w, http.StatusInternalServerError, "Failed to create student")
		return
	}

	h.logger.WithField("student_id", id).Info("Student created")
	respondWithJSON(w, http.StatusOK, id)
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, ErrorResponse{Detail: message})
}

// respondWithStoreError maps store sentinels onto HTTP statuses.
func respondWithStoreError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, errNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errForbidden):
		respondWithError(w, http.StatusForbidden, "Only the creator may change this appointment")
	case errors.Is(err, errAlreadyExists):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		logger.WithError(err).Error("Store operation failed")
		respondWithError(w, http.StatusInternalServerError, "Internal error")
	}
}
