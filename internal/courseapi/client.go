package courseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
	"github.com/studysync/studysync/internal/service"
)

const (
	PathCurrentUser       = "/current_user"
	PathAllCourses        = "/all_courses"
	PathEnrolledCourses   = "/get_courses_for_student"
	PathSetCourses        = "/set_courses_for_student"
	PathFeed              = "/feed/"
	PathCourse            = "/course/"
	PathAppointment       = "/appointment/"
	PathCreator           = "/get_creator/"
	PathCreateAppointment = "/create_appointment/"
	PathEditAppointment   = "/edit_appointment/"
	PathJoinAppointment   = "/join_appointment/"
	PathLeaveAppointment  = "/leave_appointment/"
	PathEndAppointment    = "/end_appointment/"
)

const defaultFeedConcurrency = 4

// Fetcher performs authenticated requests. *service.AuthClient implements it.
type Fetcher interface {
	FetchWithAuth(ctx context.Context, req service.Request) (*http.Response, error)
}

// Client wraps every endpoint of the study-session API. Authenticated calls
// go through the Fetcher; public lookups use the plain HTTP client.
type Client struct {
	auth            Fetcher
	httpClient      service.HTTPDoer
	baseURL         *url.URL
	logger          *logrus.Logger
	feedConcurrency int
}

func NewClient(auth Fetcher, httpClient service.HTTPDoer, baseURL *url.URL, logger *logrus.Logger) *Client {
	return &Client{
		auth:            auth,
		httpClient:      httpClient,
		baseURL:         baseURL,
		logger:          logger,
		feedConcurrency: defaultFeedConcurrency,
	}
}

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
}

func idPath(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

func (c *Client) CurrentUser(ctx context.Context) (*models.Student, error) {
	var st models.Student
	if err := c.authJSON(ctx, http.MethodGet, PathCurrentUser, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// AllCourses lists the course catalog.
func (c *Client) AllCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := c.authJSON(ctx, http.MethodGet, PathAllCourses, nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *Client) EnrolledCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := c.authJSON(ctx, http.MethodGet, PathEnrolledCourses, nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// SetEnrolledCourses replaces the caller's enrollment with courseIDs.
func (c *Client) SetEnrolledCourses(ctx context.Context, courseIDs []int64) error {
	if courseIDs == nil {
		courseIDs = []int64{}
	}
	return c.authJSON(ctx, http.MethodPost, PathSetCourses, models.CourseEnrollment{CourseIDs: courseIDs}, nil)
}

func (c *Client) Feed(ctx context.Context) ([]models.Appointment, error) {
	var appts []models.Appointment
	if err := c.authJSON(ctx, http.MethodGet, PathFeed, nil, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

func (c *Client) Course(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := c.publicJSON(ctx, idPath(PathCourse, id), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) Appointment(ctx context.Context, id int64) (*models.Appointment, error) {
	var appt models.Appointment
	if err := c.publicJSON(ctx, idPath(PathAppointment, id), &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) Creator(ctx context.Context, appointmentID int64) (*models.Creator, error) {
	var creator models.Creator
	if err := c.publicJSON(ctx, idPath(PathCreator, appointmentID), &creator); err != nil {
		return nil, err
	}
	return &creator, nil
}

func (c *Client) CreateAppointment(ctx context.Context, in models.AppointmentInput) (int64, error) {
	if err := validateAppointment(in); err != nil {
		return 0, err
	}

	var id int64
	if err := c.authJSON(ctx, http.MethodPost, PathCreateAppointment, in, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// EditAppointment updates the appointment the caller created.
func (c *Client) EditAppointment(ctx context.Context, in models.AppointmentInput) error {
	if err := validateAppointment(in); err != nil {
		return err
	}
	return c.authJSON(ctx, http.MethodPost, PathEditAppointment, in, nil)
}

func (c *Client) JoinAppointment(ctx context.Context, id int64) error {
	return c.authJSON(ctx, http.MethodPost, idPath(PathJoinAppointment, id), nil, nil)
}

func (c *Client) LeaveAppointment(ctx context.Context) error {
	return c.authJSON(ctx, http.MethodPost, PathLeaveAppointment, nil, nil)
}

func (c *Client) EndAppointment(ctx context.Context) error {
	return c.authJSON(ctx, http.MethodPost, PathEndAppointment, nil, nil)
}

func validateAppointment(in models.AppointmentInput) error {
	switch {
	case in.CourseID == 0:
		return fmt.Errorf("%w: course_id", service.ErrMissingField)
	case in.StartTime == "":
		return fmt.Errorf("%w: start_time", service.ErrMissingField)
	case in.EndTime == "":
		return fmt.Errorf("%w: end_time", service.ErrMissingField)
	}
	return nil
}

func (c *Client) authJSON(ctx context.Context, method, path string, in, out interface{}) error {
	req := service.Request{Target: path, Method: method}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", path, err)
		}
		req.Body = body
	}

	resp, err := c.auth.FetchWithAuth(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, method, path, out)
}

func (c *Client) publicJSON(ctx context.Context, path string, out interface{}) error {
	target, err := service.ResolveTarget(c.baseURL, path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", service.ErrTransport, path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, http.MethodGet, path, out)
}

func decodeResponse(resp *http.Response, method, path string, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp, method, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func newStatusError(resp *http.Response, method, path string) *StatusError {
	serr := &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil {
		serr.Detail = detail.Detail
	} else if len(bytes.TrimSpace(body)) > 0 {
		serr.Detail = string(bytes.TrimSpace(body))
	}
	return serr
}
