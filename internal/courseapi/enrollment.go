package courseapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
)

// ToggleEnrollment enrolls the caller in the course with the given code, or
// drops it when already enrolled. It reports whether the caller is enrolled
// afterwards.
func (c *Client) ToggleEnrollment(ctx context.Context, code string) (bool, error) {
	catalog, err := c.AllCourses(ctx)
	if err != nil {
		return false, err
	}

	course, ok := findCourse(catalog, code)
	if !ok {
		return false, fmt.Errorf("unknown course %q", code)
	}

	enrolled, err := c.EnrolledCourses(ctx)
	if err != nil {
		return false, err
	}

	ids := make([]int64, 0, len(enrolled)+1)
	found := false
	for _, e := range enrolled {
		if e.ID == course.ID {
			found = true
			continue
		}
		ids = append(ids, e.ID)
	}
	if !found {
		ids = append(ids, course.ID)
	}

	if err := c.SetEnrolledCourses(ctx, ids); err != nil {
		return false, err
	}

	c.logger.WithFields(logrus.Fields{
		"course_id": course.ID,
		"enrolled":  !found,
	}).Info("Enrollment updated")

	return !found, nil
}

func findCourse(courses []models.Course, code string) (models.Course, bool) {
	want := normalizeCode(code)
	for _, c := range courses {
		if normalizeCode(c.Code) == want {
			return c, true
		}
	}
	return models.Course{}, false
}

// normalizeCode makes "cs101", "CS 101" and " Cs  101" compare equal.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}
