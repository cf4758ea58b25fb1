package courseapi

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
	"golang.org/x/sync/errgroup"
)

// FeedFilter selects feed posts. A zero CourseID means every enrolled course.
type FeedFilter struct {
	CourseID int64
}

// BuildFeed joins the caller's feed with course and creator details, keeps
// the posts matching filter and returns them newest first.
func (c *Client) BuildFeed(ctx context.Context, filter FeedFilter) ([]models.FeedPost, error) {
	var (
		user     *models.Student
		enrolled []models.Course
		appts    []models.Appointment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = c.CurrentUser(gctx)
		return err
	})
	g.Go(func() (err error) {
		enrolled, err = c.EnrolledCourses(gctx)
		return err
	})
	g.Go(func() (err error) {
		appts, err = c.Feed(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keep := make(map[int64]bool, len(enrolled))
	if filter.CourseID != 0 {
		keep[filter.CourseID] = true
	} else {
		for _, course := range enrolled {
			keep[course.ID] = true
		}
	}

	selected := make([]models.Appointment, 0, len(appts))
	for _, a := range appts {
		if keep[a.CourseID] {
			selected = append(selected, a)
		}
	}

	posts := make([]models.FeedPost, len(selected))

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.feedConcurrency)
	for i, a := range selected {
		i, a := i, a
		g.Go(func() error {
			course, err := c.Course(gctx, a.CourseID)
			if err != nil {
				return fmt.Errorf("course for appointment %d: %w", a.ID, err)
			}
			creator, err := c.Creator(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("creator for appointment %d: %w", a.ID, err)
			}

			// Newest first: the feed lists appointments oldest first.
			posts[len(selected)-1-i] = newFeedPost(a, course, creator, user)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"appointments": len(appts),
		"posts":        len(posts),
		"course_id":    filter.CourseID,
	}).Debug("Feed built")

	return posts, nil
}

func newFeedPost(a models.Appointment, course *models.Course, creator *models.Creator, user *models.Student) models.FeedPost {
	return models.FeedPost{
		ID:             a.ID,
		CreatorID:      a.CreatorStudentID,
		CreatorName:    creator.Name,
		CourseID:       course.ID,
		CourseCode:     course.Code,
		CourseName:     course.Name,
		From:           a.StartTime,
		To:             a.EndTime,
		Location:       a.Location,
		AdditionalInfo: a.AdditionalInfo,
		Joined:         user.AppointmentID != nil && *user.AppointmentID == a.ID,
		IsCreator:      a.CreatorStudentID == user.ID,
	}
}
