package courseapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/studysync/studysync/internal/models"
)

// seedFeed creates three appointments: Ada in CS 101, Grace in MATH 201 and
// Grace in PHYS 150, in that order. Ada is enrolled in CS 101 and MATH 201
// and has joined Grace's MATH 201 session.
func seedFeed(t *testing.T, f *fixture) (adaCS, graceMath, gracePhys int64) {
	t.Helper()
	ctx := context.Background()

	f.login(t, "grace@example.edu")
	require.NoError(t, f.client.SetEnrolledCourses(ctx, []int64{f.math201, f.phys150}))

	f.login(t, "ada@example.edu")
	require.NoError(t, f.client.SetEnrolledCourses(ctx, []int64{f.cs101, f.math201}))
	adaCS, err := f.client.CreateAppointment(ctx, models.AppointmentInput{
		CourseID: f.cs101, StartTime: "2025-05-06 09:00", EndTime: "2025-05-06 10:00", Location: "Library",
	})
	require.NoError(t, err)

	f.login(t, "grace@example.edu")
	graceMath, err = f.client.CreateAppointment(ctx, models.AppointmentInput{
		CourseID: f.math201, StartTime: "2025-05-06 11:00", EndTime: "2025-05-06 12:00",
	})
	require.NoError(t, err)
	require.NoError(t, f.client.LeaveAppointment(ctx))
	gracePhys, err = f.client.CreateAppointment(ctx, models.AppointmentInput{
		CourseID: f.phys150, StartTime: "2025-05-06 13:00", EndTime: "2025-05-06 14:00",
	})
	require.NoError(t, err)

	f.login(t, "ada@example.edu")
	require.NoError(t, f.client.JoinAppointment(ctx, graceMath))

	return adaCS, graceMath, gracePhys
}

func postIDs(posts []models.FeedPost) []int64 {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestBuildFeed_EnrolledCoursesNewestFirst(t *testing.T) {
	f := newFixture(t)
	adaCS, graceMath, _ := seedFeed(t, f)

	posts, err := f.client.BuildFeed(context.Background(), FeedFilter{})
	require.NoError(t, err)
	require.Equal(t, []int64{graceMath, adaCS}, postIDs(posts))

	math := posts[0]
	require.Equal(t, "Grace Hopper", math.CreatorName)
	require.Equal(t, f.graceID, math.CreatorID)
	require.Equal(t, "MATH 201", math.CourseCode)
	require.Equal(t, "Calculus II", math.CourseName)
	require.Equal(t, "2025-05-06 11:00", math.From)
	require.Equal(t, "2025-05-06 12:00", math.To)
	require.True(t, math.Joined)
	require.False(t, math.IsCreator)

	cs := posts[1]
	require.Equal(t, "Library", cs.Location)
	require.False(t, cs.Joined)
	require.True(t, cs.IsCreator)
}

func TestBuildFeed_ExplicitCourse(t *testing.T) {
	f := newFixture(t)
	_, _, gracePhys := seedFeed(t, f)

	// Filtering by course ignores enrollment.
	posts, err := f.client.BuildFeed(context.Background(), FeedFilter{CourseID: f.phys150})
	require.NoError(t, err)
	require.Equal(t, []int64{gracePhys}, postIDs(posts))
	require.Equal(t, "PHYS 150", posts[0].CourseCode)
}

func TestBuildFeed_Empty(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ada@example.edu")

	posts, err := f.client.BuildFeed(context.Background(), FeedFilter{})
	require.NoError(t, err)
	require.Empty(t, posts)
}

func TestBuildFeed_RecoversFromExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	adaCS, graceMath, _ := seedFeed(t, f)

	f.backend.Tokens.RevokeAccessTokens()

	posts, err := f.client.BuildFeed(context.Background(), FeedFilter{})
	require.NoError(t, err)
	require.Equal(t, []int64{graceMath, adaCS}, postIDs(posts))
	require.Equal(t, 0, f.navigator.Replaced())
}
