package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/studysync/studysync/internal/courseapi"
	"github.com/studysync/studysync/internal/models"
	"github.com/studysync/studysync/internal/service"
)

var errUsage = errors.New("invalid usage")

type app struct {
	session *service.SessionService
	api     *courseapi.Client
	in      io.Reader
	out     io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "signup":
		return a.signup(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "courses":
		return a.courses(ctx, rest)
	case "enroll":
		return a.enroll(ctx, rest)
	case "feed":
		return a.feed(ctx, rest)
	case "show":
		return a.show(ctx, rest)
	case "post":
		return a.post(ctx, rest)
	case "join":
		return a.join(ctx, rest)
	case "leave":
		if err := a.api.LeaveAppointment(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Study session left!")
		return nil
	case "end":
		if err := a.api.EndAppointment(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Study session ended!")
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", errUsage, fs.Name(), err)
	}
	return nil
}

// promptPassword reads one line from the input when no password flag was given.
func (a *app) promptPassword(password string) (string, error) {
	if password != "" {
		return password, nil
	}

	fmt.Fprint(a.out, "Password: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "student email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	pw, err := a.promptPassword(*password)
	if err != nil {
		return err
	}

	tr, err := a.session.Login(ctx, *email, pw)
	if err != nil {
		return err
	}

	if tr.ExpiresIn > 0 {
		fmt.Fprintf(a.out, "Signed in. Access token valid for %s.\n", time.Duration(tr.ExpiresIn)*time.Second)
	} else {
		fmt.Fprintln(a.out, "Signed in.")
	}
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := newFlagSet("signup")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "student email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	pw, err := a.promptPassword(*password)
	if err != nil {
		return err
	}

	id, err := a.session.SignUp(ctx, models.NewStudent{Name: *name, Email: *email, Password: pw})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Account %d created. Run `studysync login -email %s` to sign in.\n", id, *email)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	info, err := a.session.Status(ctx)
	if err != nil {
		return err
	}
	if !info.SignedIn {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}

	me, err := a.api.CurrentUser(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s (%s)\n", me.Name, me.Initials())
	fmt.Fprintf(w, "Email:\t%s\n", me.Email)
	if me.AppointmentID != nil {
		fmt.Fprintf(w, "Session:\t%d\n", *me.AppointmentID)
	}
	if !info.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Token expires:\t%s\n", info.ExpiresAt.Local().Format(time.RFC1123))
	}
	return w.Flush()
}

func (a *app) courses(ctx context.Context, args []string) error {
	fs := newFlagSet("courses")
	all := fs.Bool("all", false, "list the whole catalog")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		courses []models.Course
		err     error
	)
	if *all {
		courses, err = a.api.AllCourses(ctx)
	} else {
		courses, err = a.api.EnrolledCourses(ctx)
	}
	if err != nil {
		return err
	}

	if len(courses) == 0 {
		fmt.Fprintln(a.out, "No courses.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tINSTRUCTOR")
	for _, c := range courses {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Code, c.Name, c.Instructor)
	}
	return w.Flush()
}

func (a *app) enroll(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: enroll needs a course code", errUsage)
	}
	code := strings.Join(args, " ")

	enrolled, err := a.api.ToggleEnrollment(ctx, code)
	if err != nil {
		return err
	}

	if enrolled {
		fmt.Fprintf(a.out, "Enrolled in %s.\n", code)
	} else {
		fmt.Fprintf(a.out, "Dropped %s.\n", code)
	}
	return nil
}

func (a *app) feed(ctx context.Context, args []string) error {
	fs := newFlagSet("feed")
	course := fs.Int64("course", 0, "only show this course id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	posts, err := a.api.BuildFeed(ctx, courseapi.FeedFilter{CourseID: *course})
	if err != nil {
		return err
	}

	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts found for you here...")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOURSE\tHOST\tWHEN\tWHERE\t")
	for _, p := range posts {
		marker := ""
		switch {
		case p.IsCreator:
			marker = "(yours)"
		case p.Joined:
			marker = "(joined)"
		}
		fmt.Fprintf(w, "%d\t%s %s\t%s\t%s\t%s\t%s\n",
			p.ID, p.CourseCode, p.CourseName, p.CreatorName, formatSpan(p.From, p.To), p.Location, marker)
	}
	return w.Flush()
}

// formatSpan renders "2025-05-06 14:30" style times the way the feed shows them.
func formatSpan(from, to string) string {
	if from == "" || to == "" {
		return ""
	}
	return strings.ReplaceAll(from, "-", "/") + " - " + strings.ReplaceAll(to, "-", "/")
}

func parseID(args []string, what string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s needs exactly one id", errUsage, what)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, args[0])
	}
	return id, nil
}

func (a *app) show(ctx context.Context, args []string) error {
	id, err := parseID(args, "show")
	if err != nil {
		return err
	}

	appt, err := a.api.Appointment(ctx, id)
	if err != nil {
		return err
	}
	course, err := a.api.Course(ctx, appt.CourseID)
	if err != nil {
		return err
	}
	creator, err := a.api.Creator(ctx, id)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Course:\t%s %s\n", course.Code, course.Name)
	fmt.Fprintf(w, "Host:\t%s\n", creator.Name)
	fmt.Fprintf(w, "When:\t%s\n", formatSpan(appt.StartTime, appt.EndTime))
	if appt.Location != "" {
		fmt.Fprintf(w, "Where:\t%s\n", appt.Location)
	}
	if appt.AdditionalInfo != "" {
		fmt.Fprintf(w, "Notes:\t%s\n", appt.AdditionalInfo)
	}
	fmt.Fprintf(w, "Attendees:\t%d\n", len(appt.Attendees))
	return w.Flush()
}

func (a *app) post(ctx context.Context, args []string) error {
	if len(args) == 0 || (args[0] != "create" && args[0] != "edit") {
		return fmt.Errorf("%w: post needs create or edit", errUsage)
	}
	mode := args[0]

	fs := newFlagSet("post " + mode)
	var in models.AppointmentInput
	fs.Int64Var(&in.CourseID, "course", 0, "course id")
	fs.StringVar(&in.StartTime, "from", "", "start time, e.g. 2025-05-06 14:30")
	fs.StringVar(&in.EndTime, "to", "", "end time")
	fs.StringVar(&in.Location, "location", "", "where to meet")
	fs.StringVar(&in.AdditionalInfo, "info", "", "additional info")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	if mode == "edit" {
		return a.editPost(ctx, fs, in)
	}

	id, err := a.api.CreateAppointment(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Study session %d posted!\n", id)
	return nil
}

// editPost starts from the student's current session and overlays only the
// flags that were given on the command line.
func (a *app) editPost(ctx context.Context, fs *flag.FlagSet, in models.AppointmentInput) error {
	me, err := a.api.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if me.AppointmentID == nil {
		return errors.New("you have no study session to edit")
	}

	appt, err := a.api.Appointment(ctx, *me.AppointmentID)
	if err != nil {
		return err
	}

	merged := models.AppointmentInput{
		CourseID:       appt.CourseID,
		StartTime:      appt.StartTime,
		EndTime:        appt.EndTime,
		Location:       appt.Location,
		AdditionalInfo: appt.AdditionalInfo,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "course":
			merged.CourseID = in.CourseID
		case "from":
			merged.StartTime = in.StartTime
		case "to":
			merged.EndTime = in.EndTime
		case "location":
			merged.Location = in.Location
		case "info":
			merged.AdditionalInfo = in.AdditionalInfo
		}
	})

	if err := a.api.EditAppointment(ctx, merged); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Study session updated!")
	return nil
}

func (a *app) join(ctx context.Context, args []string) error {
	id, err := parseID(args, "join")
	if err != nil {
		return err
	}
	if err := a.api.JoinAppointment(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Study session joined!")
	return nil
}
