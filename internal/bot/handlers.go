package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"coursewatch/internal/catalog"
	"coursewatch/internal/model"
	"coursewatch/internal/notify"
	"coursewatch/internal/watch"
)

// Catalog is the read surface of the course explorer the handlers use.
type Catalog interface {
	FetchSection(ctx context.Context, q model.CourseQuery) (*catalog.Section, error)
	FetchCourse(ctx context.Context, q model.CourseQuery) (*catalog.Course, error)
	FetchSubject(ctx context.Context, q model.CourseQuery) (*catalog.Subject, error)
}

// Registry is the watch-list surface the handlers use.
type Registry interface {
	List(user model.UserID) []watch.Watched
	AddOrToggle(user model.UserID, crn, title string, open bool, q model.CourseQuery) (watch.Outcome, error)
}

const helpText = `Course watcher commands:
- /pending — lists courses you are waiting on
- /watch <department> <number> <CRN> — monitors a CRN and lets you know if it opens up (send again to stop)
- /course <department> <number> — shows details on the given course
- /info <department> [number] [CRN] — course or section listings`

// Handlers dispatches chat commands to the watch registry and catalog.
type Handlers struct {
	sender   notify.Sender
	catalog  Catalog
	registry Registry
	logger   *slog.Logger
}

func NewHandlers(sender notify.Sender, cat Catalog, registry Registry, logger *slog.Logger) *Handlers {
	return &Handlers{
		sender:   sender,
		catalog:  cat,
		registry: registry,
		logger:   logger.With("component", "bot"),
	}
}

func (h *Handlers) Handle(ctx context.Context, upd tgbotapi.Update) {
	text := strings.TrimSpace(upd.Message.Text)
	chatID := upd.Message.Chat.ID
	user := model.UserID(chatID)
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return
	}

	switch cmd := parts[0]; {
	case cmd == "/start", cmd == "/help":
		h.reply(chatID, helpText)
	case cmd == "/pending":
		h.reply(chatID, h.pending(user))
	case cmd == "/watch":
		h.replyMD(chatID, h.watchCommand(ctx, user, parts[1:]))
	case cmd == "/course":
		h.replyMD(chatID, h.courseCommand(ctx, parts[1:]))
	case cmd == "/info":
		h.replyMD(chatID, h.infoCommand(ctx, parts[1:]))
	}
}

// pending renders the caller's watch list.
func (h *Handlers) pending(user model.UserID) string {
	watched := h.registry.List(user)
	if len(watched) == 0 {
		return "You are not watching any courses right now."
	}
	lines := make([]string, 0, len(watched))
	for _, w := range watched {
		lines = append(lines, fmt.Sprintf("%s (%s)", w.Title, w.CRN))
	}
	return "You are watching:\n" + strings.Join(lines, "\n")
}

// watchCommand fetches the current snapshot for a CRN and toggles the
// caller's watch based on it.
func (h *Handlers) watchCommand(ctx context.Context, user model.UserID, args []string) string {
	if len(args) != 3 {
		return "Usage: /watch <department code> <course number> <CRN>"
	}
	q, err := catalog.NormalizeQuery(args[0], args[1], args[2])
	if err != nil {
		return errorText(err)
	}
	section, err := h.catalog.FetchSection(ctx, q)
	if err != nil {
		return errorText(err)
	}

	outcome, err := h.registry.AddOrToggle(user, section.CRN, section.Title, section.HasStatus && section.Open(), q)
	if err != nil {
		h.logger.Error("watch list update failed", "crn", section.CRN, "error", err)
	}
	switch outcome {
	case watch.OutcomeAlreadyOpen:
		return "CRN is currently open."
	case watch.OutcomeRemoved:
		return "Removed course from the watch list."
	case watch.OutcomeCapacityExceeded:
		return "You are watching too many courses."
	default:
		return fmt.Sprintf("Course '%s' added to the watch list.", escapeMD(section.Title))
	}
}

// courseCommand renders the course description fields.
func (h *Handlers) courseCommand(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return "Usage: /course <department code> <course number>"
	}
	q, err := catalog.NormalizeQuery(args[0], args[1], "")
	if err != nil {
		return errorText(err)
	}
	course, err := h.catalog.FetchCourse(ctx, q)
	if err != nil {
		return errorText(err)
	}
	return fmt.Sprintf(
		"*`%s: %s`*\n*Description:* %s\n*Type:* %s\n*Restrictions:* %s\n*Notes:* %s",
		course.ID, escapeMD(course.Label),
		escapeMD(orNA(course.Description)),
		escapeMD(orNA(course.DegreeAttributes)),
		escapeMD(orNA(course.SectionInfo)),
		escapeMD(orNA(course.ScheduleInfo)))
}

// infoCommand dispatches on argument count: department listing, course
// section listing, or full CRN detail.
func (h *Handlers) infoCommand(ctx context.Context, args []string) string {
	switch len(args) {
	case 1:
		return h.subjectInfo(ctx, args[0])
	case 2:
		return h.sectionList(ctx, args[0], args[1])
	case 3:
		return h.sectionInfo(ctx, args[0], args[1], args[2])
	default:
		return errorText(&catalog.ValidationError{Reason: "Too many arguments."})
	}
}

func (h *Handlers) subjectInfo(ctx context.Context, dept string) string {
	q, err := catalog.NormalizeQuery(dept, "", "")
	if err != nil {
		return errorText(err)
	}
	subject, err := h.catalog.FetchSubject(ctx, q)
	if err != nil {
		return errorText(err)
	}
	if len(subject.Courses) == 0 {
		return "Department has no courses."
	}
	lines := []string{fmt.Sprintf("*`%s: %s`*", subject.ID, escapeMD(subject.Label))}
	for _, c := range subject.Courses {
		lines = append(lines, fmt.Sprintf("*%s:* %s", c.ID, escapeMD(c.Name)))
	}
	return strings.Join(lines, "\n")
}

func (h *Handlers) sectionList(ctx context.Context, dept, number string) string {
	q, err := catalog.NormalizeQuery(dept, number, "")
	if err != nil {
		return errorText(err)
	}
	course, err := h.catalog.FetchCourse(ctx, q)
	if err != nil {
		return errorText(err)
	}
	if len(course.Sections) == 0 {
		return "Course has no sections."
	}
	lines := []string{fmt.Sprintf("*`%s: %s`*", course.ID, escapeMD(course.Label))}
	for _, s := range course.Sections {
		m := s.Meeting
		lines = append(lines, fmt.Sprintf("*%s:* %s (%s), %s-%s %s",
			s.CRN, orNA(s.Number), orNA(m.Type), orNA(m.Start), orNA(m.End), orNA(m.Days)))
	}
	return strings.Join(lines, "\n")
}

func (h *Handlers) sectionInfo(ctx context.Context, dept, number, crn string) string {
	q, err := catalog.NormalizeQuery(dept, number, crn)
	if err != nil {
		return errorText(err)
	}
	section, err := h.catalog.FetchSection(ctx, q)
	if err != nil {
		return errorText(err)
	}
	m := section.Meeting
	instructors := make([]string, 0, len(m.Instructors))
	for _, in := range m.Instructors {
		instructors = append(instructors, fmt.Sprintf("\"%s\"", in))
	}
	status := section.Status
	if !section.HasStatus {
		status = ""
	}
	return fmt.Sprintf(
		"*`%s`*\n*Section:* %s\n*Type:* %s\n*Meets:* %s %s to %s in %s %s\n*Instructors:* %s\n*Status:* %s\n*Notes:* %s",
		escapeMD(section.Title),
		orNA(section.Number), orNA(m.Type),
		orNA(m.Days), orNA(m.Start), orNA(m.End), orNA(m.Building), orNA(m.Room),
		escapeMD(strings.Join(instructors, ", ")),
		orNA(status), escapeMD(section.Notes))
}

// errorText maps the error taxonomy to user-facing replies. Validation
// messages are shown verbatim; transient trouble is kept vague.
func errorText(err error) string {
	switch {
	case catalog.IsValidation(err):
		return err.Error()
	case catalog.IsNotFound(err):
		return "Course not found."
	case catalog.IsParseFailure(err):
		return "The response could not be understood. Try again later."
	default:
		return "Something went wrong. Try again later."
	}
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func (h *Handlers) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.Error("reply failed", "chat", chatID, "error", err)
	}
}

func (h *Handlers) replyMD(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.Error("reply failed", "chat", chatID, "error", err)
	}
}

func escapeMD(s string) string {
	repl := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return repl.Replace(s)
}
