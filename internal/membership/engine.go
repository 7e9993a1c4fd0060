// Package membership keeps meetings and student profiles consistent with each other.
//
// A meeting's membersID, its owner's meetingsOwnerID and every participant's
// meetingsParticipationsID are updated by explicit multi-record sequences here.
// Writes are independent single-record saves: there is no transaction and no
// rollback, so a failure part way through leaves the earlier writes in place.
package membership

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/metrics"
	"github.com/amphitryon/backend/internal/models"
)

// MeetingStore persists meetings.
type MeetingStore interface {
	GetByID(ctx context.Context, id string) (*models.Meeting, error)
	Save(ctx context.Context, m *models.Meeting) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Meeting, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Meeting, error)
}

// UserStore persists users and their profiles.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
}

// ChatCreator allocates the chat owned by a new meeting.
type ChatCreator interface {
	Create(ctx context.Context, c *models.Chat) error
}

// ChatPurger disposes of the chat of a deleted meeting.
type ChatPurger interface {
	PurgeChat(ctx context.Context, chatID string) error
}

// Assembler shapes meetings into responses.
type Assembler interface {
	Assemble(ctx context.Context, m *models.Meeting) (*models.MeetingResponse, error)
	AssembleAll(ctx context.Context, meetings []models.Meeting) ([]models.MeetingResponse, error)
}

// Engine runs the membership operations. Every operation receives the acting
// user explicitly.
type Engine struct {
	meetings  MeetingStore
	users     UserStore
	chats     ChatCreator
	purger    ChatPurger
	assembler Assembler
	logger    *zap.Logger

	newID func() string
	now   func() time.Time
}

// NewEngine creates a membership engine.
func NewEngine(meetings MeetingStore, users UserStore, chats ChatCreator, purger ChatPurger, asm Assembler, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		meetings:  meetings,
		users:     users,
		chats:     chats,
		purger:    purger,
		assembler: asm,
		logger:    logger,
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

// Create stores draft as a new meeting owned by requester, together with its chat,
// and links it into the requester's owner and participation lists.
// Id, owner, members and chat fields of draft are overwritten.
func (e *Engine) Create(ctx context.Context, requester *models.User, draft models.Meeting) (resp *models.MeetingResponse, err error) {
	defer func() { metrics.RecordOperation("create", err) }()

	if err := requireStudent(requester); err != nil {
		return nil, err
	}
	if err := validate(draft.Name, draft.LocationID, draft.StartDate, draft.EndDate); err != nil {
		return nil, err
	}

	chat := &models.Chat{ID: e.newID()}
	if err := e.chats.Create(ctx, chat); err != nil {
		return nil, err
	}

	m := draft
	m.ID = e.newID()
	m.OwnerID = requester.ID
	m.MembersID = []string{requester.ID}
	m.ChatID = chat.ID
	if err := e.meetings.Save(ctx, &m); err != nil {
		return nil, err
	}

	p := requester.StudentProfile
	p.MeetingsOwnerID = append(p.MeetingsOwnerID, m.ID)
	p.MeetingsParticipationsID = append(p.MeetingsParticipationsID, m.ID)
	if err := e.users.Save(ctx, requester); err != nil {
		e.logger.Warn("meeting stored but owner not linked",
			zap.String("meeting_id", m.ID), zap.String("user_id", requester.ID), zap.Error(err))
		return nil, err
	}

	e.logger.Info("meeting created", zap.String("meeting_id", m.ID), zap.String("owner_id", requester.ID))
	return e.assembler.Assemble(ctx, &m)
}

// Join adds requester to the meeting. Joining twice changes nothing.
func (e *Engine) Join(ctx context.Context, requester *models.User, meetingID string) (resp *models.MeetingResponse, err error) {
	defer func() { metrics.RecordOperation("join", err) }()

	if err := requireStudent(requester); err != nil {
		return nil, err
	}
	m, err := e.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	if !m.HasMember(requester.ID) {
		m.MembersID = append(m.MembersID, requester.ID)
	}
	p := requester.StudentProfile
	if !p.Participates(m.ID) {
		p.MeetingsParticipationsID = append(p.MeetingsParticipationsID, m.ID)
	}

	if err := e.meetings.Save(ctx, m); err != nil {
		return nil, err
	}
	if err := e.users.Save(ctx, requester); err != nil {
		return nil, err
	}
	return e.assembler.Assemble(ctx, m)
}

// Leave removes requester from the meeting. An owner who leaves stays recorded
// as ownerID and keeps the id in meetingsOwnerID; nobody inherits ownership.
func (e *Engine) Leave(ctx context.Context, requester *models.User, meetingID string) (resp *models.MeetingResponse, err error) {
	defer func() { metrics.RecordOperation("leave", err) }()

	if err := requireStudent(requester); err != nil {
		return nil, err
	}
	m, err := e.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	m.MembersID = remove(m.MembersID, requester.ID)
	p := requester.StudentProfile
	p.MeetingsParticipationsID = remove(p.MeetingsParticipationsID, m.ID)

	if err := e.users.Save(ctx, requester); err != nil {
		return nil, err
	}
	if err := e.meetings.Save(ctx, m); err != nil {
		return nil, err
	}
	if m.OwnerID == requester.ID {
		e.logger.Info("owner left meeting", zap.String("meeting_id", m.ID), zap.String("owner_id", requester.ID))
	}
	return e.assembler.Assemble(ctx, m)
}

// Delete removes the meeting and its chat.
//
// Only members that list the meeting in meetingsOwnerID are cleaned: the id is
// removed from both of their lists. Members that merely participate keep the
// id in meetingsParticipationsID.
func (e *Engine) Delete(ctx context.Context, meetingID string) (err error) {
	defer func() { metrics.RecordOperation("delete", err) }()

	m, err := e.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return err
	}

	for _, memberID := range m.MembersID {
		member, err := e.users.GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		p := member.StudentProfile
		if p == nil || !p.Owns(m.ID) {
			continue
		}
		p.MeetingsOwnerID = remove(p.MeetingsOwnerID, m.ID)
		p.MeetingsParticipationsID = remove(p.MeetingsParticipationsID, m.ID)
		if err := e.users.Save(ctx, member); err != nil {
			return err
		}
	}

	if err := e.meetings.Delete(ctx, m.ID); err != nil {
		return err
	}
	if m.ChatID != "" {
		if err := e.purger.PurgeChat(ctx, m.ChatID); err != nil {
			e.logger.Error("chat purge failed", zap.String("meeting_id", m.ID), zap.String("chat_id", m.ChatID), zap.Error(err))
			return err
		}
	}

	e.logger.Info("meeting deleted", zap.String("meeting_id", m.ID), zap.Int("members", len(m.MembersID)))
	return nil
}

// Update copies the whitelisted fields of patch onto the stored meeting.
// Owner, members and chat are never changed. No ownership check is made.
func (e *Engine) Update(ctx context.Context, patch models.MeetingPatch) (resp *models.MeetingResponse, err error) {
	defer func() { metrics.RecordOperation("update", err) }()

	if patch.ID == "" {
		v := &apperr.ValidationError{}
		v.Add("id", "is required")
		return nil, v
	}
	if err := validate(patch.Name, patch.LocationID, patch.StartDate, patch.EndDate); err != nil {
		return nil, err
	}
	m, err := e.meetings.GetByID(ctx, patch.ID)
	if err != nil {
		return nil, err
	}
	patch.Apply(m)
	if err := e.meetings.Save(ctx, m); err != nil {
		return nil, err
	}
	return e.assembler.Assemble(ctx, m)
}

// Get returns the assembled meeting.
func (e *Engine) Get(ctx context.Context, meetingID string) (*models.MeetingResponse, error) {
	m, err := e.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return e.assembler.Assemble(ctx, m)
}

// All returns every meeting, assembled, in storage order.
func (e *Engine) All(ctx context.Context) ([]models.MeetingResponse, error) {
	list, err := e.meetings.List(ctx)
	if err != nil {
		return nil, err
	}
	return e.assembler.AssembleAll(ctx, list)
}

// CreatedBy returns the meetings owned by requester that have not ended yet.
func (e *Engine) CreatedBy(ctx context.Context, requester *models.User) ([]models.MeetingResponse, error) {
	if err := requireStudent(requester); err != nil {
		return nil, err
	}
	owned, err := e.meetings.ListByOwner(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	upcoming := make([]models.Meeting, 0, len(owned))
	for _, m := range owned {
		if !m.EndDate.Before(now) {
			upcoming = append(upcoming, m)
		}
	}
	return e.assembler.AssembleAll(ctx, upcoming)
}

// ParticipatingIn returns the meetings listed in requester's participations, in
// list order. When both from and to are set only meetings overlapping that
// window are returned. Ids whose meeting no longer exists are skipped.
func (e *Engine) ParticipatingIn(ctx context.Context, requester *models.User, from, to *time.Time) ([]models.MeetingResponse, error) {
	if err := requireStudent(requester); err != nil {
		return nil, err
	}
	ids := requester.StudentProfile.MeetingsParticipationsID
	list := make([]models.Meeting, 0, len(ids))
	for _, id := range ids {
		m, err := e.meetings.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				e.logger.Debug("stale participation", zap.String("user_id", requester.ID), zap.String("meeting_id", id))
				continue
			}
			return nil, err
		}
		if from != nil && to != nil && !m.Overlaps(*from, *to) {
			continue
		}
		list = append(list, *m)
	}
	return e.assembler.AssembleAll(ctx, list)
}

func requireStudent(u *models.User) error {
	if u == nil {
		return apperr.ErrUnauthenticated
	}
	if !u.IsStudent() {
		return apperr.Role("student")
	}
	return nil
}

func validate(name, locationID string, start, end time.Time) error {
	v := &apperr.ValidationError{}
	if name == "" {
		v.Add("name", "is required")
	}
	if locationID == "" {
		v.Add("locationID", "is required")
	}
	if end.Before(start) {
		v.Add("endDate", "must not be before startDate")
	}
	return v.OrNil()
}

// remove drops every occurrence of id, keeping the order of the rest.
func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}
