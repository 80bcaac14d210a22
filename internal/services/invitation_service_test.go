package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bekzodm/taskhub/internal/database/testutil"
	"github.com/bekzodm/taskhub/internal/models"
	"github.com/bekzodm/taskhub/pkg/crypto"
	"github.com/bekzodm/taskhub/pkg/mail"
)

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestInvitationSendCreatesPendingRecord(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	mailer := &recordingMailer{}

	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := NewInvitationService(db, mailer,
		WithInvitationClock(func() time.Time { return current }),
		WithInvitationBaseURL("https://app.example.com"),
	)
	require.NoError(t, err)

	invitation, err := svc.Send(context.Background(), 1, "Invitee@Example.com")
	require.NoError(t, err)

	require.Equal(t, "invitee@example.com", invitation.Email)
	require.Equal(t, models.InvitationPending, invitation.Status)
	require.Len(t, invitation.Token, 32)
	require.True(t, invitation.ExpiresAt.Equal(current.Add(7*24*time.Hour)))

	require.Len(t, mailer.sent, 1)
	require.Contains(t, mailer.sent[0].Body, "https://app.example.com/invite/"+invitation.Token)
}

func TestInvitationSendRejectsDuplicatePending(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewInvitationService(db, nil)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), 1, "dup@example.com")
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), 2, "dup@example.com")
	require.ErrorIs(t, err, ErrDuplicatePendingInvitation)
}

func TestInvitationSendAllowsNewAfterTerminalState(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewInvitationService(db, nil)
	require.NoError(t, err)

	first, err := svc.Send(context.Background(), 1, "again@example.com")
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), first.Token, AcceptInput{Name: "Again", Password: "secret1"})
	require.NoError(t, err)

	// Once the pending invitation is resolved another one may be issued.
	_, err = svc.Send(context.Background(), 1, "again@example.com")
	require.NoError(t, err)
}

func TestInvitationSendSurvivesMailFailure(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	mailer := &recordingMailer{err: errors.New("smtp: connection refused")}

	svc, err := NewInvitationService(db, mailer)
	require.NoError(t, err)

	invitation, err := svc.Send(context.Background(), 1, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, models.InvitationPending, invitation.Status)

	var stored models.Invitation
	require.NoError(t, db.Where("token = ?", invitation.Token).First(&stored).Error)
	require.Equal(t, models.InvitationPending, stored.Status)
}

func TestInvitationListNewestFirst(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := NewInvitationService(db, nil,
		WithInvitationClock(func() time.Time { return current }),
	)
	require.NoError(t, err)

	first, err := svc.Send(context.Background(), 7, "first@example.com")
	require.NoError(t, err)

	current = current.Add(time.Hour)
	second, err := svc.Send(context.Background(), 7, "second@example.com")
	require.NoError(t, err)

	// Another inviter's invitation must not leak into the listing.
	_, err = svc.Send(context.Background(), 8, "other@example.com")
	require.NoError(t, err)

	summaries, err := svc.List(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, second.Token, summaries[0].Token)
	require.Equal(t, first.Token, summaries[1].Token)
}

func TestInvitationValidateReturnsEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewInvitationService(db, nil)
	require.NoError(t, err)

	invitation, err := svc.Send(context.Background(), 1, "valid@example.com")
	require.NoError(t, err)

	email, err := svc.Validate(context.Background(), invitation.Token)
	require.NoError(t, err)
	require.Equal(t, "valid@example.com", email)
}

func TestInvitationValidateUnknownToken(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewInvitationService(db, nil)
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), "deadbeef")
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestInvitationValidateLazyExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := NewInvitationService(db, nil,
		WithInvitationClock(func() time.Time { return current }),
	)
	require.NoError(t, err)

	invitation, err := svc.Send(context.Background(), 1, "stale@example.com")
	require.NoError(t, err)

	// Move past the 7 day window; the read must correct the stored status.
	current = current.Add(7*24*time.Hour + time.Minute)

	_, err = svc.Validate(context.Background(), invitation.Token)
	require.ErrorIs(t, err, ErrInvitationExpired)

	var stored models.Invitation
	require.NoError(t, db.Where("token = ?", invitation.Token).First(&stored).Error)
	require.Equal(t, models.InvitationExpired, stored.Status)

	// Terminal: a later validate reports not-active, not expired again.
	_, err = svc.Validate(context.Background(), invitation.Token)
	require.ErrorIs(t, err, ErrInvitationNotActive)
}

func TestInvitationAcceptCreatesUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewInvitationService(db, nil)
	require.NoError(t, err)

	invitation, err := svc.Send(context.Background(), 1, "newbie@example.com")
	require.NoError(t, err)

	avatar := "/uploads/avatars/a.png"
	userID, err := svc.Accept(context.Background(), invitation.Token, AcceptInput{
		Name:     "Newbie",
		Password: "secret1",
		Avatar:   &avatar,
	})
	require.NoError(t, err)
	require.NotZero(t, userID)

	var user models.User
	require.NoError(t, db.First(&user, userID).Error)
	require.Equal(t, "newbie@example.com", user.Email)
	require.Equal(t, "USER", user.Role)
	require.NotEqual(t, "secret1", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "secret1"))

	var stored models.Invitation
	require.NoError(t, db.Where("token = ?", invitation.Token).First(&stored).Error)
	require.Equal(t, models.InvitationAccepted, stored.Status)
}

func TestInvitationAcceptReusesExistingUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	existing := models.User{Name: "Old", Email: "taken@example.com", Password: "hash", Role: "USER"}
	require.NoError(t, db.Create(&existing).Error)

	svc, err := NewInvitationService(db, nil)
	require.NoError(t, err)

	invitation, err := svc.Send(context.Background(), 1, "taken@example.com")
	require.NoError(t, err)

	userID, err := svc.Accept(context.Background(), invitation.Token, AcceptInput{Name: "New", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, existing.ID, userID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "taken@example.com").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestInvitationAcceptTwiceFails(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewInvitationService(db, nil)
	require.NoError(t, err)

	invitation, err := svc.Send(context.Background(), 1, "once@example.com")
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), invitation.Token, AcceptInput{Name: "Once", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), invitation.Token, AcceptInput{Name: "Twice", Password: "secret2"})
	require.ErrorIs(t, err, ErrInvitationNotActive)
}

func TestInvitationEndToEndWithFailingMailer(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	mailer := &recordingMailer{err: errors.New("smtp: timeout")}

	svc, err := NewInvitationService(db, mailer)
	require.NoError(t, err)

	invitation, err := svc.Send(context.Background(), 1, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, models.InvitationPending, invitation.Status)

	email, err := svc.Validate(context.Background(), invitation.Token)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", email)

	userID, err := svc.Accept(context.Background(), invitation.Token, AcceptInput{Name: "Alice", Password: "secret1"})
	require.NoError(t, err)
	require.NotZero(t, userID)

	var stored models.Invitation
	require.NoError(t, db.Where("token = ?", invitation.Token).First(&stored).Error)
	require.Equal(t, models.InvitationAccepted, stored.Status)
}
