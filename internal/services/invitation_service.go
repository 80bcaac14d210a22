package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bekzodm/taskhub/internal/auth"
	"github.com/bekzodm/taskhub/internal/models"
	"github.com/bekzodm/taskhub/pkg/crypto"
	apperrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/logger"
	"github.com/bekzodm/taskhub/pkg/mail"
	"github.com/bekzodm/taskhub/pkg/metrics"
)

const (
	defaultInvitationExpiry = 7 * 24 * time.Hour
	invitationTokenBytes    = 16 // 128 bits of entropy
	defaultClientBaseURL    = "http://localhost:5173"
)

var (
	// ErrInvitationNotFound indicates no invitation matches the provided token.
	ErrInvitationNotFound = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInvitationNotActive signals the invitation already left the PENDING state.
	ErrInvitationNotActive = apperrors.New("INVITATION_NOT_ACTIVE", "Invitation not active", http.StatusBadRequest)
	// ErrInvitationExpired signals the invitation outlived its expiry window.
	ErrInvitationExpired = apperrors.New("INVITATION_EXPIRED", "Invitation expired", http.StatusBadRequest)
	// ErrDuplicatePendingInvitation rejects a second invitation while one is still pending.
	ErrDuplicatePendingInvitation = apperrors.New("DUPLICATE_PENDING_INVITATION", "Invitation already sent to this email", http.StatusConflict)
)

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationBaseURL configures the base URL used to build invite hyperlinks.
func WithInvitationBaseURL(url string) InvitationOption {
	return func(s *InvitationService) {
		if trimmed := strings.TrimRight(strings.TrimSpace(url), "/"); trimmed != "" {
			s.baseURL = trimmed
		}
	}
}

// WithInvitationExpiry overrides the invitation lifetime.
func WithInvitationExpiry(d time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InvitationService manages the invitation lifecycle: issuing tokens,
// validating and accepting them, and the one-way PENDING -> ACCEPTED/EXPIRED
// transitions. Expiry is lazy: a stale PENDING record is corrected on the
// first read that touches it, so Validate and Accept are reads with a
// potential write side effect.
type InvitationService struct {
	db      *gorm.DB
	mailer  mail.Mailer
	baseURL string
	expiry  time.Duration
	now     func() time.Time
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
// The mailer may be nil; invitations are durable and re-deliverable, so delivery
// is best effort by design.
func NewInvitationService(db *gorm.DB, mailer mail.Mailer, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}

	service := &InvitationService{
		db:      db,
		mailer:  mailer,
		baseURL: defaultClientBaseURL,
		expiry:  defaultInvitationExpiry,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Send creates a PENDING invitation for the email and dispatches the invite
// link. Email delivery failure is logged and swallowed: the invitation is
// still considered successfully created.
func (s *InvitationService) Send(ctx context.Context, inviterID uint, email string) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if inviterID == 0 {
		return nil, apperrors.NewBadRequest("inviter is required")
	}

	var existing models.Invitation
	err := s.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, models.InvitationPending).
		First(&existing).Error
	switch {
	case err == nil:
		metrics.InvitationEvents.WithLabelValues("duplicate").Inc()
		return nil, ErrDuplicatePendingInvitation
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storeFailure("invitation service: find pending", err)
	}

	token, err := crypto.RandomHex(invitationTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("invitation service: generate token: %w", err)
	}

	now := s.now()
	invitation := models.Invitation{
		Email:       email,
		Token:       token,
		Status:      models.InvitationPending,
		InvitedByID: inviterID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.expiry),
	}

	if err := s.db.WithContext(ctx).Create(&invitation).Error; err != nil {
		// The partial unique index on (email, PENDING) closes the race between
		// two concurrent sends that both passed the check above.
		if isUniqueConstraintError(err) {
			metrics.InvitationEvents.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicatePendingInvitation
		}
		return nil, storeFailure("invitation service: create", err)
	}

	s.deliver(ctx, &invitation)
	metrics.InvitationEvents.WithLabelValues("sent").Inc()

	return &invitation, nil
}

// InvitationSummary is the projection returned when listing invitations.
type InvitationSummary struct {
	ID        uint                    `json:"id"`
	Email     string                  `json:"email"`
	Token     string                  `json:"token"`
	Status    models.InvitationStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// List returns the invitations created by the inviter, newest first.
func (s *InvitationService) List(ctx context.Context, inviterID uint) ([]InvitationSummary, error) {
	ctx = ensureContext(ctx)

	var invitations []models.Invitation
	if err := s.db.WithContext(ctx).
		Where("invited_by_id = ?", inviterID).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, storeFailure("invitation service: list", err)
	}

	summaries := make([]InvitationSummary, 0, len(invitations))
	for _, inv := range invitations {
		summaries = append(summaries, InvitationSummary{
			ID:        inv.ID,
			Email:     inv.Email,
			Token:     inv.Token,
			Status:    inv.Status,
			CreatedAt: inv.CreatedAt,
			ExpiresAt: inv.ExpiresAt,
		})
	}

	return summaries, nil
}

// Validate looks up an invitation by token and returns its email when the
// invitation is still redeemable. A PENDING invitation past its expiry is
// transitioned to EXPIRED before the error is returned.
func (s *InvitationService) Validate(ctx context.Context, token string) (string, error) {
	invitation, err := s.activeInvitation(ensureContext(ctx), token)
	if err != nil {
		return "", err
	}
	return invitation.Email, nil
}

// AcceptInput carries the profile details used when acceptance creates a user.
type AcceptInput struct {
	Name     string
	Password string
	Avatar   *string
}

// Accept redeems a pending, unexpired invitation. When a user with the
// invitation's email already exists that account is reused; otherwise a new
// USER account is created with a hashed password. Acceptance always converges
// to exactly one user per email.
func (s *InvitationService) Accept(ctx context.Context, token string, input AcceptInput) (uint, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(input.Password) == "" {
		return 0, apperrors.NewBadRequest("password is required")
	}

	invitation, err := s.activeInvitation(ctx, token)
	if err != nil {
		return 0, err
	}

	var userID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("email = ?", invitation.Email).First(&user).Error
		switch {
		case err == nil:
			userID = user.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			hashed, hashErr := crypto.HashPassword(input.Password)
			if hashErr != nil {
				return fmt.Errorf("invitation service: hash password: %w", hashErr)
			}

			created := models.User{
				Name:     strings.TrimSpace(input.Name),
				Email:    invitation.Email,
				Password: hashed,
				Role:     string(auth.RoleUser),
				Avatar:   input.Avatar,
			}
			if createErr := tx.Create(&created).Error; createErr != nil {
				return createErr
			}
			userID = created.ID
		default:
			return err
		}

		return tx.Model(&models.Invitation{}).
			Where("token = ?", invitation.Token).
			Update("status", models.InvitationAccepted).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return 0, err
		}
		return 0, storeFailure("invitation service: accept", err)
	}

	metrics.InvitationEvents.WithLabelValues("accepted").Inc()
	return userID, nil
}

// activeInvitation fetches by token and enforces the state machine. It mutates
// stored state when it finds a stale PENDING record (lazy expiry).
func (s *InvitationService) activeInvitation(ctx context.Context, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewBadRequest("token is required")
	}

	var invitation models.Invitation
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, storeFailure("invitation service: find by token", err)
	}

	if invitation.Status != models.InvitationPending {
		return nil, ErrInvitationNotActive
	}

	if invitation.ExpiresAt.Before(s.now()) {
		if err := s.db.WithContext(ctx).Model(&models.Invitation{}).
			Where("token = ?", token).
			Update("status", models.InvitationExpired).Error; err != nil {
			return nil, storeFailure("invitation service: mark expired", err)
		}
		metrics.InvitationEvents.WithLabelValues("expired").Inc()
		return nil, ErrInvitationExpired
	}

	return &invitation, nil
}

// deliver attempts the invitation email. Failures never propagate: the
// invitation is a durable, re-deliverable link and its creation does not
// depend on first-attempt delivery.
func (s *InvitationService) deliver(ctx context.Context, invitation *models.Invitation) {
	if s.mailer == nil {
		return
	}

	link := fmt.Sprintf("%s/invite/%s", s.baseURL, invitation.Token)
	message := mail.Message{
		To:      []string{invitation.Email},
		Subject: "You have been invited to TaskHub",
		Body: fmt.Sprintf(
			"Hello,\n\nYou have been invited to join a TaskHub team. Open the link below to accept:\n%s\n\nIf you did not expect this email, you can ignore it.\n",
			link,
		),
	}

	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		metrics.InvitationEvents.WithLabelValues("mail_failed").Inc()
		logger.WithModule("invitations").Warn("invitation email delivery failed",
			zap.String("email", invitation.Email),
			zap.Error(err),
		)
	}
}
