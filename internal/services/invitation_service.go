package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/notify"
	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/pkg/logger"
	"github.com/charlesng35/weddingrsvp/pkg/metrics"
)

const defaultMaxPlusOnes = 5

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithRSVPLock rejects any submission once the guest has answered.
func WithRSVPLock(enabled bool) InvitationOption {
	return func(s *InvitationService) {
		s.lockAfterResponse = enabled
	}
}

// WithClaimRequiredForRSVP requires the submitting device to hold the binding.
func WithClaimRequiredForRSVP(enabled bool) InvitationOption {
	return func(s *InvitationService) {
		s.requireClaim = enabled
	}
}

// WithMaxPlusOnes caps the plus-one count a guest may submit.
func WithMaxPlusOnes(max int) InvitationOption {
	return func(s *InvitationService) {
		if max >= 0 {
			s.maxPlusOnes = max
		}
	}
}

// WithReplyCountryCode sets the country code used to match chat replies
// against numbers stored in national format.
func WithReplyCountryCode(code string) InvitationOption {
	return func(s *InvitationService) {
		s.countryCode = strings.TrimLeft(strings.TrimSpace(code), "+")
	}
}

// WithInvitationAudit records claims and submissions in the audit log.
func WithInvitationAudit(audit *AuditService) InvitationOption {
	return func(s *InvitationService) {
		s.audit = audit
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

// ClaimResult is the outcome of a successful claim. Bound is false when the
// device already held the code.
type ClaimResult struct {
	Guest *models.Guest
	Bound bool
}

// RSVPInput is a guest's answer. Optional text fields are stored as given,
// so omitting one clears a previous value. Name, Email and IsFamily are
// left untouched when nil.
type RSVPInput struct {
	DeviceID            string
	Name                *string
	Status              models.RSVPStatus
	PlusOneCount        int
	PlusOneName         *string
	DietaryRestrictions *string
	GuestQuestion       *string
	Notes               *string
	Email               *string
	IsFamily            *bool
}

// InvitationService implements the guest-facing claim protocol and RSVP
// submission on top of the registry.
type InvitationService struct {
	store             registry.Store
	audit             *AuditService
	lockAfterResponse bool
	requireClaim      bool
	maxPlusOnes       int
	countryCode       string
	now               func() time.Time
	log               *zap.Logger
}

// NewInvitationService constructs an InvitationService.
func NewInvitationService(store registry.Store, opts ...InvitationOption) (*InvitationService, error) {
	if store == nil {
		return nil, errors.New("invitation service: store is required")
	}

	svc := &InvitationService{
		store:       store,
		maxPlusOnes: defaultMaxPlusOnes,
		now:         time.Now,
		log:         logger.WithModule("invitations"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Claim binds code to deviceID. The first device wins; the same device may
// claim again any number of times.
func (s *InvitationService) Claim(ctx context.Context, code, deviceID string) (*ClaimResult, error) {
	ctx = ensureContext(ctx)
	code = registry.NormalizeCode(code)
	deviceID = strings.TrimSpace(deviceID)

	if deviceID == "" {
		return nil, registry.Invalid("device_id", "is required")
	}
	if code == "" {
		s.claimOutcome(ctx, code, "not_found", AuditFailure)
		return nil, ErrInvitationNotFound
	}

	guest, err := s.store.FindByCode(ctx, code)
	if err != nil {
		err = translateStoreError(err)
		if errors.Is(err, ErrInvitationNotFound) {
			s.claimOutcome(ctx, code, "not_found", AuditFailure)
		} else {
			s.claimOutcome(ctx, code, "error", AuditFailure)
		}
		return nil, err
	}

	switch {
	case guest.BoundTo(deviceID):
		s.claimOutcome(ctx, code, "reclaimed", AuditSuccess)
		return &ClaimResult{Guest: guest, Bound: false}, nil
	case guest.Claimed():
		s.claimOutcome(ctx, code, "mismatch", AuditDenied)
		return nil, ErrDeviceMismatch
	}

	bound, err := s.store.BindDevice(ctx, code, deviceID)
	if err != nil {
		err = translateStoreError(err)
		switch {
		case errors.Is(err, ErrDeviceMismatch):
			s.claimOutcome(ctx, code, "mismatch", AuditDenied)
		case errors.Is(err, ErrInvitationNotFound):
			s.claimOutcome(ctx, code, "not_found", AuditFailure)
		default:
			s.claimOutcome(ctx, code, "error", AuditFailure)
		}
		return nil, err
	}

	s.claimOutcome(ctx, code, "bound", AuditSuccess)
	return &ClaimResult{Guest: bound, Bound: true}, nil
}

func (s *InvitationService) claimOutcome(ctx context.Context, code, result, auditResult string) {
	metrics.InvitationClaims.WithLabelValues(result).Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "invitation.claim",
		Resource: code,
		Result:   auditResult,
		Metadata: map[string]any{"outcome": result},
	})
}

// ValidateDevice returns the guest bound to deviceID, or nil when the
// device holds no code. Only unexpected store failures are returned.
func (s *InvitationService) ValidateDevice(ctx context.Context, deviceID string) (*models.Guest, error) {
	ctx = ensureContext(ctx)
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		metrics.DeviceLookups.WithLabelValues("miss").Inc()
		return nil, nil
	}

	guest, err := s.store.FindByDevice(ctx, deviceID)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		metrics.DeviceLookups.WithLabelValues("miss").Inc()
		return nil, nil
	case err != nil:
		metrics.DeviceLookups.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.DeviceLookups.WithLabelValues("hit").Inc()
	return guest, nil
}

// CodeForDevice returns the code bound to deviceID or "" when none is.
func (s *InvitationService) CodeForDevice(ctx context.Context, deviceID string) (string, error) {
	guest, err := s.ValidateDevice(ctx, deviceID)
	if err != nil || guest == nil {
		return "", err
	}
	return guest.UniqueCode, nil
}

// GetByCode looks up an invitation without binding it.
func (s *InvitationService) GetByCode(ctx context.Context, code string) (*models.Guest, error) {
	ctx = ensureContext(ctx)
	code = registry.NormalizeCode(code)
	if code == "" {
		return nil, ErrInvitationNotFound
	}
	guest, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return guest, nil
}

// SubmitRSVP stores a guest's answer.
func (s *InvitationService) SubmitRSVP(ctx context.Context, code string, in RSVPInput) (*models.Guest, error) {
	ctx = ensureContext(ctx)

	if !in.Status.Answered() {
		return nil, registry.Invalid("status", "must be attending or declined")
	}
	if in.PlusOneCount < 0 || in.PlusOneCount > s.maxPlusOnes {
		return nil, registry.Invalid("plus_one_count", fmt.Sprintf("must be between 0 and %d", s.maxPlusOnes))
	}

	guest, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.requireClaim && !guest.BoundTo(strings.TrimSpace(in.DeviceID)) {
		recordAudit(s.audit, ctx, AuditEntry{Action: "invitation.rsvp", Resource: guest.UniqueCode, Result: AuditDenied})
		return nil, ErrDeviceMismatch
	}
	if s.lockAfterResponse && guest.RSVPStatus.Answered() {
		recordAudit(s.audit, ctx, AuditEntry{Action: "invitation.rsvp", Resource: guest.UniqueCode, Result: AuditDenied,
			Metadata: map[string]any{"reason": "locked"}})
		return nil, ErrRSVPLocked
	}

	now := s.now()
	status := in.Status
	count := in.PlusOneCount
	patch := registry.Patch{
		Name:                in.Name,
		RSVPStatus:          &status,
		PlusOneCount:        &count,
		PlusOneName:         textOrClear(in.PlusOneName),
		DietaryRestrictions: textOrClear(in.DietaryRestrictions),
		GuestQuestion:       textOrClear(in.GuestQuestion),
		Notes:               textOrClear(in.Notes),
		Email:               in.Email,
		IsFamily:            in.IsFamily,
		RespondedAt:         &now,
	}
	if s.lockAfterResponse {
		patch.IfStatus = ptrTo(models.RSVPPending)
	}

	updated, err := s.store.Update(ctx, guest.UniqueCode, patch)
	if errors.Is(err, registry.ErrStatusChanged) {
		recordAudit(s.audit, ctx, AuditEntry{Action: "invitation.rsvp", Resource: guest.UniqueCode, Result: AuditDenied,
			Metadata: map[string]any{"reason": "locked"}})
		return nil, ErrRSVPLocked
	}
	if err != nil {
		return nil, translateStoreError(err)
	}

	metrics.RSVPSubmissions.WithLabelValues(string(status)).Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "invitation.rsvp",
		Resource: updated.UniqueCode,
		Result:   AuditSuccess,
		Metadata: map[string]any{
			"status":         string(status),
			"plus_one_count": count,
		},
	})
	return updated, nil
}

// RecordReply stores an answer received over chat from phone. The guest is
// matched by phone number, trying the national form when the sender uses
// the configured country code.
func (s *InvitationService) RecordReply(ctx context.Context, phone string, status models.RSVPStatus) (*models.Guest, error) {
	ctx = ensureContext(ctx)
	if !status.Answered() {
		return nil, registry.Invalid("status", "must be attending or declined")
	}

	guest, err := s.findByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if s.lockAfterResponse && guest.RSVPStatus.Answered() {
		return nil, ErrRSVPLocked
	}

	now := s.now()
	patch := registry.Patch{
		RSVPStatus:  &status,
		RespondedAt: &now,
	}
	if s.lockAfterResponse {
		patch.IfStatus = ptrTo(models.RSVPPending)
	}
	updated, err := s.store.Update(ctx, guest.UniqueCode, patch)
	if errors.Is(err, registry.ErrStatusChanged) {
		return nil, ErrRSVPLocked
	}
	if err != nil {
		return nil, translateStoreError(err)
	}

	metrics.RSVPSubmissions.WithLabelValues(string(status)).Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		Actor:    "whatsapp",
		Action:   "invitation.reply",
		Resource: updated.UniqueCode,
		Result:   AuditSuccess,
		Metadata: map[string]any{"status": string(status)},
	})
	return updated, nil
}

// HandleReply parses a chat message and records it. Messages that are not
// a clear yes or no are ignored.
func (s *InvitationService) HandleReply(ctx context.Context, phone, text string) {
	status, ok := notify.ParseReply(text)
	if !ok {
		s.log.Debug("ignoring unrecognised reply", zap.String("phone", phone))
		return
	}

	guest, err := s.RecordReply(ctx, phone, status)
	switch {
	case errors.Is(err, ErrInvitationNotFound):
		s.log.Info("reply from unknown number", zap.String("phone", phone))
	case err != nil:
		s.log.Warn("failed to record reply", zap.String("phone", phone), zap.Error(err))
	default:
		s.log.Info("recorded reply", zap.String("code", guest.UniqueCode), zap.String("status", string(status)))
	}
}

func (s *InvitationService) findByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	key := registry.PhoneKey(phone)
	candidates := []string{key}
	if cc := s.countryCode; cc != "" && strings.HasPrefix(key, cc) && len(key) > len(cc) {
		candidates = append(candidates, "0"+key[len(cc):], key[len(cc):])
	}

	for _, candidate := range candidates {
		guest, err := s.store.FindByPhone(ctx, candidate)
		if err == nil {
			return guest, nil
		}
		if !errors.Is(err, registry.ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrInvitationNotFound
}

// textOrClear turns a nil optional field into an explicit clear.
func textOrClear(value *string) *string {
	if value == nil {
		empty := ""
		return &empty
	}
	return value
}

func ptrTo[T any](v T) *T {
	return &v
}
