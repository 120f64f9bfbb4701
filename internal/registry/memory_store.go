package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

// MemoryStore keeps guests in process memory. It is intended for tests,
// demos and single-process deployments where losing data on restart is
// acceptable.
type MemoryStore struct {
	mu     sync.RWMutex
	opts   options
	guests map[string]*models.Guest // by code
	order  []string                 // codes in insertion order
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:   newOptions(opts),
		guests: make(map[string]*models.Guest),
	}
}

func (s *MemoryStore) Create(_ context.Context, in NewGuest) (*models.Guest, error) {
	guest, err := buildGuest(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.uniquePhone && guest.PhoneKey != "" && s.phoneTakenLocked(guest.PhoneKey, "") {
		return nil, ErrDuplicateContact
	}

	for attempt := 0; attempt < s.opts.codeAttempts; attempt++ {
		code, err := s.opts.generate()
		if err != nil {
			return nil, fmt.Errorf("registry: generate code: %w", err)
		}
		code = NormalizeCode(code)
		if _, taken := s.guests[code]; taken {
			continue
		}

		now := s.opts.now()
		guest.ID = uuid.NewString()
		guest.UniqueCode = code
		guest.CreatedAt = now
		guest.UpdatedAt = now

		s.guests[code] = guest
		s.order = append(s.order, code)
		return cloneGuest(guest), nil
	}

	return nil, ErrCodeSpaceExhausted
}

func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]models.Guest, int64, error) {
	opts = opts.normalised()
	term := strings.ToLower(strings.TrimSpace(opts.Search))

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Guest, 0, len(s.order))
	for _, code := range s.order {
		guest := s.guests[code]
		if opts.Status != "" && guest.RSVPStatus != opts.Status {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(guest.Name), term) &&
			!strings.Contains(guest.UniqueCode, strings.ToUpper(term)) {
			continue
		}
		matched = append(matched, *cloneGuest(guest))
	}

	total := int64(len(matched))
	if opts.Offset >= len(matched) {
		return []models.Guest{}, total, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[opts.Offset:end], total, nil
}

func (s *MemoryStore) FindByCode(_ context.Context, code string) (*models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guest, ok := s.guests[NormalizeCode(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGuest(guest), nil
}

func (s *MemoryStore) FindByDevice(_ context.Context, deviceID string) (*models.Guest, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*models.Guest
	for _, code := range s.order {
		if guest := s.guests[code]; guest.BoundTo(deviceID) {
			matches = append(matches, guest)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ClaimedAt.Before(*matches[j].ClaimedAt)
	})
	return cloneGuest(matches[0]), nil
}

func (s *MemoryStore) FindByPhone(_ context.Context, phone string) (*models.Guest, error) {
	key := PhoneKey(phone)
	if key == "" {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, code := range s.order {
		if guest := s.guests[code]; guest.PhoneKey == key {
			return cloneGuest(guest), nil
		}
	}
	return nil, ErrNotFound
}

// Update applies patch to a copy and only publishes it when valid, so a
// failed update leaves the stored record untouched.
func (s *MemoryStore) Update(_ context.Context, code string, patch Patch) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.guests[NormalizeCode(code)]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.IfStatus != nil && current.RSVPStatus != *patch.IfStatus {
		return nil, ErrStatusChanged
	}

	now := s.opts.now()
	next := cloneGuest(current)
	phoneChanged, err := applyPatch(next, patch, now)
	if err != nil {
		return nil, err
	}
	if phoneChanged && s.opts.uniquePhone && next.PhoneKey != "" && s.phoneTakenLocked(next.PhoneKey, next.ID) {
		return nil, ErrDuplicateContact
	}

	next.UpdatedAt = now
	s.guests[next.UniqueCode] = next
	return cloneGuest(next), nil
}

// BindDevice is a compare-and-set under the store lock.
func (s *MemoryStore) BindDevice(_ context.Context, code, deviceID string) (*models.Guest, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, Invalid("device_id", "is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	guest, ok := s.guests[NormalizeCode(code)]
	if !ok {
		return nil, ErrNotFound
	}

	if !guest.Claimed() {
		now := s.opts.now()
		device := deviceID
		guest.BoundDeviceID = &device
		guest.ClaimedAt = &now
		guest.UpdatedAt = now
		return cloneGuest(guest), nil
	}
	if guest.BoundTo(deviceID) {
		return cloneGuest(guest), nil
	}
	return nil, ErrDeviceMismatch
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	for _, guest := range s.guests {
		stats.Total++
		switch guest.RSVPStatus {
		case models.RSVPPending:
			stats.Pending++
		case models.RSVPAttending:
			stats.Attending++
		case models.RSVPDeclined:
			stats.Declined++
		}
		if guest.InviteSent {
			stats.InvitesSent++
		}
		if guest.Claimed() {
			stats.Claimed++
		}
		stats.ExpectedAttendees += int64(guest.ExpectedAttendees())
	}
	return stats, nil
}

func (s *MemoryStore) phoneTakenLocked(key, exceptID string) bool {
	for _, guest := range s.guests {
		if guest.PhoneKey == key && guest.ID != exceptID {
			return true
		}
	}
	return false
}

func cloneGuest(in *models.Guest) *models.Guest {
	if in == nil {
		return nil
	}
	out := *in
	out.Email = clonePtr(in.Email)
	out.PlusOneName = clonePtr(in.PlusOneName)
	out.DietaryRestrictions = clonePtr(in.DietaryRestrictions)
	out.GuestQuestion = clonePtr(in.GuestQuestion)
	out.Notes = clonePtr(in.Notes)
	out.BoundDeviceID = clonePtr(in.BoundDeviceID)
	out.InviteSentAt = clonePtr(in.InviteSentAt)
	out.ClaimedAt = clonePtr(in.ClaimedAt)
	out.RespondedAt = clonePtr(in.RespondedAt)
	return &out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
