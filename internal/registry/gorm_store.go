package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

// GormStore persists guests through gorm.
type GormStore struct {
	db   *gorm.DB
	opts options
}

var _ Store = (*GormStore)(nil)

// NewGormStore constructs a database backed Store.
func NewGormStore(db *gorm.DB, opts ...Option) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("registry: db is required")
	}
	return &GormStore{db: db, opts: newOptions(opts)}, nil
}

// Create inserts a guest under a freshly generated code. Collisions are
// detected by the unique index and retried with a new candidate.
func (s *GormStore) Create(ctx context.Context, in NewGuest) (*models.Guest, error) {
	guest, err := buildGuest(in)
	if err != nil {
		return nil, err
	}

	if s.opts.uniquePhone && guest.PhoneKey != "" {
		if err := s.ensurePhoneFree(ctx, s.db, guest.PhoneKey, ""); err != nil {
			return nil, err
		}
	}

	now := s.opts.now()
	guest.CreatedAt = now
	guest.UpdatedAt = now

	for attempt := 0; attempt < s.opts.codeAttempts; attempt++ {
		code, err := s.opts.generate()
		if err != nil {
			return nil, fmt.Errorf("registry: generate code: %w", err)
		}
		guest.UniqueCode = NormalizeCode(code)

		err = s.db.WithContext(ctx).Create(guest).Error
		if err == nil {
			return guest, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, fmt.Errorf("registry: create guest: %w", err)
		}
	}

	return nil, ErrCodeSpaceExhausted
}

func (s *GormStore) List(ctx context.Context, opts ListOptions) ([]models.Guest, int64, error) {
	opts = opts.normalised()

	query := s.db.WithContext(ctx).Model(&models.Guest{})
	if opts.Status != "" {
		query = query.Where("rsvp_status = ?", opts.Status)
	}
	if term := strings.ToLower(strings.TrimSpace(opts.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(name) LIKE ? OR unique_code LIKE ?", like, strings.ToUpper(like))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("registry: count guests: %w", err)
	}

	var guests []models.Guest
	if err := query.Order("created_at ASC").Order("id ASC").
		Offset(opts.Offset).Limit(opts.Limit).
		Find(&guests).Error; err != nil {
		return nil, 0, fmt.Errorf("registry: list guests: %w", err)
	}

	return guests, total, nil
}

func (s *GormStore) FindByCode(ctx context.Context, code string) (*models.Guest, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrNotFound
	}
	return s.take(s.db.WithContext(ctx).Where("unique_code = ?", code))
}

// FindByDevice returns the earliest claim when one device holds several codes.
func (s *GormStore) FindByDevice(ctx context.Context, deviceID string) (*models.Guest, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, ErrNotFound
	}
	return s.take(s.db.WithContext(ctx).
		Where("bound_device_id = ?", deviceID).
		Order("claimed_at ASC").Order("created_at ASC"))
}

func (s *GormStore) FindByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	key := PhoneKey(phone)
	if key == "" {
		return nil, ErrNotFound
	}
	return s.take(s.db.WithContext(ctx).Where("phone_key = ?", key).Order("created_at ASC"))
}

// Update writes only the columns named by patch, so a device bound by a
// concurrent claim is never overwritten with the value read here.
func (s *GormStore) Update(ctx context.Context, code string, patch Patch) (*models.Guest, error) {
	code = NormalizeCode(code)

	var guest models.Guest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("unique_code = ?", code).Take(&guest).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if patch.IfStatus != nil && guest.RSVPStatus != *patch.IfStatus {
			return ErrStatusChanged
		}

		now := s.opts.now()
		phoneChanged, err := applyPatch(&guest, patch, now)
		if err != nil {
			return err
		}
		if phoneChanged && s.opts.uniquePhone && guest.PhoneKey != "" {
			if err := s.ensurePhoneFree(ctx, tx, guest.PhoneKey, guest.ID); err != nil {
				return err
			}
		}

		guest.UpdatedAt = now
		query := tx.Model(&guest).Select(append(patch.columns(), "updated_at"))
		if patch.IfStatus != nil {
			query = query.Where("rsvp_status = ?", *patch.IfStatus)
		}
		res := query.Updates(&guest)
		if res.Error != nil {
			return res.Error
		}
		if patch.IfStatus != nil && res.RowsAffected == 0 {
			return ErrStatusChanged
		}

		return tx.Where("id = ?", guest.ID).Take(&guest).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) ||
			errors.Is(err, ErrDuplicateContact) || errors.Is(err, ErrStatusChanged) {
			return nil, err
		}
		return nil, fmt.Errorf("registry: update guest: %w", err)
	}

	return &guest, nil
}

// BindDevice performs the claim as one conditional UPDATE. When no row
// changes, a follow-up read tells apart an unknown code, a re-claim by the
// same device and a claim by a different device.
func (s *GormStore) BindDevice(ctx context.Context, code, deviceID string) (*models.Guest, error) {
	code = NormalizeCode(code)
	deviceID = strings.TrimSpace(deviceID)
	if code == "" {
		return nil, ErrNotFound
	}
	if deviceID == "" {
		return nil, Invalid("device_id", "is required")
	}

	res := s.db.WithContext(ctx).Model(&models.Guest{}).
		Where("unique_code = ? AND bound_device_id IS NULL", code).
		Updates(map[string]any{
			"bound_device_id": deviceID,
			"claimed_at":      s.opts.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("registry: bind device: %w", res.Error)
	}

	guest, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !guest.BoundTo(deviceID) {
		return nil, ErrDeviceMismatch
	}
	return guest, nil
}

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	type row struct {
		Status   models.RSVPStatus
		Count    int64
		PlusOnes int64
	}

	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Guest{}).
		Select("rsvp_status AS status, COUNT(*) AS count, COALESCE(SUM(plus_one_count), 0) AS plus_ones").
		Group("rsvp_status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, fmt.Errorf("registry: stats: %w", err)
	}

	var stats Stats
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case models.RSVPPending:
			stats.Pending = r.Count
		case models.RSVPAttending:
			stats.Attending = r.Count
			stats.ExpectedAttendees = r.Count + r.PlusOnes
		case models.RSVPDeclined:
			stats.Declined = r.Count
		}
	}

	if err := s.db.WithContext(ctx).Model(&models.Guest{}).
		Where("invite_sent = ?", true).Count(&stats.InvitesSent).Error; err != nil {
		return Stats{}, fmt.Errorf("registry: stats: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Guest{}).
		Where("bound_device_id IS NOT NULL").Count(&stats.Claimed).Error; err != nil {
		return Stats{}, fmt.Errorf("registry: stats: %w", err)
	}

	return stats, nil
}

func (s *GormStore) take(query *gorm.DB) (*models.Guest, error) {
	var guest models.Guest
	if err := query.Take(&guest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("registry: find guest: %w", err)
	}
	return &guest, nil
}

func (s *GormStore) ensurePhoneFree(ctx context.Context, db *gorm.DB, key, exceptID string) error {
	query := db.WithContext(ctx).Model(&models.Guest{}).Where("phone_key = ?", key)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("registry: check phone: %w", err)
	}
	if count > 0 {
		return ErrDuplicateContact
	}
	return nil
}
