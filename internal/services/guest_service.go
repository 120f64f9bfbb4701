package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/pkg/validator"
)

// CreateGuestInput is an admin supplied guest record.
type CreateGuestInput struct {
	Name                string  `json:"name" validate:"required,max=255"`
	PhoneNumber         string  `json:"phone_number" validate:"required,phone"`
	Email               *string `json:"email" validate:"omitempty,email"`
	IsFamily            bool    `json:"is_family"`
	PlusOneCount        int     `json:"plus_one_count" validate:"gte=0,lte=20"`
	DietaryRestrictions *string `json:"dietary_restrictions" validate:"omitempty,max=2000"`
	Notes               *string `json:"notes" validate:"omitempty,max=2000"`
}

// GuestListOptions pages and filters the admin guest list.
type GuestListOptions struct {
	Page    int
	PerPage int
	Status  models.RSVPStatus
	Search  string
}

// ImportResult summarises a CSV upload.
type ImportResult struct {
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Errors  []ImportError `json:"errors,omitempty"`
}

// ImportError explains why a CSV row was skipped.
type ImportError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// GuestOption customises GuestService behaviour.
type GuestOption func(*GuestService)

// WithGuestSiteURL sets the public site used to build invite links.
func WithGuestSiteURL(url string) GuestOption {
	return func(s *GuestService) {
		s.siteURL = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithGuestAudit records admin changes in the audit log.
func WithGuestAudit(audit *AuditService) GuestOption {
	return func(s *GuestService) {
		s.audit = audit
	}
}

// GuestService implements admin operations on the guest list. It writes
// directly to the registry and bypasses the claim protocol.
type GuestService struct {
	store   registry.Store
	audit   *AuditService
	siteURL string
}

// NewGuestService constructs a GuestService.
func NewGuestService(store registry.Store, opts ...GuestOption) (*GuestService, error) {
	if store == nil {
		return nil, errors.New("guest service: store is required")
	}
	svc := &GuestService{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create adds a guest with a freshly generated code.
func (s *GuestService) Create(ctx context.Context, in CreateGuestInput) (*models.Guest, error) {
	ctx = ensureContext(ctx)
	guest, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "guest.create",
		Resource: guest.UniqueCode,
		Result:   AuditSuccess,
		Metadata: map[string]any{"name": guest.Name},
	})
	return guest, nil
}

func (s *GuestService) create(ctx context.Context, in CreateGuestInput) (*models.Guest, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := validator.ValidateStruct(in); err != nil {
		return nil, asInputError(err)
	}

	return s.store.Create(ctx, registry.NewGuest{
		Name:                in.Name,
		PhoneNumber:         in.PhoneNumber,
		Email:               in.Email,
		IsFamily:            in.IsFamily,
		PlusOneCount:        in.PlusOneCount,
		DietaryRestrictions: in.DietaryRestrictions,
		Notes:               in.Notes,
	})
}

// List returns one page of guests and the total matching count.
func (s *GuestService) List(ctx context.Context, opts GuestListOptions) ([]models.Guest, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = registry.DefaultListLimit
	}
	if perPage > registry.MaxListLimit {
		perPage = registry.MaxListLimit
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, 0, registry.Invalid("status", fmt.Sprintf("%q is not a known status", opts.Status))
	}

	return s.store.List(ctx, registry.ListOptions{
		Offset: (page - 1) * perPage,
		Limit:  perPage,
		Status: opts.Status,
		Search: opts.Search,
	})
}

// Get returns a guest by code.
func (s *GuestService) Get(ctx context.Context, code string) (*models.Guest, error) {
	guest, err := s.store.FindByCode(ensureContext(ctx), code)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return guest, nil
}

// Update applies an admin edit.
func (s *GuestService) Update(ctx context.Context, code string, patch registry.Patch) (*models.Guest, error) {
	ctx = ensureContext(ctx)
	if patch.Email != nil && strings.TrimSpace(*patch.Email) != "" {
		if err := validator.ValidateStruct(struct {
			Email string `json:"email" validate:"email"`
		}{Email: strings.TrimSpace(*patch.Email)}); err != nil {
			return nil, asInputError(err)
		}
	}

	guest, err := s.store.Update(ctx, code, patch)
	if err != nil {
		return nil, translateStoreError(err)
	}
	recordAudit(s.audit, ctx, AuditEntry{Action: "guest.update", Resource: guest.UniqueCode, Result: AuditSuccess})
	return guest, nil
}

// MarkInviteSent records that the invitation was delivered outside the
// system. It has no effect on the claim protocol.
func (s *GuestService) MarkInviteSent(ctx context.Context, code string, sent bool) (*models.Guest, error) {
	ctx = ensureContext(ctx)
	guest, err := s.store.Update(ctx, code, registry.Patch{InviteSent: &sent})
	if err != nil {
		return nil, translateStoreError(err)
	}
	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "guest.mark_sent",
		Resource: guest.UniqueCode,
		Result:   AuditSuccess,
		Metadata: map[string]any{"invite_sent": sent},
	})
	return guest, nil
}

// Stats returns the dashboard counters.
func (s *GuestService) Stats(ctx context.Context) (registry.Stats, error) {
	return s.store.Stats(ensureContext(ctx))
}

// InviteLink is the public RSVP address for code.
func (s *GuestService) InviteLink(code string) string {
	if code == "" {
		return ""
	}
	return s.siteURL + "/rsvp/" + code
}

// BulkImport creates one guest per CSV row. The first row must be a header
// naming at least the name and phone_number columns. The whole file is
// parsed before any guest is created, so a malformed file imports nothing.
// Rows that fail validation are skipped and reported; the rest are created.
func (s *GuestService) BulkImport(ctx context.Context, r io.Reader) (*ImportResult, error) {
	ctx = ensureContext(ctx)

	rows, columns, err := readGuestCSV(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, row := range rows {
		in, reason := rowToInput(row.record, columns)
		if reason != "" {
			result.skip(row.line, reason)
			continue
		}

		if _, err := s.create(ctx, in); err != nil {
			var inputErr *registry.InputError
			switch {
			case errors.As(err, &inputErr):
				result.skip(row.line, inputErr.Field+" "+inputErr.Reason)
			case errors.Is(err, registry.ErrDuplicateContact):
				result.skip(row.line, "duplicate phone number")
			default:
				recordAudit(s.audit, ctx, AuditEntry{
					Action:   "guest.import",
					Resource: "guests",
					Result:   AuditFailure,
					Metadata: map[string]any{"created": result.Created, "skipped": result.Skipped, "line": row.line},
				})
				return result, err
			}
			continue
		}
		result.Created++
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "guest.import",
		Resource: "guests",
		Result:   AuditSuccess,
		Metadata: map[string]any{"created": result.Created, "skipped": result.Skipped},
	})
	return result, nil
}

type csvRow struct {
	line   int
	record []string
}

// readGuestCSV reads the header and every non-blank row.
func readGuestCSV(r io.Reader) ([]csvRow, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: file is empty", ErrInvalidCSV)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	columns := indexColumns(header)
	if _, ok := columns["name"]; !ok {
		return nil, nil, fmt.Errorf("%w: missing name column", ErrInvalidCSV)
	}
	if _, ok := columns["phone_number"]; !ok {
		return nil, nil, fmt.Errorf("%w: missing phone_number column", ErrInvalidCSV)
	}

	var rows []csvRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if blankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, csvRow{line: line, record: record})
	}
	return rows, columns, nil
}

func (r *ImportResult) skip(line int, reason string) {
	r.Skipped++
	r.Errors = append(r.Errors, ImportError{Line: line, Reason: reason})
}

var columnAliases = map[string]string{
	"phone":  "phone_number",
	"mobile": "phone_number",
	"family": "is_family",
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		name = strings.ReplaceAll(name, " ", "_")
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}
	return columns
}

func rowToInput(record []string, columns map[string]int) (CreateGuestInput, string) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	optional := func(name string) *string {
		if v := field(name); v != "" {
			return &v
		}
		return nil
	}

	in := CreateGuestInput{
		Name:                field("name"),
		PhoneNumber:         field("phone_number"),
		Email:               optional("email"),
		DietaryRestrictions: optional("dietary_restrictions"),
		Notes:               optional("notes"),
	}
	if in.Name == "" {
		return in, "name is required"
	}
	if in.PhoneNumber == "" {
		return in, "phone_number is required"
	}

	if raw := field("is_family"); raw != "" {
		family, ok := parseFlag(raw)
		if !ok {
			return in, fmt.Sprintf("is_family %q is not a boolean", raw)
		}
		in.IsFamily = family
	}
	if raw := field("plus_one_count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return in, fmt.Sprintf("plus_one_count %q is not a number", raw)
		}
		in.PlusOneCount = count
	}
	return in, ""
}

func parseFlag(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "t":
		return true, true
	case "0", "false", "no", "n", "f":
		return false, true
	}
	return false, false
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// asInputError converts validator failures into the registry's input error
// so every layer reports bad fields the same way.
func asInputError(err error) error {
	var failures validator.ValidationErrors
	if errors.As(err, &failures) && len(failures) > 0 {
		first := failures[0]
		reason := "failed on " + first.Tag
		if first.Param != "" {
			reason += "=" + first.Param
		}
		return registry.Invalid(first.Field, reason)
	}
	return err
}
