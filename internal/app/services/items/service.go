package items

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "github.com/KhadijaXD/lostly/internal/app/outbox"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

var (
	ErrForbidden = errors.New("items: not allowed to modify this item")
	ErrInvalidID = errors.New("items: invalid id")
)

const defaultMaxAttempts = 5

// RoomCloser deactivates the chat rooms attached to an item.
type RoomCloser interface {
	DeactivateForItem(ctx context.Context, itemID domainitems.ID) error
}

// Actor is the authenticated caller of an item operation.
type Actor struct {
	ID   domainuser.ID
	Role domainuser.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == domainuser.RoleAdmin
}

type Service struct {
	Items       domainitems.Repository
	Rooms       RoomCloser
	Outbox      appoutbox.Outbox
	Encoder     appoutbox.EventEncoder
	Now         func() time.Time
	NewID       func() string
	MaxAttempts int
	Logger      *slog.Logger
}

type CreateParams struct {
	Type        string
	Name        string
	Category    string
	Description string
	Location    string
	Date        time.Time
	Image       string
}

type ListParams struct {
	Type            string
	Category        string
	Status          string
	PostedBy        string
	IncludeResolved bool
}

type UpdateParams struct {
	Name        string
	Category    string
	Description string
	Location    string
	Date        time.Time
	Image       string
}

type ClaimParams struct {
	Message string
	Info    domainitems.ClaimantInfo
}

type ReportFoundParams struct {
	Message string
	Info    domainitems.FinderInfo
}

// ClaimEntry pairs a claim with the item it was filed on.
type ClaimEntry struct {
	Item  *domainitems.Item
	Claim domainitems.Claim
}

func (s *Service) Create(ctx context.Context, actor Actor, params CreateParams) (*domainitems.Item, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	typ, err := domainitems.ParseType(params.Type)
	if err != nil {
		return nil, err
	}
	category, err := domainitems.ParseCategory(params.Category)
	if err != nil {
		return nil, err
	}
	item, err := domainitems.NewItem(domainitems.CreateParams{
		ID:          domainitems.ID(s.newID()),
		Type:        typ,
		Name:        params.Name,
		Category:    category,
		Description: params.Description,
		Location:    params.Location,
		Date:        params.Date,
		Image:       params.Image,
		PostedBy:    actor.ID,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Items.Save(ctx, item); err != nil {
		return nil, err
	}
	s.publish(ctx, item)
	s.logger().Info("item posted", "item_id", item.ID, "type", item.Type, "posted_by", item.PostedBy)
	return item, nil
}

// List returns items newest first. Resolved items only appear when asked for.
func (s *Service) List(ctx context.Context, params ListParams) ([]*domainitems.Item, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	filter := domainitems.Filter{
		PostedBy:        domainuser.ID(strings.TrimSpace(params.PostedBy)),
		IncludeResolved: params.IncludeResolved,
	}
	var err error
	if params.Type != "" {
		if filter.Type, err = domainitems.ParseType(params.Type); err != nil {
			return nil, err
		}
	}
	if params.Category != "" {
		if filter.Category, err = domainitems.ParseCategory(params.Category); err != nil {
			return nil, err
		}
	}
	if params.Status != "" {
		if filter.Status, err = domainitems.ParseStatus(params.Status); err != nil {
			return nil, err
		}
	}
	return s.Items.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*domainitems.Item, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validateIDs(id); err != nil {
		return nil, err
	}
	return s.Items.ByID(ctx, domainitems.ID(id))
}

func (s *Service) Update(ctx context.Context, actor Actor, id string, params UpdateParams) (*domainitems.Item, error) {
	return s.mutate(ctx, id, func(item *domainitems.Item) error {
		if err := authorize(actor, item); err != nil {
			return err
		}
		return item.UpdateDetails(domainitems.Details{
			Name:        params.Name,
			Category:    domainitems.Category(strings.ToLower(strings.TrimSpace(params.Category))),
			Description: params.Description,
			Location:    params.Location,
			Date:        params.Date,
			Image:       params.Image,
		}, s.now())
	})
}

// Delete removes the item and closes every chat room opened for it.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, item); err != nil {
		return err
	}
	if err := s.Items.Delete(ctx, item.ID); err != nil {
		return err
	}
	if s.Rooms != nil {
		if err := s.Rooms.DeactivateForItem(ctx, item.ID); err != nil {
			return fmt.Errorf("close chats for item %s: %w", item.ID, err)
		}
	}
	s.logger().Info("item deleted", "item_id", item.ID, "by", actor.ID)
	return nil
}

func (s *Service) FileClaim(ctx context.Context, actor Actor, id string, params ClaimParams) (*domainitems.Item, *domainitems.Claim, error) {
	var claim domainitems.Claim
	info := params.Info
	item, err := s.mutate(ctx, id, func(item *domainitems.Item) error {
		c, err := item.FileClaim(domainitems.FileClaimParams{
			ID:       domainitems.ClaimID(s.newID()),
			Claimant: actor.ID,
			Message:  params.Message,
			Info:     &info,
			Now:      s.now(),
		})
		if err != nil {
			return err
		}
		claim = *c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger().Info("claim filed", "item_id", item.ID, "claim_id", claim.ID, "claimant", actor.ID)
	return item, &claim, nil
}

func (s *Service) ReportFound(ctx context.Context, actor Actor, id string, params ReportFoundParams) (*domainitems.Item, error) {
	item, err := s.mutate(ctx, id, func(item *domainitems.Item) error {
		_, err := item.ReportFound(domainitems.ReportFoundParams{
			ID:       domainitems.ClaimID(s.newID()),
			Reporter: actor.ID,
			Message:  params.Message,
			Info:     params.Info,
			Now:      s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("item reported found", "item_id", item.ID, "reporter", actor.ID)
	return item, nil
}

// Decide approves or rejects a pending claim. Admin decisions made through the admin
// surface resolve the item on approval.
func (s *Service) Decide(ctx context.Context, actor Actor, itemID, claimID, decision string, adminSurface bool) (*domainitems.Item, error) {
	status, err := domainitems.ParseClaimStatus(decision)
	if err != nil {
		return nil, err
	}
	if err := validateIDs(claimID); err != nil {
		return nil, err
	}
	if adminSurface && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	item, err := s.mutate(ctx, itemID, func(item *domainitems.Item) error {
		if err := authorize(actor, item); err != nil {
			return err
		}
		_, err := item.DecideClaim(domainitems.DecideParams{
			ClaimID:  domainitems.ClaimID(claimID),
			Decision: status,
			ByAdmin:  adminSurface,
			Now:      s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("claim decided", "item_id", item.ID, "claim_id", claimID, "decision", status, "by", actor.ID)
	return item, nil
}

func (s *Service) Resolve(ctx context.Context, actor Actor, id string) (*domainitems.Item, error) {
	return s.mutate(ctx, id, func(item *domainitems.Item) error {
		if err := authorize(actor, item); err != nil {
			return err
		}
		return item.MarkResolved(s.now())
	})
}

// MyClaims lists every claim the actor filed, including on resolved items.
func (s *Service) MyClaims(ctx context.Context, actor Actor) ([]ClaimEntry, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	items, err := s.Items.List(ctx, domainitems.Filter{ClaimedBy: actor.ID, IncludeResolved: true})
	if err != nil {
		return nil, err
	}
	out := make([]ClaimEntry, 0, len(items))
	for _, item := range items {
		for _, claim := range item.Claims {
			if claim.User == actor.ID {
				out = append(out, ClaimEntry{Item: item, Claim: claim})
			}
		}
	}
	return out, nil
}

// MyItemsClaims lists the actor's items that have received claims.
func (s *Service) MyItemsClaims(ctx context.Context, actor Actor) ([]*domainitems.Item, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.Items.List(ctx, domainitems.Filter{PostedBy: actor.ID, HasClaims: true, IncludeResolved: true})
}

// mutate loads the item, applies fn and saves it, retrying on version conflicts.
func (s *Service) mutate(ctx context.Context, id string, fn func(*domainitems.Item) error) (*domainitems.Item, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validateIDs(id); err != nil {
		return nil, err
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	for attempt := 1; ; attempt++ {
		item, err := s.Items.ByID(ctx, domainitems.ID(id))
		if err != nil {
			return nil, err
		}
		if err := fn(item); err != nil {
			return nil, err
		}
		err = s.Items.Save(ctx, item)
		if err == nil {
			s.publish(ctx, item)
			return item, nil
		}
		if !errors.Is(err, domainitems.ErrConcurrentUpdate) || attempt >= attempts {
			return nil, err
		}
		s.logger().Debug("item version conflict, retrying", "item_id", id, "attempt", attempt)
	}
}

func (s *Service) publish(ctx context.Context, item *domainitems.Item) {
	if err := appoutbox.Drain(ctx, s.Outbox, s.Encoder, item); err != nil {
		s.logger().Error("item outbox write failed", "item_id", item.ID, "error", err)
	}
}

func authorize(actor Actor, item *domainitems.Item) error {
	if actor.IsAdmin() || item.IsOwnedBy(actor.ID) {
		return nil
	}
	return ErrForbidden
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := uuid.Validate(id); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) ensureDependencies() error {
	if s.Items == nil {
		return errors.New("items: item repository required")
	}
	return nil
}
