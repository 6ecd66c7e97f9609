package items

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KhadijaXD/lostly/internal/domain/shared/events"
	"github.com/KhadijaXD/lostly/internal/domain/user"
)

var (
	ErrItemIDRequired      = errors.New("items: id is required")
	ErrOwnerRequired       = errors.New("items: owner is required")
	ErrInvalidType         = errors.New("items: type must be lost or found")
	ErrInvalidCategory     = errors.New("items: invalid category")
	ErrInvalidStatus       = errors.New("items: invalid status")
	ErrNameRequired        = errors.New("items: name is required")
	ErrDescriptionRequired = errors.New("items: description is required")
	ErrLocationRequired    = errors.New("items: location is required")
	ErrDateRequired        = errors.New("items: date is required")
	ErrItemNotFound        = errors.New("items: item not found")
	ErrStatusRegression    = errors.New("items: status cannot move backwards")
	ErrItemClosed          = errors.New("items: item is no longer open for claims")
	ErrNotReportable       = errors.New("items: item is not available to be reported as found")
	ErrConcurrentUpdate    = errors.New("items: concurrent update")
)

type ID string

type Type string

const (
	TypeLost  Type = "lost"
	TypeFound Type = "found"
)

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryDocuments   Category = "documents"
	CategoryAccessories Category = "accessories"
	CategoryClothing    Category = "clothing"
	CategoryOther       Category = "other"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusClaimed  Status = "claimed"
	StatusFound    Status = "found"
	StatusResolved Status = "resolved"
)

// rank orders statuses; an item never moves to a lower rank.
func (s Status) rank() int {
	switch s {
	case StatusActive:
		return 0
	case StatusClaimed, StatusFound:
		return 1
	case StatusResolved:
		return 2
	default:
		return -1
	}
}

type Item struct {
	ID          ID
	Type        Type
	Name        string
	Category    Category
	Description string
	Location    string
	Date        time.Time
	Image       string
	Status      Status
	PostedBy    user.ID
	ClaimedBy   user.ID
	Claims      []Claim
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64

	events.EventRecorder
}

// Filter narrows item listings. Zero values match everything except resolved items,
// which are only returned when Status asks for them or IncludeResolved is set.
type Filter struct {
	Type            Type
	Category        Category
	Status          Status
	PostedBy        user.ID
	ClaimedBy       user.ID
	HasClaims       bool
	IncludeResolved bool
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Item, error)
	Save(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id ID) error
	List(ctx context.Context, filter Filter) ([]*Item, error)
}

type CreateParams struct {
	ID          ID
	Type        Type
	Name        string
	Category    Category
	Description string
	Location    string
	Date        time.Time
	Image       string
	PostedBy    user.ID
	Now         time.Time
}

func NewItem(params CreateParams) (*Item, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrItemIDRequired
	}
	if strings.TrimSpace(string(params.PostedBy)) == "" {
		return nil, ErrOwnerRequired
	}
	typ, err := ParseType(string(params.Type))
	if err != nil {
		return nil, err
	}
	item := &Item{
		ID:       params.ID,
		Type:     typ,
		Status:   StatusActive,
		PostedBy: params.PostedBy,
	}
	if err := item.applyDetails(Details{
		Name:        params.Name,
		Category:    params.Category,
		Description: params.Description,
		Location:    params.Location,
		Date:        params.Date,
		Image:       params.Image,
	}); err != nil {
		return nil, err
	}
	now := normalizeNow(params.Now)
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Record(ItemPosted{
		Base:     events.NewBase(EventItemPosted, string(item.ID), now),
		Type:     string(item.Type),
		PostedBy: string(item.PostedBy),
	})
	return item, nil
}

// Details is the owner-editable part of an item.
type Details struct {
	Name        string
	Category    Category
	Description string
	Location    string
	Date        time.Time
	Image       string
}

func (i *Item) UpdateDetails(details Details, now time.Time) error {
	if i.Status == StatusResolved {
		return ErrItemClosed
	}
	if err := i.applyDetails(details); err != nil {
		return err
	}
	i.UpdatedAt = normalizeNow(now)
	return nil
}

func (i *Item) applyDetails(d Details) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return ErrNameRequired
	}
	category, err := ParseCategory(string(d.Category))
	if err != nil {
		return err
	}
	description := strings.TrimSpace(d.Description)
	if description == "" {
		return ErrDescriptionRequired
	}
	location := strings.TrimSpace(d.Location)
	if location == "" {
		return ErrLocationRequired
	}
	if d.Date.IsZero() {
		return ErrDateRequired
	}
	i.Name = name
	i.Category = category
	i.Description = description
	i.Location = location
	i.Date = d.Date.UTC()
	if image := strings.TrimSpace(d.Image); image != "" {
		i.Image = image
	}
	return nil
}

// MarkResolved closes the item. Resolving twice is a no-op.
func (i *Item) MarkResolved(now time.Time) error {
	if i.Status == StatusResolved {
		return nil
	}
	if err := i.advance(StatusResolved); err != nil {
		return err
	}
	now = normalizeNow(now)
	i.UpdatedAt = now
	i.Record(ItemResolved{Base: events.NewBase(EventItemResolved, string(i.ID), now)})
	return nil
}

func (i *Item) IsOwnedBy(id user.ID) bool {
	return id != "" && i.PostedBy == id
}

func (i *Item) advance(next Status) error {
	cur := i.Status
	if next == cur {
		return nil
	}
	if next.rank() < 0 {
		return ErrInvalidStatus
	}
	switch {
	case next.rank() > cur.rank():
	case cur == StatusFound && next == StatusClaimed:
	default:
		return ErrStatusRegression
	}
	i.Status = next
	return nil
}

func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeLost:
		return TypeLost, nil
	case TypeFound:
		return TypeFound, nil
	default:
		return "", ErrInvalidType
	}
}

func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case CategoryElectronics, CategoryDocuments, CategoryAccessories, CategoryClothing, CategoryOther:
		return c, nil
	default:
		return "", ErrInvalidCategory
	}
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s.rank() < 0 {
		return "", ErrInvalidStatus
	}
	return s, nil
}

func normalizeNow(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC()
}
