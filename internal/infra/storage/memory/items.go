package memory

import (
	"context"
	"sort"
	"sync"

	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
)

// ItemRepository keeps items and their claims in memory with version checks on save.
type ItemRepository struct {
	mu    sync.RWMutex
	items map[domainitems.ID]*domainitems.Item
}

func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: make(map[domainitems.ID]*domainitems.Item)}
}

func (r *ItemRepository) ByID(ctx context.Context, id domainitems.ID) (*domainitems.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainitems.ErrItemNotFound
	}
	return cloneItem(item), nil
}

func (r *ItemRepository) Save(ctx context.Context, item *domainitems.Item) error {
	if item == nil || item.ID == "" {
		return domainitems.ErrItemIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[item.ID]
	switch {
	case ok && current.Version != item.Version:
		return domainitems.ErrConcurrentUpdate
	case !ok && item.Version != 0:
		return domainitems.ErrConcurrentUpdate
	}
	stored := cloneItem(item)
	stored.Version = item.Version + 1
	r.items[item.ID] = stored
	item.Version = stored.Version
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, id domainitems.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainitems.ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

// List returns matching items, newest first.
func (r *ItemRepository) List(ctx context.Context, filter domainitems.Filter) ([]*domainitems.Item, error) {
	r.mu.RLock()
	out := make([]*domainitems.Item, 0, len(r.items))
	for _, item := range r.items {
		if matches(item, filter) {
			out = append(out, cloneItem(item))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matches(item *domainitems.Item, f domainitems.Filter) bool {
	if f.Type != "" && item.Type != f.Type {
		return false
	}
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.Status != "" {
		if item.Status != f.Status {
			return false
		}
	} else if !f.IncludeResolved && item.Status == domainitems.StatusResolved {
		return false
	}
	if f.PostedBy != "" && item.PostedBy != f.PostedBy {
		return false
	}
	if f.HasClaims && len(item.Claims) == 0 {
		return false
	}
	if f.ClaimedBy != "" {
		if _, ok := item.ClaimBy(f.ClaimedBy); !ok {
			return false
		}
	}
	return true
}

func cloneItem(item *domainitems.Item) *domainitems.Item {
	if item == nil {
		return nil
	}
	cp := &domainitems.Item{
		ID:          item.ID,
		Type:        item.Type,
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Location:    item.Location,
		Date:        item.Date,
		Image:       item.Image,
		Status:      item.Status,
		PostedBy:    item.PostedBy,
		ClaimedBy:   item.ClaimedBy,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
		Version:     item.Version,
	}
	if len(item.Claims) > 0 {
		cp.Claims = make([]domainitems.Claim, len(item.Claims))
		for i, c := range item.Claims {
			cp.Claims[i] = c
			if c.FinderInfo != nil {
				info := *c.FinderInfo
				cp.Claims[i].FinderInfo = &info
			}
			if c.ClaimantInfo != nil {
				info := *c.ClaimantInfo
				cp.Claims[i].ClaimantInfo = &info
			}
		}
	}
	return cp
}

var _ domainitems.Repository = (*ItemRepository)(nil)
