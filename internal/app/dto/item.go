package dto

import (
	"time"

	itemsvc "github.com/KhadijaXD/lostly/internal/app/services/items"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
)

type FinderInfo struct {
	ContactNumber     string     `json:"contactNumber,omitempty"`
	Email             string     `json:"email,omitempty"`
	LocationFound     string     `json:"locationFound,omitempty"`
	DateFound         *time.Time `json:"dateFound,omitempty"`
	AdditionalDetails string     `json:"additionalDetails,omitempty"`
}

type ClaimantInfo struct {
	ContactNumber    string     `json:"contactNumber,omitempty"`
	Email            string     `json:"email,omitempty"`
	ProofDescription string     `json:"proofDescription,omitempty"`
	PurchaseLocation string     `json:"purchaseLocation,omitempty"`
	PurchaseDate     *time.Time `json:"purchaseDate,omitempty"`
	UniqueFeatures   string     `json:"uniqueFeatures,omitempty"`
	AdditionalProof  string     `json:"additionalProof,omitempty"`
}

type Claim struct {
	ID           string        `json:"id"`
	User         string        `json:"user"`
	Status       string        `json:"status"`
	Message      string        `json:"message,omitempty"`
	FinderInfo   *FinderInfo   `json:"finderInfo,omitempty"`
	ClaimantInfo *ClaimantInfo `json:"claimantInfo,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	DecidedAt    *time.Time    `json:"decidedAt,omitempty"`
}

type Item struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Image       string    `json:"image,omitempty"`
	Status      string    `json:"status"`
	PostedBy    string    `json:"postedBy"`
	ClaimedBy   string    `json:"claimedBy,omitempty"`
	Claims      []Claim   `json:"claims"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ClaimEntry struct {
	Item  Item  `json:"item"`
	Claim Claim `json:"claim"`
}

func MapItem(item *domainitems.Item) Item {
	if item == nil {
		return Item{}
	}
	out := Item{
		ID:          string(item.ID),
		Type:        string(item.Type),
		Name:        item.Name,
		Category:    string(item.Category),
		Description: item.Description,
		Location:    item.Location,
		Date:        item.Date,
		Image:       item.Image,
		Status:      string(item.Status),
		PostedBy:    string(item.PostedBy),
		ClaimedBy:   string(item.ClaimedBy),
		Claims:      make([]Claim, 0, len(item.Claims)),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	for _, c := range item.Claims {
		out.Claims = append(out.Claims, MapClaim(c))
	}
	return out
}

func MapItems(items []*domainitems.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, MapItem(item))
	}
	return out
}

func MapClaim(c domainitems.Claim) Claim {
	out := Claim{
		ID:        string(c.ID),
		User:      string(c.User),
		Status:    string(c.Status),
		Message:   c.Message,
		CreatedAt: c.CreatedAt,
		DecidedAt: optionalTime(c.DecidedAt),
	}
	if fi := c.FinderInfo; fi != nil {
		out.FinderInfo = &FinderInfo{
			ContactNumber:     fi.ContactNumber,
			Email:             fi.Email,
			LocationFound:     fi.LocationFound,
			DateFound:         optionalTime(fi.DateFound),
			AdditionalDetails: fi.AdditionalDetails,
		}
	}
	if ci := c.ClaimantInfo; ci != nil {
		out.ClaimantInfo = &ClaimantInfo{
			ContactNumber:    ci.ContactNumber,
			Email:            ci.Email,
			ProofDescription: ci.ProofDescription,
			PurchaseLocation: ci.PurchaseLocation,
			PurchaseDate:     optionalTime(ci.PurchaseDate),
			UniqueFeatures:   ci.UniqueFeatures,
			AdditionalProof:  ci.AdditionalProof,
		}
	}
	return out
}

func MapClaimEntries(entries []itemsvc.ClaimEntry) []ClaimEntry {
	out := make([]ClaimEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ClaimEntry{Item: MapItem(e.Item), Claim: MapClaim(e.Claim)})
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
