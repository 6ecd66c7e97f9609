package items

import (
	"errors"
	"strings"
	"time"

	"github.com/KhadijaXD/lostly/internal/domain/shared/events"
	"github.com/KhadijaXD/lostly/internal/domain/user"
)

var (
	ErrClaimIDRequired  = errors.New("items: claim id is required")
	ErrClaimantRequired = errors.New("items: claimant is required")
	ErrClaimNotFound    = errors.New("items: claim not found")
	ErrOwnClaim         = errors.New("items: cannot claim your own item")
	ErrDuplicateClaim   = errors.New("items: you have already claimed this item")
	ErrInvalidDecision  = errors.New("items: decision must be approved or rejected")
	ErrClaimDecided     = errors.New("items: claim already decided")
	ErrAlreadyClaimed   = errors.New("items: item already has an approved claim")
)

type ClaimID string

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

func ParseClaimStatus(raw string) (ClaimStatus, error) {
	switch ClaimStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case ClaimPending:
		return ClaimPending, nil
	case ClaimApproved:
		return ClaimApproved, nil
	case ClaimRejected:
		return ClaimRejected, nil
	default:
		return "", ErrInvalidDecision
	}
}

// FinderInfo is attached to claims created by reporting a lost item as found.
type FinderInfo struct {
	ContactNumber     string
	Email             string
	LocationFound     string
	DateFound         time.Time
	AdditionalDetails string
}

// ClaimantInfo carries the ownership proof supplied with a claim.
type ClaimantInfo struct {
	ContactNumber    string
	Email            string
	ProofDescription string
	PurchaseLocation string
	PurchaseDate     time.Time
	UniqueFeatures   string
	AdditionalProof  string
}

type Claim struct {
	ID           ClaimID
	User         user.ID
	Status       ClaimStatus
	Message      string
	FinderInfo   *FinderInfo
	ClaimantInfo *ClaimantInfo
	CreatedAt    time.Time
	DecidedAt    time.Time
}

func (c Claim) IsApproved() bool {
	return c.Status == ClaimApproved
}

func (c Claim) IsPending() bool {
	return c.Status == ClaimPending
}

type FileClaimParams struct {
	ID       ClaimID
	Claimant user.ID
	Message  string
	Info     *ClaimantInfo
	Now      time.Time
}

// FileClaim appends a pending claim. Filing never sets ClaimedBy; only approval does.
func (i *Item) FileClaim(params FileClaimParams) (*Claim, error) {
	if err := i.checkClaimant(params.ID, params.Claimant); err != nil {
		return nil, err
	}
	if i.Status == StatusClaimed || i.Status == StatusResolved {
		return nil, ErrItemClosed
	}
	now := normalizeNow(params.Now)
	claim := Claim{
		ID:           params.ID,
		User:         params.Claimant,
		Status:       ClaimPending,
		Message:      strings.TrimSpace(params.Message),
		ClaimantInfo: params.Info,
		CreatedAt:    now,
	}
	i.Claims = append(i.Claims, claim)
	i.UpdatedAt = now
	i.Record(ClaimFiled{
		Base:     events.NewBase(EventClaimFiled, string(i.ID), now),
		ClaimID:  string(claim.ID),
		Claimant: string(claim.User),
	})
	return &i.Claims[len(i.Claims)-1], nil
}

type ReportFoundParams struct {
	ID       ClaimID
	Reporter user.ID
	Message  string
	Info     FinderInfo
	Now      time.Time
}

// ReportFound marks an active item as found and records the finder as a pending claim.
func (i *Item) ReportFound(params ReportFoundParams) (*Claim, error) {
	if err := i.checkClaimant(params.ID, params.Reporter); err != nil {
		return nil, err
	}
	if i.Status != StatusActive {
		return nil, ErrNotReportable
	}
	if err := i.advance(StatusFound); err != nil {
		return nil, err
	}
	now := normalizeNow(params.Now)
	info := params.Info
	claim := Claim{
		ID:         params.ID,
		User:       params.Reporter,
		Status:     ClaimPending,
		Message:    strings.TrimSpace(params.Message),
		FinderInfo: &info,
		CreatedAt:  now,
	}
	i.Claims = append(i.Claims, claim)
	i.UpdatedAt = now
	i.Record(ReportedFound{
		Base:     events.NewBase(EventReportedFound, string(i.ID), now),
		ClaimID:  string(claim.ID),
		Reporter: string(claim.User),
	})
	return &i.Claims[len(i.Claims)-1], nil
}

type DecideParams struct {
	ClaimID  ClaimID
	Decision ClaimStatus
	// ByAdmin approvals close the item outright instead of leaving it claimed.
	ByAdmin bool
	Now     time.Time
}

// DecideClaim moves a pending claim to approved or rejected. Decisions are final.
func (i *Item) DecideClaim(params DecideParams) (*Claim, error) {
	if params.Decision != ClaimApproved && params.Decision != ClaimRejected {
		return nil, ErrInvalidDecision
	}
	idx := i.claimIndex(params.ClaimID)
	if idx < 0 {
		return nil, ErrClaimNotFound
	}
	claim := &i.Claims[idx]
	if !claim.IsPending() {
		return nil, ErrClaimDecided
	}
	now := normalizeNow(params.Now)
	if params.Decision == ClaimApproved {
		if i.ClaimedBy != "" {
			return nil, ErrAlreadyClaimed
		}
		if i.Status == StatusResolved {
			return nil, ErrItemClosed
		}
		next := StatusClaimed
		if params.ByAdmin {
			next = StatusResolved
		}
		if err := i.advance(next); err != nil {
			return nil, err
		}
		i.ClaimedBy = claim.User
	}
	claim.Status = params.Decision
	claim.DecidedAt = now
	i.UpdatedAt = now
	i.Record(ClaimDecided{
		Base:     events.NewBase(EventClaimDecided, string(i.ID), now),
		ClaimID:  string(claim.ID),
		Claimant: string(claim.User),
		Decision: string(claim.Status),
		ByAdmin:  params.ByAdmin,
	})
	return claim, nil
}

func (i *Item) Claim(id ClaimID) (*Claim, bool) {
	idx := i.claimIndex(id)
	if idx < 0 {
		return nil, false
	}
	return &i.Claims[idx], true
}

func (i *Item) ClaimBy(claimant user.ID) (*Claim, bool) {
	for idx := range i.Claims {
		if i.Claims[idx].User == claimant {
			return &i.Claims[idx], true
		}
	}
	return nil, false
}

func (i *Item) ApprovedClaim() (*Claim, bool) {
	for idx := range i.Claims {
		if i.Claims[idx].IsApproved() {
			return &i.Claims[idx], true
		}
	}
	return nil, false
}

func (i *Item) checkClaimant(id ClaimID, claimant user.ID) error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrClaimIDRequired
	}
	if strings.TrimSpace(string(claimant)) == "" {
		return ErrClaimantRequired
	}
	if i.IsOwnedBy(claimant) {
		return ErrOwnClaim
	}
	if _, ok := i.ClaimBy(claimant); ok {
		return ErrDuplicateClaim
	}
	return nil
}

func (i *Item) claimIndex(id ClaimID) int {
	for idx := range i.Claims {
		if i.Claims[idx].ID == id {
			return idx
		}
	}
	return -1
}
