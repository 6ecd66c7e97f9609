package items

import (
	"errors"
	"testing"
	"time"
)

func newLostItem(t *testing.T) *Item {
	t.Helper()
	item, err := NewItem(CreateParams{
		ID:          "item-1",
		Type:        TypeLost,
		Name:        "Blue backpack",
		Category:    CategoryAccessories,
		Description: "Laptop compartment, torn strap",
		Location:    "Library 2nd floor",
		Date:        time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		PostedBy:    "owner",
	})
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	return item
}

func TestNewItemValidation(t *testing.T) {
	base := CreateParams{
		ID:          "item",
		Type:        TypeFound,
		Name:        "Keys",
		Category:    CategoryOther,
		Description: "Three keys",
		Location:    "Gym",
		Date:        time.Now(),
		PostedBy:    "u",
	}
	cases := []struct {
		name   string
		mutate func(p *CreateParams)
		want   error
	}{
		{"bad type", func(p *CreateParams) { p.Type = "stolen" }, ErrInvalidType},
		{"bad category", func(p *CreateParams) { p.Category = "pets" }, ErrInvalidCategory},
		{"no name", func(p *CreateParams) { p.Name = " " }, ErrNameRequired},
		{"no owner", func(p *CreateParams) { p.PostedBy = "" }, ErrOwnerRequired},
		{"no date", func(p *CreateParams) { p.Date = time.Time{} }, ErrDateRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := base
			tc.mutate(&params)
			if _, err := NewItem(params); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFileClaimRules(t *testing.T) {
	item := newLostItem(t)

	if _, err := item.FileClaim(FileClaimParams{ID: "c0", Claimant: "owner"}); !errors.Is(err, ErrOwnClaim) {
		t.Fatalf("expected ErrOwnClaim, got %v", err)
	}
	claim, err := item.FileClaim(FileClaimParams{ID: "c1", Claimant: "alice", Message: " mine "})
	if err != nil {
		t.Fatalf("FileClaim: %v", err)
	}
	if claim.Status != ClaimPending || claim.Message != "mine" {
		t.Fatalf("unexpected claim %+v", claim)
	}
	if item.ClaimedBy != "" {
		t.Fatalf("expected claimedBy unset after filing, got %q", item.ClaimedBy)
	}
	if _, err := item.FileClaim(FileClaimParams{ID: "c2", Claimant: "alice"}); !errors.Is(err, ErrDuplicateClaim) {
		t.Fatalf("expected ErrDuplicateClaim, got %v", err)
	}
}

func TestApproveSetsClaimedBy(t *testing.T) {
	item := newLostItem(t)
	if _, err := item.FileClaim(FileClaimParams{ID: "c1", Claimant: "alice"}); err != nil {
		t.Fatalf("FileClaim: %v", err)
	}
	if _, err := item.FileClaim(FileClaimParams{ID: "c2", Claimant: "bob"}); err != nil {
		t.Fatalf("FileClaim: %v", err)
	}

	claim, err := item.DecideClaim(DecideParams{ClaimID: "c1", Decision: ClaimApproved})
	if err != nil {
		t.Fatalf("DecideClaim: %v", err)
	}
	if !claim.IsApproved() {
		t.Fatalf("expected approved claim, got %s", claim.Status)
	}
	if item.ClaimedBy != "alice" || item.Status != StatusClaimed {
		t.Fatalf("expected claimed by alice, got %q/%s", item.ClaimedBy, item.Status)
	}

	if _, err := item.DecideClaim(DecideParams{ClaimID: "c2", Decision: ClaimApproved}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if _, err := item.DecideClaim(DecideParams{ClaimID: "c1", Decision: ClaimRejected}); !errors.Is(err, ErrClaimDecided) {
		t.Fatalf("expected ErrClaimDecided, got %v", err)
	}
	if _, err := item.DecideClaim(DecideParams{ClaimID: "c2", Decision: ClaimRejected}); err != nil {
		t.Fatalf("reject second claim: %v", err)
	}
}

func TestAdminApprovalResolves(t *testing.T) {
	item := newLostItem(t)
	if _, err := item.FileClaim(FileClaimParams{ID: "c1", Claimant: "alice"}); err != nil {
		t.Fatalf("FileClaim: %v", err)
	}
	if _, err := item.DecideClaim(DecideParams{ClaimID: "c1", Decision: ClaimApproved, ByAdmin: true}); err != nil {
		t.Fatalf("DecideClaim: %v", err)
	}
	if item.Status != StatusResolved {
		t.Fatalf("expected resolved, got %s", item.Status)
	}
}

func TestReportFoundThenApprove(t *testing.T) {
	item := newLostItem(t)
	claim, err := item.ReportFound(ReportFoundParams{
		ID:       "f1",
		Reporter: "finder",
		Info:     FinderInfo{LocationFound: "Cafeteria"},
	})
	if err != nil {
		t.Fatalf("ReportFound: %v", err)
	}
	if item.Status != StatusFound || claim.FinderInfo == nil {
		t.Fatalf("expected found item with finder info, got %s", item.Status)
	}
	if _, err := item.ReportFound(ReportFoundParams{ID: "f2", Reporter: "other"}); !errors.Is(err, ErrNotReportable) {
		t.Fatalf("expected ErrNotReportable, got %v", err)
	}
	if _, err := item.DecideClaim(DecideParams{ClaimID: "f1", Decision: ClaimApproved}); err != nil {
		t.Fatalf("DecideClaim: %v", err)
	}
	if item.Status != StatusClaimed || item.ClaimedBy != "finder" {
		t.Fatalf("expected claimed by finder, got %s/%q", item.Status, item.ClaimedBy)
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	item := newLostItem(t)
	if err := item.MarkResolved(time.Time{}); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}
	if err := item.advance(StatusActive); !errors.Is(err, ErrStatusRegression) {
		t.Fatalf("expected ErrStatusRegression, got %v", err)
	}
	if _, err := item.FileClaim(FileClaimParams{ID: "c", Claimant: "alice"}); !errors.Is(err, ErrItemClosed) {
		t.Fatalf("expected ErrItemClosed, got %v", err)
	}
}
