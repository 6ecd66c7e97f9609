package items

import "github.com/KhadijaXD/lostly/internal/domain/shared/events"

const (
	EventItemPosted    = "items.posted"
	EventItemResolved  = "items.resolved"
	EventClaimFiled    = "items.claim_filed"
	EventReportedFound = "items.reported_found"
	EventClaimDecided  = "items.claim_decided"
)

type ItemPosted struct {
	events.Base
	Type     string `json:"type"`
	PostedBy string `json:"posted_by"`
}

type ItemResolved struct {
	events.Base
}

type ClaimFiled struct {
	events.Base
	ClaimID  string `json:"claim_id"`
	Claimant string `json:"claimant"`
}

type ReportedFound struct {
	events.Base
	ClaimID  string `json:"claim_id"`
	Reporter string `json:"reporter"`
}

type ClaimDecided struct {
	events.Base
	ClaimID  string `json:"claim_id"`
	Claimant string `json:"claimant"`
	Decision string `json:"decision"`
	ByAdmin  bool   `json:"by_admin"`
}
