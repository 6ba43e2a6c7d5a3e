// Package timeline builds the signed-agreements execution-time export: for
// each signed agreement it reads the audit trail and extracts creation,
// approval, and signature milestones into a flat row.
package timeline

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/concordnow/concord-export/internal/export"
	"github.com/concordnow/concord-export/pkg/concord"
)

// Audit trail activity names carrying the milestones we extract.
const (
	activityApproval          = "VALIDATION_ACCEPT"
	activitySignature         = "NEGOTIATION_APPROVE"
	activitySignatureFinalize = "AGREEMENT_SIGNATURE_FINALIZE"
)

// maxParticipants caps how many approvers/signers get their own columns.
const maxParticipants = 5

// PageSize is the listing page size for the timeline export. Smaller than
// the bulk exports because every document costs an activities fetch anyway.
const PageSize = 500

// SignedStatuses is the listing filter covering every signed-stage status.
func SignedStatuses() []string {
	return []string{
		"UNKNOWN_CONTRACT",
		"FUTURE_CONTRACT",
		"CURRENT_CONTRACT",
		"COMPLETED_CONTRACT",
		"COMPLETED_CANCEL_CONTRACT",
		"COMPLETED_CONTRACT_RENEWABLE",
	}
}

// AccessTypes widens the listing to every access path so the export is
// complete, not just directly shared agreements.
func AccessTypes() []string {
	return []string{"DIRECT", "TAG", "FOLDER", "ORGANIZATION"}
}

// Columns is the header of the timeline export.
func Columns() []string {
	cols := []string{
		"Agreement ID",
		"Agreement Title",
		"Agreement Link",
		"Creation Date",
		"Created By",
	}
	for i := 1; i <= maxParticipants; i++ {
		cols = append(cols, "Approver "+strconv.Itoa(i), "Approval Date "+strconv.Itoa(i))
	}
	for i := 1; i <= maxParticipants; i++ {
		cols = append(cols, "Signer "+strconv.Itoa(i), "Signature Date "+strconv.Itoa(i))
	}
	cols = append(cols,
		"First Approval Date",
		"Last Approval Date",
		"First Signature Date",
		"Last Signature Date",
		"Total Approvals",
		"Total Signatures",
	)
	return cols
}

// Enricher builds timeline rows from the agreement's audit trail.
type Enricher struct {
	Client     concord.Client
	AppBaseURL string
}

// Enrich fetches the audit trail and flattens the milestones. The creation
// date comes from the earliest activity, not the listing payload, because
// the listing's creation date is not always accurate.
func (e *Enricher) Enrich(ctx context.Context, org concord.Organization, doc concord.Agreement) (export.Row, error) {
	activities, err := e.Client.Activities(ctx, org.ID, doc.UUID)
	if err != nil {
		return nil, eris.Wrapf(err, "timeline: get activities for agreement %s", doc.UUID)
	}

	created, createdBy := creation(activities)
	approvals := milestones(activities, activityApproval)
	signatures := milestones(activities, activitySignature, activitySignatureFinalize)

	if len(approvals) > maxParticipants {
		zap.L().Warn("agreement has more approvals than columns",
			zap.String("agreement", doc.UUID),
			zap.Int("approvals", len(approvals)),
		)
	}
	if len(signatures) > maxParticipants {
		zap.L().Warn("agreement has more signatures than columns",
			zap.String("agreement", doc.UUID),
			zap.Int("signatures", len(signatures)),
		)
	}

	appBase := e.AppBaseURL
	if appBase == "" {
		appBase = export.DefaultAppBaseURL
	}

	row := export.Row{
		doc.UUID,
		doc.Title,
		export.DocumentURL(appBase, org.ID, doc.UUID),
		created,
		createdBy,
	}
	row = append(row, participantColumns(approvals)...)
	row = append(row, participantColumns(signatures)...)
	row = append(row,
		firstDate(approvals),
		lastDate(approvals),
		firstDate(signatures),
		lastDate(signatures),
		strconv.Itoa(len(approvals)),
		strconv.Itoa(len(signatures)),
	)
	return row, nil
}

// milestone is one dated participant extracted from the audit trail.
type milestone struct {
	email string
	date  string
}

// creation returns the date and actor email of the earliest activity.
func creation(activities []concord.Activity) (string, string) {
	if len(activities) == 0 {
		return "", ""
	}
	earliest := activities[0]
	for _, a := range activities[1:] {
		if a.CreatedAt < earliest.CreatedAt {
			earliest = a
		}
	}
	return formatMillis(earliest.CreatedAt), earliest.ActorEmail()
}

// milestones extracts the dated participants for the named activities,
// sorted earliest first.
func milestones(activities []concord.Activity, names ...string) []milestone {
	var matched []concord.Activity
	for _, a := range activities {
		for _, n := range names {
			if a.Name == n {
				matched = append(matched, a)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt < matched[j].CreatedAt
	})

	out := make([]milestone, 0, len(matched))
	for _, a := range matched {
		out = append(out, milestone{email: a.ActorEmail(), date: formatMillis(a.CreatedAt)})
	}
	return out
}

// participantColumns renders up to maxParticipants (email, date) pairs,
// padding the remainder with empty cells.
func participantColumns(ms []milestone) []string {
	cols := make([]string, 0, 2*maxParticipants)
	for i := 0; i < maxParticipants; i++ {
		if i < len(ms) {
			cols = append(cols, ms[i].email, ms[i].date)
		} else {
			cols = append(cols, "", "")
		}
	}
	return cols
}

func firstDate(ms []milestone) string {
	if len(ms) == 0 {
		return ""
	}
	return ms[0].date
}

func lastDate(ms []milestone) string {
	if len(ms) == 0 {
		return ""
	}
	return ms[len(ms)-1].date
}

// formatMillis converts a unix-millisecond timestamp to a UTC datetime
// string. Zero or negative timestamps render as empty.
func formatMillis(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
