package export

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/concordnow/concord-export/pkg/concord"
)

// DefaultMaxPages bounds a single organization's page loop. The upstream
// total should converge well before this; hitting the cap means the server
// is reporting inconsistent totals.
const DefaultMaxPages = 1000

// Paginator accumulates every agreement of an organization by walking the
// listing endpoint page by page.
type Paginator struct {
	Client      concord.Client
	Statuses    []string
	AccessTypes []string
	PageSize    int
	MaxPages    int
}

// FetchAll returns all agreements for orgID in page order. The first page is
// always requested, even when the organization reports zero agreements. The
// reported total must stay stable across pages; a moving total aborts the
// loop with an error rather than risking an unbounded walk. Any page failure
// discards the pages already accumulated for this organization.
func (p *Paginator) FetchAll(ctx context.Context, orgID string) ([]concord.Agreement, error) {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var items []concord.Agreement
	total := 0

	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, eris.Errorf("export: org %s: page cap %d reached with %d/%d agreements fetched",
				orgID, maxPages, len(items), total)
		}

		zap.L().Debug("fetching agreements page",
			zap.String("org", orgID),
			zap.Int("page", page),
		)

		resp, err := p.Client.AgreementsPage(ctx, orgID, concord.PageRequest{
			Statuses:    p.Statuses,
			AccessTypes: p.AccessTypes,
			Page:        page,
			PageSize:    p.PageSize,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "export: get agreements for org %s (page %d)", orgID, page)
		}

		if page > 0 && resp.Total != total {
			return nil, eris.Errorf("export: org %s: total changed mid-pagination (%d -> %d)",
				orgID, total, resp.Total)
		}
		total = resp.Total
		items = append(items, resp.Items...)

		if len(items) >= total {
			return items, nil
		}

		// A short page with items still outstanding will never converge.
		if len(resp.Items) == 0 {
			return nil, eris.Errorf("export: org %s: empty page %d with %d/%d agreements fetched",
				orgID, page, len(items), total)
		}
	}
}
