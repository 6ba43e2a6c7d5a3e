package export

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/concordnow/concord-export/pkg/concord"
)

// DefaultAppBaseURL is the web application host used to build document links.
const DefaultAppBaseURL = "https://secure.concordnow.com"

// Row is one ordered CSV/XLSX record.
type Row []string

// Enricher turns one listed agreement into an output row, fetching whatever
// per-document detail its flavor needs. A failed enrichment affects only
// that document: the driver defers it to the retry queue.
type Enricher interface {
	Enrich(ctx context.Context, org concord.Organization, doc concord.Agreement) (Row, error)
}

// DocumentURL builds the web link for an agreement.
func DocumentURL(appBase, orgID, agreementID string) string {
	return fmt.Sprintf("%s/#/organizations/%s/agreements/%s", appBase, orgID, agreementID)
}

// SigningStatuses is the listing filter for the signing export.
func SigningStatuses() []string {
	return []string{"SIGNING"}
}

// ListStatuses is the full listing filter for the agreements-list export.
func ListStatuses() []string {
	return []string{
		"DRAFT",
		"BROKEN",
		"VALIDATION",
		"NEGOTIATION",
		"SIGNING",
		"TEMPLATE",
		"TEMPLATE_AUTO",
		"TEMPLATE_SALESFORCE",
		"TEMPLATE_HUBSPOT",
		"UNKNOWN_CONTRACT",
		"FUTURE_CONTRACT",
		"CURRENT_CONTRACT",
		"COMPLETED_CONTRACT",
		"COMPLETED_CANCEL_CONTRACT",
		"COMPLETED_CONTRACT_RENEWABLE",
	}
}

// SigningColumns is the header of the signing export.
func SigningColumns() []string {
	return []string{
		"Organization ID",
		"Organization Name",
		"Document ID",
		"Document URL",
		"Title",
		"Number of needed signatures",
		"People who need to sign",
		"People who signed",
	}
}

// ListColumns is the header of the agreements-list export.
func ListColumns() []string {
	return []string{
		"Organization ID",
		"Organization Name",
		"Title",
		"Document URL",
		"Document ID",
		"Status",
		"Substatus",
	}
}

// SigningEnricher builds signing-export rows. Each document costs one extra
// API call for its signature slots.
type SigningEnricher struct {
	Client     concord.Client
	AppBaseURL string
}

// Enrich partitions the document's signature slots into pending and
// fulfilled, resolving a signer descriptor for every pending slot. A slot
// with an unrecognized reservation fails the whole document.
func (e *SigningEnricher) Enrich(ctx context.Context, org concord.Organization, doc concord.Agreement) (Row, error) {
	slots, err := e.Client.SignatureSlots(ctx, org.ID, doc.UUID)
	if err != nil {
		return nil, eris.Wrapf(err, "export: get signature slots for agreement %s", doc.UUID)
	}

	var needToSign, whoSigned []string
	for _, slot := range slots {
		if slot.Pending() {
			who, err := slot.Reservation.SignerDescriptor()
			if err != nil {
				return nil, eris.Wrapf(err, "export: resolve reservation for agreement %s", doc.UUID)
			}
			needToSign = append(needToSign, who)
			continue
		}
		whoSigned = append(whoSigned, slot.Signature.Info.Email)
	}

	remaining := doc.SignatureRequired - doc.SignatureCount

	return Row{
		org.ID,
		org.Name,
		doc.UUID,
		DocumentURL(e.appBase(), org.ID, doc.UUID),
		doc.Title,
		strconv.Itoa(remaining),
		strings.Join(needToSign, ","),
		strings.Join(whoSigned, ","),
	}, nil
}

func (e *SigningEnricher) appBase() string {
	if e.AppBaseURL != "" {
		return e.AppBaseURL
	}
	return DefaultAppBaseURL
}

// ListEnricher builds agreements-list rows from the listing payload alone;
// it never issues additional API calls.
type ListEnricher struct {
	AppBaseURL string
}

func (e *ListEnricher) Enrich(_ context.Context, org concord.Organization, doc concord.Agreement) (Row, error) {
	c := Classify(doc.Status, doc.ValidationRequired, doc.SignatureRequired > 0)

	appBase := e.AppBaseURL
	if appBase == "" {
		appBase = DefaultAppBaseURL
	}

	return Row{
		org.ID,
		org.Name,
		doc.Title,
		DocumentURL(appBase, org.ID, doc.UUID),
		doc.UUID,
		c.Label,
		c.Substatus,
	}, nil
}
