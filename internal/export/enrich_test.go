package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordnow/concord-export/pkg/concord"
)

func TestDocumentURL(t *testing.T) {
	t.Parallel()

	got := DocumentURL("https://secure.concordnow.com", "org1", "a1")
	assert.Equal(t, "https://secure.concordnow.com/#/organizations/org1/agreements/a1", got)
}

func TestSigningEnricher_Enrich(t *testing.T) {
	t.Parallel()

	client := &mockClient{
		SignatureSlotsFunc: func(_ context.Context, orgID, agreementID string) ([]concord.Slot, error) {
			assert.Equal(t, "org1", orgID)
			assert.Equal(t, "a1", agreementID)
			return []concord.Slot{
				{Reservation: concord.Reservation{Type: concord.ReservationUser, User: &concord.ReservedUser{Email: "alice@acme.com"}}},
				{Reservation: concord.Reservation{Type: concord.ReservationOrganization, Organization: &concord.ReservedCompany{Name: "Globex"}}},
				{Signature: &concord.Signature{Info: concord.SignerInfo{Email: "bob@acme.com"}}},
			}, nil
		},
	}

	e := &SigningEnricher{Client: client}
	row, err := e.Enrich(context.Background(),
		concord.Organization{ID: "org1", Name: "Acme"},
		concord.Agreement{UUID: "a1", Title: "NDA", Status: "SIGNING", SignatureRequired: 3, SignatureCount: 1},
	)

	require.NoError(t, err)
	assert.Equal(t, Row{
		"org1",
		"Acme",
		"a1",
		"https://secure.concordnow.com/#/organizations/org1/agreements/a1",
		"NDA",
		"2",
		"alice@acme.com,Someone from the company: Globex",
		"bob@acme.com",
	}, row)
}

func TestSigningEnricher_NoSlots(t *testing.T) {
	t.Parallel()

	client := &mockClient{
		SignatureSlotsFunc: func(_ context.Context, _, _ string) ([]concord.Slot, error) {
			return nil, nil
		},
	}

	e := &SigningEnricher{Client: client}
	row, err := e.Enrich(context.Background(),
		concord.Organization{ID: "org1", Name: "Acme"},
		concord.Agreement{UUID: "a1", Title: "NDA"},
	)

	require.NoError(t, err)
	assert.Equal(t, "", row[6])
	assert.Equal(t, "", row[7])
}

func TestSigningEnricher_SlotsError(t *testing.T) {
	t.Parallel()

	client := &mockClient{
		SignatureSlotsFunc: func(_ context.Context, _, _ string) ([]concord.Slot, error) {
			return nil, errors.New("boom")
		},
	}

	e := &SigningEnricher{Client: client}
	_, err := e.Enrich(context.Background(),
		concord.Organization{ID: "org1"},
		concord.Agreement{UUID: "a1"},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature slots for agreement a1")
}

func TestSigningEnricher_UnsupportedReservationFailsDocument(t *testing.T) {
	t.Parallel()

	client := &mockClient{
		SignatureSlotsFunc: func(_ context.Context, _, _ string) ([]concord.Slot, error) {
			return []concord.Slot{
				{Reservation: concord.Reservation{Type: "ROBOT"}},
			}, nil
		},
	}

	e := &SigningEnricher{Client: client}
	_, err := e.Enrich(context.Background(),
		concord.Organization{ID: "org1"},
		concord.Agreement{UUID: "a1"},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported reservation type: ROBOT")
}

func TestSigningEnricher_CustomAppBase(t *testing.T) {
	t.Parallel()

	client := &mockClient{
		SignatureSlotsFunc: func(_ context.Context, _, _ string) ([]concord.Slot, error) {
			return nil, nil
		},
	}

	e := &SigningEnricher{Client: client, AppBaseURL: "https://eu.concordnow.com"}
	row, err := e.Enrich(context.Background(),
		concord.Organization{ID: "org1"},
		concord.Agreement{UUID: "a1"},
	)

	require.NoError(t, err)
	assert.Equal(t, "https://eu.concordnow.com/#/organizations/org1/agreements/a1", row[3])
}

func TestListEnricher_Enrich(t *testing.T) {
	t.Parallel()

	e := &ListEnricher{}
	row, err := e.Enrich(context.Background(),
		concord.Organization{ID: "org1", Name: "Acme"},
		concord.Agreement{UUID: "a1", Title: "MSA", Status: "SIGNING", SignatureRequired: 2, ValidationRequired: false},
	)

	require.NoError(t, err)
	assert.Equal(t, Row{
		"org1",
		"Acme",
		"MSA",
		"https://secure.concordnow.com/#/organizations/org1/agreements/a1",
		"a1",
		"SIGNING",
		"Signature",
	}, row)
}

func TestListEnricher_ContractSubstatus(t *testing.T) {
	t.Parallel()

	e := &ListEnricher{}
	row, err := e.Enrich(context.Background(),
		concord.Organization{ID: "org1", Name: "Acme"},
		concord.Agreement{UUID: "a2", Title: "Lease", Status: "CURRENT_CONTRACT"},
	)

	require.NoError(t, err)
	assert.Equal(t, "SIGNED", row[5])
	assert.Equal(t, "Active", row[6])
}

func TestColumns_MatchRowWidth(t *testing.T) {
	t.Parallel()

	assert.Len(t, SigningColumns(), 8)
	assert.Len(t, ListColumns(), 7)
}

func TestStatusFilters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"SIGNING"}, SigningStatuses())
	assert.Len(t, ListStatuses(), 15)
	assert.Contains(t, ListStatuses(), "COMPLETED_CONTRACT_RENEWABLE")
}
