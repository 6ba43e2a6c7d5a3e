package export

import (
	"context"

	"github.com/concordnow/concord-export/pkg/concord"
)

// mockClient implements concord.Client with overridable function fields.
// Unset methods panic so a test exercising an unexpected call fails loudly.
type mockClient struct {
	MeFunc             func(ctx context.Context) (*concord.User, error)
	OrganizationsFunc  func(ctx context.Context) ([]concord.Organization, error)
	AgreementsPageFunc func(ctx context.Context, orgID string, req concord.PageRequest) (*concord.AgreementsPage, error)
	SignatureSlotsFunc func(ctx context.Context, orgID, agreementID string) ([]concord.Slot, error)
	ActivitiesFunc     func(ctx context.Context, orgID, agreementID string) ([]concord.Activity, error)
	AgreementFunc      func(ctx context.Context, orgID, uid string) (*concord.AgreementDetail, error)
	CreateDraftFunc    func(ctx context.Context, orgID string, req concord.DraftRequest) (*concord.DraftResponse, error)
	SetApprovalFunc    func(ctx context.Context, orgID, uid string, cfg concord.ApprovalConfig) error
	ApprovalConfigFunc func(ctx context.Context, orgID, uid string) (*concord.ApprovalConfig, error)
	TransitionRuleFunc func(ctx context.Context, orgID, uid, ruleID, action string) error
}

func (m *mockClient) Me(ctx context.Context) (*concord.User, error) {
	return m.MeFunc(ctx)
}

func (m *mockClient) Organizations(ctx context.Context) ([]concord.Organization, error) {
	return m.OrganizationsFunc(ctx)
}

func (m *mockClient) AgreementsPage(ctx context.Context, orgID string, req concord.PageRequest) (*concord.AgreementsPage, error) {
	return m.AgreementsPageFunc(ctx, orgID, req)
}

func (m *mockClient) SignatureSlots(ctx context.Context, orgID, agreementID string) ([]concord.Slot, error) {
	return m.SignatureSlotsFunc(ctx, orgID, agreementID)
}

func (m *mockClient) Activities(ctx context.Context, orgID, agreementID string) ([]concord.Activity, error) {
	return m.ActivitiesFunc(ctx, orgID, agreementID)
}

func (m *mockClient) Agreement(ctx context.Context, orgID, uid string) (*concord.AgreementDetail, error) {
	return m.AgreementFunc(ctx, orgID, uid)
}

func (m *mockClient) CreateDraft(ctx context.Context, orgID string, req concord.DraftRequest) (*concord.DraftResponse, error) {
	return m.CreateDraftFunc(ctx, orgID, req)
}

func (m *mockClient) SetApproval(ctx context.Context, orgID, uid string, cfg concord.ApprovalConfig) error {
	return m.SetApprovalFunc(ctx, orgID, uid, cfg)
}

func (m *mockClient) ApprovalConfig(ctx context.Context, orgID, uid string) (*concord.ApprovalConfig, error) {
	return m.ApprovalConfigFunc(ctx, orgID, uid)
}

func (m *mockClient) TransitionRule(ctx context.Context, orgID, uid, ruleID, action string) error {
	return m.TransitionRuleFunc(ctx, orgID, uid, ruleID, action)
}

// memorySink collects rows in memory for assertions.
type memorySink struct {
	header []string
	rows   []Row
	closed bool
}

func (s *memorySink) WriteHeader(columns []string) error {
	s.header = columns
	return nil
}

func (s *memorySink) WriteRow(row Row) error {
	s.rows = append(s.rows, row)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}
