// Package approval runs the scripted draft-approval walkthrough: create a
// draft, attach an approval configuration, request approval, and accept it.
package approval

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/concordnow/concord-export/pkg/concord"
)

// RulesFile is the YAML shape of a custom approval configuration.
type RulesFile struct {
	AutoNotificationEnabled  bool       `yaml:"auto_notification_enabled"`
	BlockThirdPartySignature bool       `yaml:"block_third_party_signature"`
	Rules                    []RuleSpec `yaml:"rules"`
}

// RuleSpec is one approval rule in the YAML file.
type RuleSpec struct {
	// Type is the rule kind, e.g. "ONE" (a single approval satisfies the rule).
	Type                     string  `yaml:"type"`
	BlockThirdPartySignature bool    `yaml:"block_third_party_signature"`
	ApproverIDs              []int64 `yaml:"approver_ids"`
}

// LoadRules reads an approval configuration from a YAML file.
func LoadRules(path string) (*concord.ApprovalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "approval: read rules %s", path)
	}

	var rf RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, eris.Wrapf(err, "approval: parse rules %s", path)
	}
	if len(rf.Rules) == 0 {
		return nil, eris.Errorf("approval: rules file %s defines no rules", path)
	}

	cfg := concord.ApprovalConfig{
		AutoNotificationEnabled:  rf.AutoNotificationEnabled,
		BlockThirdPartySignature: rf.BlockThirdPartySignature,
	}
	for _, rr := range rf.Rules {
		if rr.Type == "" {
			return nil, eris.Errorf("approval: rules file %s has a rule without a type", path)
		}
		rule := concord.ApprovalRule{
			Type:                     rr.Type,
			BlockThirdPartySignature: rr.BlockThirdPartySignature,
		}
		for _, id := range rr.ApproverIDs {
			rule.Validations = append(rule.Validations, concord.Validation{
				Type: "USER",
				User: &concord.ValidationRef{ID: id},
			})
		}
		if len(rule.Validations) == 0 {
			return nil, eris.Errorf("approval: rules file %s has a rule without approvers", path)
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	return &cfg, nil
}

// DefaultRules configures a single ONE rule with userID as the only approver,
// notifications enabled and third-party signing blocked until approval.
func DefaultRules(userID int64) concord.ApprovalConfig {
	return concord.ApprovalConfig{
		AutoNotificationEnabled:  true,
		BlockThirdPartySignature: true,
		Rules: []concord.ApprovalRule{
			{
				Type:                     "ONE",
				BlockThirdPartySignature: true,
				Validations: []concord.Validation{
					{Type: "USER", User: &concord.ValidationRef{ID: userID}},
				},
			},
		},
	}
}

// Workflow drives one draft through the approval cycle.
type Workflow struct {
	Client      concord.Client
	OrgID       string
	Title       string
	Description string

	// RulesPath optionally loads the approval configuration from YAML;
	// when empty the current user becomes the sole approver.
	RulesPath string
}

// Result captures the observable outcome of the walkthrough.
type Result struct {
	AgreementUID    string
	StatusAfterAsk  string
	FinalRuleStatus string
}

// Run executes the workflow: draft → approval config → ASK (moves the
// agreement from DRAFT to VALIDATION) → ACCEPT.
func (w *Workflow) Run(ctx context.Context) (*Result, error) {
	user, err := w.Client.Me(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "approval: get current user")
	}

	title := w.Title
	if title == "" {
		title = "Draft Agreement"
	}
	draft, err := w.Client.CreateDraft(ctx, w.OrgID, concord.DraftRequest{
		Title:       title,
		Description: w.Description,
		Status:      "DRAFT",
	})
	if err != nil {
		return nil, eris.Wrap(err, "approval: create draft")
	}
	zap.L().Info("draft created", zap.String("agreement", draft.UID))

	var cfg concord.ApprovalConfig
	if w.RulesPath != "" {
		loaded, err := LoadRules(w.RulesPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	} else {
		cfg = DefaultRules(user.ID)
	}

	if err := w.Client.SetApproval(ctx, w.OrgID, draft.UID, cfg); err != nil {
		return nil, eris.Wrapf(err, "approval: configure approval for %s", draft.UID)
	}

	// Read the configuration back; rule ids are server-assigned.
	applied, err := w.Client.ApprovalConfig(ctx, w.OrgID, draft.UID)
	if err != nil {
		return nil, eris.Wrapf(err, "approval: read approval config for %s", draft.UID)
	}
	if len(applied.Rules) == 0 || applied.Rules[0].ID == "" {
		return nil, eris.Errorf("approval: no rules assigned on agreement %s", draft.UID)
	}
	ruleID := applied.Rules[0].ID

	if err := w.Client.TransitionRule(ctx, w.OrgID, draft.UID, ruleID, concord.RuleActionAsk); err != nil {
		return nil, eris.Wrapf(err, "approval: request approval for %s", draft.UID)
	}

	detail, err := w.Client.Agreement(ctx, w.OrgID, draft.UID)
	if err != nil {
		return nil, eris.Wrapf(err, "approval: read agreement %s", draft.UID)
	}
	zap.L().Info("approval requested",
		zap.String("agreement", draft.UID),
		zap.String("status", detail.Metadata.Status),
	)

	if err := w.Client.TransitionRule(ctx, w.OrgID, draft.UID, ruleID, concord.RuleActionAccept); err != nil {
		return nil, eris.Wrapf(err, "approval: accept approval for %s", draft.UID)
	}

	final, err := w.Client.ApprovalConfig(ctx, w.OrgID, draft.UID)
	if err != nil {
		return nil, eris.Wrapf(err, "approval: read final approval config for %s", draft.UID)
	}

	res := &Result{
		AgreementUID:   draft.UID,
		StatusAfterAsk: detail.Metadata.Status,
	}
	if len(final.Rules) > 0 {
		res.FinalRuleStatus = final.Rules[0].Status
	}
	return res, nil
}
