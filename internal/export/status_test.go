package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status             string
		validationRequired bool
		signatureRequired  bool
		want               Classified
	}{
		{"TEMPLATE", false, false, Classified{StageTemplate, "TEMPLATE", ""}},
		{"TEMPLATE_AUTO", false, false, Classified{StageTemplate, "TEMPLATE", "Automated"}},
		{"TEMPLATE_SALESFORCE", false, false, Classified{StageTemplate, "TEMPLATE", "Automated"}},
		{"TEMPLATE_HUBSPOT", false, false, Classified{StageTemplate, "TEMPLATE", "Automated"}},

		{"DRAFT", false, false, Classified{StageDraft, "DRAFT", ""}},

		{"VALIDATION", false, false, Classified{StageNegotiation, "REVIEW", ""}},
		{"VALIDATION", true, false, Classified{StageNegotiation, "REVIEW", "Approval"}},
		{"NEGO_INVITE", false, false, Classified{StageNegotiation, "REVIEW", ""}},
		{"NEGOTIATION", true, true, Classified{StageNegotiation, "REVIEW", "Approval"}},

		{"SIGNING", false, false, Classified{StageSigning, "SIGNING", ""}},
		{"SIGNING", false, true, Classified{StageSigning, "SIGNING", "Signature"}},

		{"BROKEN", false, false, Classified{StageCanceled, "REVIEW", "Canceled"}},
		{"TRASHED", false, false, Classified{StageCanceled, "CANCELED", ""}},

		{"UNKNOWN_CONTRACT", false, false, Classified{StageContract, "SIGNED", ""}},
		{"FUTURE_CONTRACT", false, false, Classified{StageContract, "SIGNED", "Future"}},
		{"CURRENT_CONTRACT", false, false, Classified{StageContract, "SIGNED", "Active"}},
		{"COMPLETED_CONTRACT", false, false, Classified{StageContract, "SIGNED", "Expired"}},
		{"COMPLETED_CONTRACT_RENEWABLE", false, false, Classified{StageContract, "SIGNED", "Renewed?"}},
		{"COMPLETED_CANCEL_CONTRACT", false, false, Classified{StageContract, "SIGNED", "Canceled"}},

		{"SOMETHING_NEW", false, false, Classified{StageUnknown, "UNKNOWN", ""}},
		{"", true, true, Classified{StageUnknown, "UNKNOWN", ""}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.status, tt.validationRequired, tt.signatureRequired)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_AutomatedTemplateWinsOverFlags(t *testing.T) {
	t.Parallel()

	// The Automated substatus takes precedence regardless of flags.
	got := Classify("TEMPLATE_AUTO", true, true)
	assert.Equal(t, "Automated", got.Substatus)
}
