// Package export implements the paginated bulk-export pipeline: it walks
// every organization visible to the API key, pages through its agreements,
// enriches each document, and streams flattened rows to a CSV or XLSX sink,
// retrying failed documents once at the end of the run.
package export

// Stage is the normalized lifecycle bucket derived from a raw agreement status.
type Stage string

// Stages in lifecycle order.
const (
	StageTemplate    Stage = "TEMPLATE"
	StageDraft       Stage = "DRAFT"
	StageNegotiation Stage = "NEGOTIATION"
	StageSigning     Stage = "SIGNING"
	StageCanceled    Stage = "CANCELED"
	StageContract    Stage = "CONTRACT"
	StageUnknown     Stage = "UNKNOWN"
)

// Classified is the derived (stage, label, substatus) triple for one raw
// status. Label is the user-facing name of the stage; Substatus is the
// finer-grained qualifier shown next to it, possibly empty.
type Classified struct {
	Stage     Stage
	Label     string
	Substatus string
}

// Classify maps a raw agreement status plus the validation/signature flags
// to its normalized classification. It is a pure, total function:
// unrecognized statuses classify as StageUnknown rather than failing.
func Classify(status string, validationRequired, signatureRequired bool) Classified {
	stage := stageOf(status)
	return Classified{
		Stage:     stage,
		Label:     stageLabel(stage, status),
		Substatus: substatus(stage, status, validationRequired, signatureRequired),
	}
}

func stageOf(status string) Stage {
	switch status {
	case "TEMPLATE", "TEMPLATE_AUTO", "TEMPLATE_SALESFORCE", "TEMPLATE_HUBSPOT":
		return StageTemplate
	case "DRAFT":
		return StageDraft
	case "VALIDATION", "NEGO_INVITE", "NEGOTIATION":
		return StageNegotiation
	case "SIGNING":
		return StageSigning
	case "BROKEN", "TRASHED":
		return StageCanceled
	case "UNKNOWN_CONTRACT", "FUTURE_CONTRACT", "CURRENT_CONTRACT",
		"COMPLETED_CONTRACT", "COMPLETED_CANCEL_CONTRACT", "COMPLETED_CONTRACT_RENEWABLE":
		return StageContract
	default:
		return StageUnknown
	}
}

// stageLabel translates a stage to its user-facing name. BROKEN agreements
// surface under REVIEW rather than CANCELED.
func stageLabel(stage Stage, status string) string {
	switch stage {
	case StageCanceled:
		if status == "BROKEN" {
			return "REVIEW"
		}
		return "CANCELED"
	case StageNegotiation:
		return "REVIEW"
	case StageContract:
		return "SIGNED"
	default:
		return string(stage)
	}
}

// substatus resolves the finer-grained qualifier. Rules are evaluated in
// precedence order; the first match wins and the default is empty.
func substatus(stage Stage, status string, validationRequired, signatureRequired bool) string {
	switch status {
	case "TEMPLATE_AUTO", "TEMPLATE_SALESFORCE", "TEMPLATE_HUBSPOT":
		return "Automated"
	}

	if stage == StageNegotiation && validationRequired {
		return "Approval"
	}

	if stage == StageSigning && signatureRequired {
		return "Signature"
	}

	if stage == StageCanceled && status == "BROKEN" {
		return "Canceled"
	}

	if stage == StageContract {
		switch status {
		case "CURRENT_CONTRACT":
			return "Active"
		case "FUTURE_CONTRACT":
			return "Future"
		case "COMPLETED_CONTRACT":
			return "Expired"
		case "COMPLETED_CONTRACT_RENEWABLE":
			return "Renewed?"
		case "COMPLETED_CANCEL_CONTRACT":
			return "Canceled"
		}
	}

	return ""
}
