package concord

import "github.com/rotisserie/eris"

// Organization is one entry from GET /user/me/organizations.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is the authenticated user from GET /user/me.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Agreement is one item from the paginated agreements listing. The listing
// payload carries everything the status export needs; the signing export
// additionally fetches signature slots per agreement.
type Agreement struct {
	UUID               string `json:"uuid"`
	Title              string `json:"title"`
	Status             string `json:"status"`
	SignatureRequired  int    `json:"signatureRequired"`
	SignatureCount     int    `json:"signatureCount"`
	ValidationRequired bool   `json:"validationRequired"`
}

// AgreementsPage is the response of one page of the agreements listing.
type AgreementsPage struct {
	Items []Agreement `json:"items"`
	Total int         `json:"total"`
}

// Slot is a signature slot on an agreement. A slot is pending while
// Signature is nil and fulfilled once it is set.
type Slot struct {
	Signature   *Signature  `json:"signature,omitempty"`
	Reservation Reservation `json:"reservation"`
}

// Pending reports whether the slot still awaits a signature.
func (s Slot) Pending() bool {
	return s.Signature == nil
}

// Signature carries the signer of a fulfilled slot.
type Signature struct {
	Info SignerInfo `json:"info"`
}

// SignerInfo identifies who signed.
type SignerInfo struct {
	Email string `json:"email"`
}

// Reservation type tags as returned by the signature endpoint.
const (
	ReservationUser            = "USER"
	ReservationOrganization    = "ORGANIZATION"
	ReservationNotOrganization = "NOT_ORGANIZATION"
	ReservationEmail           = "EMAIL"
)

// Reservation is the identity a pending slot is reserved for. Exactly one
// of the payload fields matching Type is set by the API.
type Reservation struct {
	Type         string            `json:"type"`
	User         *ReservedUser     `json:"user,omitempty"`
	Organization *ReservedCompany  `json:"organization,omitempty"`
	Email        *ReservedEmail    `json:"email,omitempty"`
}

// ReservedUser is the USER reservation payload.
type ReservedUser struct {
	Email string `json:"email"`
}

// ReservedCompany is the ORGANIZATION / NOT_ORGANIZATION reservation payload.
type ReservedCompany struct {
	Name string `json:"name"`
}

// ReservedEmail is the EMAIL reservation payload.
type ReservedEmail struct {
	Email string `json:"email"`
}

// SignerDescriptor resolves a human-readable "who needs to sign" label for
// the reservation. An unrecognized type tag (or a tag without its payload)
// is an error, never silently skipped.
func (r Reservation) SignerDescriptor() (string, error) {
	switch r.Type {
	case ReservationUser:
		if r.User == nil {
			return "", eris.New("concord: USER reservation without user payload")
		}
		return r.User.Email, nil
	case ReservationOrganization:
		if r.Organization == nil {
			return "", eris.New("concord: ORGANIZATION reservation without organization payload")
		}
		return "Someone from the company: " + r.Organization.Name, nil
	case ReservationNotOrganization:
		if r.Organization == nil {
			return "", eris.New("concord: NOT_ORGANIZATION reservation without organization payload")
		}
		return "Anyone outside of the company: " + r.Organization.Name, nil
	case ReservationEmail:
		if r.Email == nil {
			return "", eris.New("concord: EMAIL reservation without email payload")
		}
		return r.Email.Email, nil
	default:
		return "", eris.Errorf("concord: unsupported reservation type: %s", r.Type)
	}
}

// Activity is one audit-trail entry from the activities endpoint.
type Activity struct {
	Name      string   `json:"name"`
	CreatedAt int64    `json:"createdAt"` // unix millis
	Creator   *Creator `json:"creator,omitempty"`
}

// Creator wraps the actor behind an activity.
type Creator struct {
	Actor Actor `json:"actor"`
}

// Actor identifies the user behind an activity.
type Actor struct {
	Email string `json:"email"`
}

// ActorEmail returns the activity creator's email, or "" when absent.
func (a Activity) ActorEmail() string {
	if a.Creator == nil {
		return ""
	}
	return a.Creator.Actor.Email
}

// AgreementDetail is the response of GET /organizations/{org}/agreements/{uid}.
type AgreementDetail struct {
	UID      string            `json:"uid"`
	Metadata AgreementMetadata `json:"metadata"`
}

// AgreementMetadata carries the lifecycle status of an agreement.
type AgreementMetadata struct {
	Status string `json:"status"`
}

// DraftRequest is the body of POST /organizations/{org}/agreements.
type DraftRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

// DraftResponse is the response to a draft creation.
type DraftResponse struct {
	UID string `json:"uid"`
}

// ApprovalConfig configures the approval workflow of an agreement.
type ApprovalConfig struct {
	AutoNotificationEnabled  bool           `json:"autoNotificationEnabled"`
	BlockThirdPartySignature bool           `json:"blockThirdPartySignature"`
	Rules                    []ApprovalRule `json:"rules"`
}

// ApprovalRule is one rule within an approval configuration. ID and Status
// are server-assigned and only present on reads.
type ApprovalRule struct {
	ID                       string       `json:"id,omitempty"`
	Type                     string       `json:"type"`
	Status                   string       `json:"status,omitempty"`
	BlockThirdPartySignature bool         `json:"blockThirdPartySignature"`
	Validations              []Validation `json:"validations"`
}

// Validation names one approver within a rule.
type Validation struct {
	Type string         `json:"type"`
	User *ValidationRef `json:"user,omitempty"`
}

// ValidationRef references an approver by user id.
type ValidationRef struct {
	ID int64 `json:"id"`
}

// Rule transition actions accepted by the rules endpoint.
const (
	RuleActionAsk    = "ASK"
	RuleActionAccept = "ACCEPT"
)
