package enterprise

import "time"

// Role of a user inside their organization. Meaningful only when the user
// carries an organization reference.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// Access level granted to a sharing audience.
const (
	AccessView    = "view"
	AccessComment = "comment"
	AccessEdit    = "edit"
)

// TeamContract review status.
const (
	StatusDraft    = "draft"
	StatusInReview = "in-review"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Audit resource types.
const (
	ResourceContract     = "contract"
	ResourceUser         = "user"
	ResourceOrganization = "organization"
	ResourcePayment      = "payment"
	ResourceTemplate     = "template"
	ResourceSettings     = "settings"
)

// Permissions granted to a founding admin.
var AdminPermissions = []string{
	"manage_users",
	"manage_billing",
	"manage_contracts",
	"create_templates",
}

// User is an account, either fully authenticated or an invite placeholder.
type User struct {
	ID             string     `json:"id"`
	ProviderID     string     `json:"-"`
	Email          string     `json:"email"`
	DisplayName    string     `json:"display_name"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	IsPremium      bool       `json:"is_premium"`
	OrganizationID string     `json:"organization_id,omitempty"`
	Role           string     `json:"role,omitempty"`
	IsEnterprise   bool       `json:"is_enterprise"`
	Permissions    []string   `json:"permissions,omitempty"`
	InvitedBy      string     `json:"invited_by,omitempty"`
	InviteToken    string     `json:"-"`
	InviteExpires  *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsEnterpriseMember reports whether the user belongs to an organization with
// the enterprise flag set.
func (u *User) IsEnterpriseMember() bool {
	return u != nil && u.IsEnterprise && u.OrganizationID != ""
}

// IsOrgAdmin reports whether the user is an enterprise organization admin.
func (u *User) IsOrgAdmin() bool {
	return u.IsEnterpriseMember() && u.Role == RoleAdmin
}

// IsOrgManager reports whether the user is an admin or a manager.
func (u *User) IsOrgManager() bool {
	return u.IsEnterpriseMember() && (u.Role == RoleAdmin || u.Role == RoleManager)
}

// TeamSettings is the organization settings sub-record. Updates replace it
// wholesale.
type TeamSettings struct {
	AllowPublicContracts bool `json:"allow_public_contracts"`
	RequireApproval      bool `json:"require_approval"`
	CustomTemplates      bool `json:"custom_templates"`
	DataRetentionDays    int  `json:"data_retention_days"`
	AuditLoggingEnabled  bool `json:"audit_logging_enabled"`
}

// DefaultTeamSettings returns the settings applied at organization creation.
func DefaultTeamSettings() TeamSettings {
	return TeamSettings{
		RequireApproval:   true,
		DataRetentionDays: 365,
	}
}

// Organization is the tenant record.
type Organization struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Domain         string       `json:"domain"`
	PlanType       string       `json:"plan_type"`
	MaxUsers       int          `json:"max_users"`
	Features       []string     `json:"features"`
	BillingEmail   string       `json:"billing_email"`
	CustomerID     string       `json:"customer_id,omitempty"`
	SubscriptionID string       `json:"subscription_id,omitempty"`
	Admins         []string     `json:"admins"`
	TeamSettings   TeamSettings `json:"team_settings"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Contract is an analyzed contract. Produced by the analysis pipeline; this
// core only reads and shares it.
type Contract struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	ContractType   string    `json:"contract_type"`
	ContractText   string    `json:"contract_text,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	Risks          []string  `json:"risks,omitempty"`
	Opportunities  []string  `json:"opportunities,omitempty"`
	OverallScore   string    `json:"overall_score,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryEvent is one append-only entry in a TeamContract change trail.
type HistoryEvent struct {
	ChangedBy string    `json:"changed_by"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
}

// TeamContract wraps a Contract shared inside an organization. Exactly one
// exists per (contract, organization) pair.
type TeamContract struct {
	ID             string         `json:"id"`
	ContractID     string         `json:"contract_id"`
	OrganizationID string         `json:"organization_id"`
	SharedBy       string         `json:"shared_by"`
	SharedWith     []string       `json:"shared_with"`
	AccessLevel    string         `json:"access_level"`
	Status         string         `json:"status"`
	Version        int            `json:"version"`
	History        []HistoryEvent `json:"history"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TeamContractView is a TeamContract with its display references resolved.
type TeamContractView struct {
	TeamContract
	Contract *Contract `json:"contract,omitempty"`
	Sharer   *User     `json:"sharer,omitempty"`
}

// AuditEntry is an immutable record of a state-changing action inside an
// organization scope.
type AuditEntry struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Action         string    `json:"action"`
	ResourceType   string    `json:"resource_type"`
	ResourceID     string    `json:"resource_id,omitempty"`
	Details        string    `json:"details"`
	IPAddress      string    `json:"ip_address,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ValidRole reports whether role is one of the recognized organization roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// ValidAccessLevel reports whether level is a recognized sharing access level.
func ValidAccessLevel(level string) bool {
	switch level {
	case AccessView, AccessComment, AccessEdit:
		return true
	}
	return false
}
