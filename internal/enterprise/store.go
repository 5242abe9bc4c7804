package enterprise

import (
	"context"
	"time"
)

// Store describes persistence operations required by the enterprise core.
type Store interface {
	Users(ctx context.Context) UserStore
	Organizations(ctx context.Context) OrganizationStore
	Contracts(ctx context.Context) ContractStore
	TeamContracts(ctx context.Context) TeamContractStore
	Audit(ctx context.Context) AuditStore
}

// UserStore manages user records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByInviteToken(ctx context.Context, token string) (*User, error)
	// FindAdmin returns any admin of the organization, ErrNotFound when none.
	FindAdmin(ctx context.Context, orgID string) (*User, error)
	CountByOrg(ctx context.Context, orgID string) (int, error)
	// FindByIDs returns the users from ids that belong to orgID. Missing or
	// foreign ids are silently omitted.
	FindByIDs(ctx context.Context, orgID string, ids []string) ([]*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
}

// UserUpdate mutates only the fields whose pointers are set.
type UserUpdate struct {
	OrganizationID *string
	Role           *string
	IsEnterprise   *bool
	IsPremium      *bool
	Permissions    []string
	InvitedBy      *string
	InviteToken    *string
	InviteExpires  *time.Time
	ClearInvite    bool
}

// OrganizationStore manages organization records.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	FindByDomain(ctx context.Context, domain string) (*Organization, error)
	Update(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error)
}

// OrganizationUpdate mutates only the fields whose pointers are set.
type OrganizationUpdate struct {
	PlanType       *string
	MaxUsers       *int
	Features       []string
	SubscriptionID *string
	TeamSettings   *TeamSettings
}

// ContractStore reads contract records produced by the analysis pipeline.
type ContractStore interface {
	Create(ctx context.Context, c *Contract) error
	Find(ctx context.Context, id string) (*Contract, error)
	// FindOwned returns the contract only when it is owned by ownerID.
	FindOwned(ctx context.Context, id, ownerID string) (*Contract, error)
}

// TeamContractStore manages sharing wrappers.
type TeamContractStore interface {
	Create(ctx context.Context, tc *TeamContract) error
	// FindByContract returns the unique wrapper for a (contract, organization)
	// pair, ErrNotFound when the contract has not been shared yet.
	FindByContract(ctx context.Context, contractID, orgID string) (*TeamContract, error)
	Save(ctx context.Context, tc *TeamContract) error
	// ListForMember returns every wrapper in the organization where userID is
	// the sharer or part of the audience.
	ListForMember(ctx context.Context, orgID, userID string) ([]*TeamContract, error)
}

// AuditStore appends immutable entries.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*AuditEntry, error)
}
