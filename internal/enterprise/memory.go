package enterprise

import (
	"context"
	"sort"
	"sync"
	"time"

	"clauselens.org/internal/ids"
)

// MemoryStore is an in-process Store used by tests and local development. It
// mirrors the document-store semantics: uniqueness by insertion, no
// transactions, read-then-write races allowed.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[string]*User
	organizations map[string]*Organization
	contracts     map[string]*Contract
	teamContracts map[string]*TeamContract
	auditEntries  []*AuditEntry
	now           func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*User),
		organizations: make(map[string]*Organization),
		contracts:     make(map[string]*Contract),
		teamContracts: make(map[string]*TeamContract),
		now:           time.Now,
	}
}

func (m *MemoryStore) Users(context.Context) UserStore                 { return (*memUserStore)(m) }
func (m *MemoryStore) Organizations(context.Context) OrganizationStore { return (*memOrgStore)(m) }
func (m *MemoryStore) Contracts(context.Context) ContractStore         { return (*memContractStore)(m) }
func (m *MemoryStore) TeamContracts(context.Context) TeamContractStore {
	return (*memTeamContractStore)(m)
}
func (m *MemoryStore) Audit(context.Context) AuditStore { return (*memAuditStore)(m) }

// User store ---------------------------------------------------------------

type memUserStore MemoryStore

func (s *memUserStore) Create(ctx context.Context, u *User) error {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := m.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (s *memUserStore) Find(ctx context.Context, id string) (*User, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *memUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) FindByInviteToken(ctx context.Context, token string) (*User, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.InviteToken != "" && u.InviteToken == token {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) FindAdmin(ctx context.Context, orgID string) (*User, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.OrganizationID == orgID && u.Role == RoleAdmin {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) CountByOrg(ctx context.Context, orgID string) (int, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, u := range m.users {
		if u.OrganizationID == orgID {
			count++
		}
	}
	return count, nil
}

func (s *memUserStore) FindByIDs(ctx context.Context, orgID string, userIDs []string) ([]*User, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*User
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok && u.OrganizationID == orgID {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *memUserStore) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.OrganizationID != nil {
		u.OrganizationID = *upd.OrganizationID
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsEnterprise != nil {
		u.IsEnterprise = *upd.IsEnterprise
	}
	if upd.IsPremium != nil {
		u.IsPremium = *upd.IsPremium
	}
	if upd.Permissions != nil {
		u.Permissions = append([]string(nil), upd.Permissions...)
	}
	if upd.InvitedBy != nil {
		u.InvitedBy = *upd.InvitedBy
	}
	if upd.InviteToken != nil {
		u.InviteToken = *upd.InviteToken
	}
	if upd.InviteExpires != nil {
		expires := *upd.InviteExpires
		u.InviteExpires = &expires
	}
	if upd.ClearInvite {
		u.InviteToken = ""
		u.InviteExpires = nil
	}
	u.UpdatedAt = m.now().UTC()
	return cloneUser(u), nil
}

// Organization store -------------------------------------------------------

type memOrgStore MemoryStore

func (s *memOrgStore) Create(ctx context.Context, org *Organization) error {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.organizations {
		if existing.Domain == org.Domain {
			return ErrConflict
		}
	}
	if org.ID == "" {
		org.ID = ids.New()
	}
	now := m.now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	m.organizations[org.ID] = cloneOrg(org)
	return nil
}

func (s *memOrgStore) Find(ctx context.Context, id string) (*Organization, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrg(org), nil
}

func (s *memOrgStore) FindByDomain(ctx context.Context, domain string) (*Organization, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.organizations {
		if org.Domain == domain {
			return cloneOrg(org), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memOrgStore) Update(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.PlanType != nil {
		org.PlanType = *upd.PlanType
	}
	if upd.MaxUsers != nil {
		org.MaxUsers = *upd.MaxUsers
	}
	if upd.Features != nil {
		org.Features = append([]string(nil), upd.Features...)
	}
	if upd.SubscriptionID != nil {
		org.SubscriptionID = *upd.SubscriptionID
	}
	if upd.TeamSettings != nil {
		org.TeamSettings = *upd.TeamSettings
	}
	org.UpdatedAt = m.now().UTC()
	return cloneOrg(org), nil
}

// Contract store -----------------------------------------------------------

type memContractStore MemoryStore

func (s *memContractStore) Create(ctx context.Context, c *Contract) error {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = ids.New()
	}
	c.CreatedAt = m.now().UTC()
	m.contracts[c.ID] = cloneContract(c)
	return nil
}

func (s *memContractStore) Find(ctx context.Context, id string) (*Contract, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContract(c), nil
}

func (s *memContractStore) FindOwned(ctx context.Context, id, ownerID string) (*Contract, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok || c.UserID != ownerID {
		return nil, ErrNotFound
	}
	return cloneContract(c), nil
}

// TeamContract store -------------------------------------------------------

type memTeamContractStore MemoryStore

func (s *memTeamContractStore) Create(ctx context.Context, tc *TeamContract) error {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.teamContracts {
		if existing.ContractID == tc.ContractID && existing.OrganizationID == tc.OrganizationID {
			return ErrConflict
		}
	}
	if tc.ID == "" {
		tc.ID = ids.New()
	}
	now := m.now().UTC()
	tc.CreatedAt = now
	tc.UpdatedAt = now
	m.teamContracts[tc.ID] = cloneTeamContract(tc)
	return nil
}

func (s *memTeamContractStore) FindByContract(ctx context.Context, contractID, orgID string) (*TeamContract, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tc := range m.teamContracts {
		if tc.ContractID == contractID && tc.OrganizationID == orgID {
			return cloneTeamContract(tc), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memTeamContractStore) Save(ctx context.Context, tc *TeamContract) error {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teamContracts[tc.ID]; !ok {
		return ErrNotFound
	}
	m.teamContracts[tc.ID] = cloneTeamContract(tc)
	return nil
}

func (s *memTeamContractStore) ListForMember(ctx context.Context, orgID, userID string) ([]*TeamContract, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*TeamContract
	for _, tc := range m.teamContracts {
		if tc.OrganizationID != orgID {
			continue
		}
		if tc.SharedBy == userID || containsID(tc.SharedWith, userID) {
			out = append(out, cloneTeamContract(tc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Audit store --------------------------------------------------------------

type memAuditStore MemoryStore

func (s *memAuditStore) Append(ctx context.Context, entry *AuditEntry) error {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = m.now().UTC()
	}
	copied := *entry
	m.auditEntries = append(m.auditEntries, &copied)
	return nil
}

func (s *memAuditStore) ListByOrg(ctx context.Context, orgID string, limit int) ([]*AuditEntry, error) {
	m := (*MemoryStore)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*AuditEntry
	for i := len(m.auditEntries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.auditEntries[i].OrganizationID == orgID {
			copied := *m.auditEntries[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Helpers ------------------------------------------------------------------

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func cloneUser(u *User) *User {
	copied := *u
	copied.Permissions = append([]string(nil), u.Permissions...)
	if u.InviteExpires != nil {
		expires := *u.InviteExpires
		copied.InviteExpires = &expires
	}
	return &copied
}

func cloneOrg(org *Organization) *Organization {
	copied := *org
	copied.Features = append([]string(nil), org.Features...)
	copied.Admins = append([]string(nil), org.Admins...)
	return &copied
}

func cloneContract(c *Contract) *Contract {
	copied := *c
	copied.Risks = append([]string(nil), c.Risks...)
	copied.Opportunities = append([]string(nil), c.Opportunities...)
	return &copied
}

func cloneTeamContract(tc *TeamContract) *TeamContract {
	copied := *tc
	copied.SharedWith = append([]string(nil), tc.SharedWith...)
	copied.History = append([]HistoryEvent(nil), tc.History...)
	return &copied
}
