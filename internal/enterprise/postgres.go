package enterprise

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"clauselens.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(context context.Context) UserStore { return &pgUserStore{db: s.db} }
func (s *PGStore) Organizations(context context.Context) OrganizationStore {
	return &pgOrgStore{db: s.db}
}
func (s *PGStore) Contracts(context context.Context) ContractStore { return &pgContractStore{db: s.db} }
func (s *PGStore) TeamContracts(context context.Context) TeamContractStore {
	return &pgTeamContractStore{db: s.db}
}
func (s *PGStore) Audit(context context.Context) AuditStore { return &pgAuditStore{db: s.db} }

// User store ---------------------------------------------------------------

const userColumns = `id, provider_id, email, display_name, profile_picture, is_premium,
	organization_id, role, is_enterprise, permissions, invited_by, invite_token,
	invite_expires, created_at, updated_at`

type pgUserStore struct{ db *sql.DB }

func (s *pgUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	perms, _ := json.Marshal(u.Permissions)
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, provider_id, email, display_name, profile_picture, is_premium,
		 organization_id, role, is_enterprise, permissions, invited_by, invite_token, invite_expires)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, u.ProviderID, u.Email, u.DisplayName, u.ProfilePicture, u.IsPremium,
		u.OrganizationID, u.Role, u.IsEnterprise, perms, u.InvitedBy, u.InviteToken, u.InviteExpires,
	)
	return err
}

func (s *pgUserStore) Find(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, `where id=$1`, id)
}

func (s *pgUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, `where email=$1`, email)
}

func (s *pgUserStore) FindByInviteToken(ctx context.Context, token string) (*User, error) {
	return s.findOne(ctx, `where invite_token=$1`, token)
}

func (s *pgUserStore) FindAdmin(ctx context.Context, orgID string) (*User, error) {
	return s.findOne(ctx, `where organization_id=$1 and role=$2 order by created_at limit 1`, orgID, RoleAdmin)
}

func (s *pgUserStore) findOne(ctx context.Context, clause string, args ...any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users `+clause, args...)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *pgUserStore) CountByOrg(ctx context.Context, orgID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where organization_id=$1`, orgID).Scan(&count)
	return count, err
}

func (s *pgUserStore) FindByIDs(ctx context.Context, orgID string, userIDs []string) ([]*User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(userIDs))
	args := make([]any, 0, len(userIDs)+1)
	args = append(args, orgID)
	for i, id := range userIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where organization_id=$1 and id in (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *pgUserStore) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	set := []string{"updated_at=now()"}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if upd.OrganizationID != nil {
		add("organization_id", *upd.OrganizationID)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.IsEnterprise != nil {
		add("is_enterprise", *upd.IsEnterprise)
	}
	if upd.IsPremium != nil {
		add("is_premium", *upd.IsPremium)
	}
	if upd.Permissions != nil {
		perms, _ := json.Marshal(upd.Permissions)
		add("permissions", perms)
	}
	if upd.InvitedBy != nil {
		add("invited_by", *upd.InvitedBy)
	}
	if upd.InviteToken != nil {
		add("invite_token", *upd.InviteToken)
	}
	if upd.InviteExpires != nil {
		add("invite_expires", *upd.InviteExpires)
	}
	if upd.ClearInvite {
		set = append(set, "invite_token=''", "invite_expires=null")
	}
	row := s.db.QueryRowContext(ctx,
		`update users set `+strings.Join(set, ", ")+` where id=$1 returning `+userColumns,
		args...)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u     User
		perms []byte
	)
	if err := row.Scan(&u.ID, &u.ProviderID, &u.Email, &u.DisplayName, &u.ProfilePicture,
		&u.IsPremium, &u.OrganizationID, &u.Role, &u.IsEnterprise, &perms,
		&u.InvitedBy, &u.InviteToken, &u.InviteExpires, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(perms, &u.Permissions)
	return &u, nil
}

// Organization store -------------------------------------------------------

const orgColumns = `id, name, domain, plan_type, max_users, features, billing_email,
	customer_id, subscription_id, admins, team_settings, created_at, updated_at`

type pgOrgStore struct{ db *sql.DB }

func (s *pgOrgStore) Create(ctx context.Context, org *Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	features, _ := json.Marshal(org.Features)
	admins, _ := json.Marshal(org.Admins)
	settings, _ := json.Marshal(org.TeamSettings)
	_, err := s.db.ExecContext(ctx,
		`insert into organizations(id, name, domain, plan_type, max_users, features,
		 billing_email, customer_id, subscription_id, admins, team_settings)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		org.ID, org.Name, org.Domain, org.PlanType, org.MaxUsers, features,
		org.BillingEmail, org.CustomerID, org.SubscriptionID, admins, settings,
	)
	return err
}

func (s *pgOrgStore) Find(ctx context.Context, id string) (*Organization, error) {
	return s.findOne(ctx, `where id=$1`, id)
}

func (s *pgOrgStore) FindByDomain(ctx context.Context, domain string) (*Organization, error) {
	return s.findOne(ctx, `where domain=$1`, domain)
}

func (s *pgOrgStore) findOne(ctx context.Context, clause string, args ...any) (*Organization, error) {
	row := s.db.QueryRowContext(ctx, `select `+orgColumns+` from organizations `+clause, args...)
	org, err := scanOrg(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return org, nil
}

func (s *pgOrgStore) Update(ctx context.Context, id string, upd OrganizationUpdate) (*Organization, error) {
	set := []string{"updated_at=now()"}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if upd.PlanType != nil {
		add("plan_type", *upd.PlanType)
	}
	if upd.MaxUsers != nil {
		add("max_users", *upd.MaxUsers)
	}
	if upd.Features != nil {
		features, _ := json.Marshal(upd.Features)
		add("features", features)
	}
	if upd.SubscriptionID != nil {
		add("subscription_id", *upd.SubscriptionID)
	}
	if upd.TeamSettings != nil {
		settings, _ := json.Marshal(*upd.TeamSettings)
		add("team_settings", settings)
	}
	row := s.db.QueryRowContext(ctx,
		`update organizations set `+strings.Join(set, ", ")+` where id=$1 returning `+orgColumns,
		args...)
	org, err := scanOrg(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return org, nil
}

func scanOrg(row rowScanner) (*Organization, error) {
	var (
		org      Organization
		features []byte
		admins   []byte
		settings []byte
	)
	if err := row.Scan(&org.ID, &org.Name, &org.Domain, &org.PlanType, &org.MaxUsers,
		&features, &org.BillingEmail, &org.CustomerID, &org.SubscriptionID,
		&admins, &settings, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(features, &org.Features)
	_ = json.Unmarshal(admins, &org.Admins)
	_ = json.Unmarshal(settings, &org.TeamSettings)
	return &org, nil
}

// Contract store -----------------------------------------------------------

const contractColumns = `id, user_id, organization_id, contract_type, contract_text,
	summary, risks, opportunities, overall_score, created_at`

type pgContractStore struct{ db *sql.DB }

func (s *pgContractStore) Create(ctx context.Context, c *Contract) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	risks, _ := json.Marshal(c.Risks)
	opportunities, _ := json.Marshal(c.Opportunities)
	_, err := s.db.ExecContext(ctx,
		`insert into contracts(id, user_id, organization_id, contract_type, contract_text,
		 summary, risks, opportunities, overall_score)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.UserID, c.OrganizationID, c.ContractType, c.ContractText,
		c.Summary, risks, opportunities, c.OverallScore,
	)
	return err
}

func (s *pgContractStore) Find(ctx context.Context, id string) (*Contract, error) {
	return s.findOne(ctx, `where id=$1`, id)
}

func (s *pgContractStore) FindOwned(ctx context.Context, id, ownerID string) (*Contract, error) {
	return s.findOne(ctx, `where id=$1 and user_id=$2`, id, ownerID)
}

func (s *pgContractStore) findOne(ctx context.Context, clause string, args ...any) (*Contract, error) {
	row := s.db.QueryRowContext(ctx, `select `+contractColumns+` from contracts `+clause, args...)
	var (
		c             Contract
		risks         []byte
		opportunities []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.OrganizationID, &c.ContractType, &c.ContractText,
		&c.Summary, &risks, &opportunities, &c.OverallScore, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(risks, &c.Risks)
	_ = json.Unmarshal(opportunities, &c.Opportunities)
	return &c, nil
}

// TeamContract store -------------------------------------------------------

const teamContractColumns = `id, contract_id, organization_id, shared_by, shared_with,
	access_level, status, version, history, created_at, updated_at`

type pgTeamContractStore struct{ db *sql.DB }

func (s *pgTeamContractStore) Create(ctx context.Context, tc *TeamContract) error {
	if tc.ID == "" {
		tc.ID = ids.New()
	}
	sharedWith, _ := json.Marshal(tc.SharedWith)
	history, _ := json.Marshal(tc.History)
	_, err := s.db.ExecContext(ctx,
		`insert into team_contracts(id, contract_id, organization_id, shared_by, shared_with,
		 access_level, status, version, history)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		tc.ID, tc.ContractID, tc.OrganizationID, tc.SharedBy, sharedWith,
		tc.AccessLevel, tc.Status, tc.Version, history,
	)
	return err
}

func (s *pgTeamContractStore) FindByContract(ctx context.Context, contractID, orgID string) (*TeamContract, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+teamContractColumns+` from team_contracts where contract_id=$1 and organization_id=$2`,
		contractID, orgID)
	tc, err := scanTeamContract(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return tc, nil
}

func (s *pgTeamContractStore) Save(ctx context.Context, tc *TeamContract) error {
	sharedWith, _ := json.Marshal(tc.SharedWith)
	history, _ := json.Marshal(tc.History)
	res, err := s.db.ExecContext(ctx,
		`update team_contracts set shared_with=$2, access_level=$3, status=$4, version=$5,
		 history=$6, updated_at=now() where id=$1`,
		tc.ID, sharedWith, tc.AccessLevel, tc.Status, tc.Version, history,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgTeamContractStore) ListForMember(ctx context.Context, orgID, userID string) ([]*TeamContract, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+teamContractColumns+` from team_contracts
		 where organization_id=$1 and (shared_by=$2 or shared_with @> $3)
		 order by created_at`,
		orgID, userID, fmt.Sprintf(`[%q]`, userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*TeamContract
	for rows.Next() {
		tc, err := scanTeamContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tc)
	}
	return result, rows.Err()
}

func scanTeamContract(row rowScanner) (*TeamContract, error) {
	var (
		tc         TeamContract
		sharedWith []byte
		history    []byte
	)
	if err := row.Scan(&tc.ID, &tc.ContractID, &tc.OrganizationID, &tc.SharedBy, &sharedWith,
		&tc.AccessLevel, &tc.Status, &tc.Version, &history, &tc.CreatedAt, &tc.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(sharedWith, &tc.SharedWith)
	_ = json.Unmarshal(history, &tc.History)
	return &tc, nil
}

// Audit store --------------------------------------------------------------

type pgAuditStore struct{ db *sql.DB }

func (s *pgAuditStore) Append(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(id, organization_id, user_id, action, resource_type, resource_id, details, ip_address, occurred_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.ID, entry.OrganizationID, entry.UserID, entry.Action,
		entry.ResourceType, entry.ResourceID, entry.Details, entry.IPAddress, entry.OccurredAt,
	)
	return err
}

func (s *pgAuditStore) ListByOrg(ctx context.Context, orgID string, limit int) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, organization_id, user_id, action, resource_type, resource_id, details, ip_address, occurred_at
		 from audit_log where organization_id=$1 order by occurred_at desc limit $2`,
		orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.UserID, &e.Action,
			&e.ResourceType, &e.ResourceID, &e.Details, &e.IPAddress, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
