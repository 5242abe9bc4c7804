package enterprise

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ShareContractInput carries a share (or re-share) request.
type ShareContractInput struct {
	ContractID  string
	SharedWith  []string
	AccessLevel string
	Message     string
}

// ShareContract attaches or updates the sharing wrapper around a contract.
// The caller must own the contract and every audience member must belong to
// the caller's organization; otherwise nothing is persisted. Re-sharing
// unions the audience and appends exactly one history event.
func (s *Service) ShareContract(ctx context.Context, actor *User, in ShareContractInput) (*TeamContract, error) {
	if actor.OrganizationID == "" {
		return nil, fmt.Errorf("%w: only organization members can share contracts", ErrUnauthorized)
	}
	in.ContractID = strings.TrimSpace(in.ContractID)
	audience := dedupeIDs(in.SharedWith)
	if in.ContractID == "" || len(audience) == 0 {
		return nil, fmt.Errorf("%w: contract id and a non-empty audience are required", ErrInvalidInput)
	}
	if in.AccessLevel != "" && !ValidAccessLevel(in.AccessLevel) {
		return nil, fmt.Errorf("%w: unsupported access level %s", ErrInvalidInput, in.AccessLevel)
	}

	contract, err := s.store.Contracts(ctx).FindOwned(ctx, in.ContractID, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: contract not found or not owned by you", ErrNotFound)
		}
		return nil, err
	}

	members, err := s.store.Users(ctx).FindByIDs(ctx, actor.OrganizationID, audience)
	if err != nil {
		return nil, err
	}
	if len(members) != len(audience) {
		return nil, fmt.Errorf("%w: some users are not in your organization", ErrInvalidInput)
	}

	teamContracts := s.store.TeamContracts(ctx)
	now := s.now().UTC()

	existing, err := teamContracts.FindByContract(ctx, contract.ID, actor.OrganizationID)
	switch {
	case err == nil:
		existing.SharedWith = unionIDs(existing.SharedWith, audience)
		if in.AccessLevel != "" {
			existing.AccessLevel = in.AccessLevel
		}
		existing.Version++
		existing.History = append(existing.History, HistoryEvent{
			ChangedBy: actor.ID,
			Timestamp: now,
			Action:    "update_sharing",
			Details:   historyDetails("Sharing updated by "+actor.DisplayName, in.Message),
		})
		existing.UpdatedAt = now
		if err := teamContracts.Save(ctx, existing); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrNotFound):
		level := in.AccessLevel
		if level == "" {
			level = AccessView
		}
		existing = &TeamContract{
			ContractID:     contract.ID,
			OrganizationID: actor.OrganizationID,
			SharedBy:       actor.ID,
			SharedWith:     audience,
			AccessLevel:    level,
			Status:         StatusDraft,
			Version:        1,
			History: []HistoryEvent{{
				ChangedBy: actor.ID,
				Timestamp: now,
				Action:    "initial_sharing",
				Details:   historyDetails("Initially shared by "+actor.DisplayName, in.Message),
			}},
		}
		if err := teamContracts.Create(ctx, existing); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.recorder.Record(ctx, actor, "contract_shared", ResourceContract, contract.ID,
		fmt.Sprintf("Contract shared with %d team members", len(audience)))

	return existing, nil
}

// OrganizationContracts returns every sharing wrapper where the caller is the
// sharer or part of the audience, with display references resolved.
func (s *Service) OrganizationContracts(ctx context.Context, actor *User) ([]*TeamContractView, error) {
	if actor.OrganizationID == "" {
		return nil, fmt.Errorf("%w: only organization members can access team contracts", ErrUnauthorized)
	}

	shared, err := s.store.TeamContracts(ctx).ListForMember(ctx, actor.OrganizationID, actor.ID)
	if err != nil {
		return nil, err
	}

	views := make([]*TeamContractView, 0, len(shared))
	for _, tc := range shared {
		view := &TeamContractView{TeamContract: *tc}
		if contract, err := s.store.Contracts(ctx).Find(ctx, tc.ContractID); err == nil {
			contract.ContractText = "" // listing carries analysis fields only
			view.Contract = contract
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if sharer, err := s.store.Users(ctx).Find(ctx, tc.SharedBy); err == nil {
			view.Sharer = sharer
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		views = append(views, view)
	}

	s.recorder.Record(ctx, actor, "viewed_team_contracts", ResourceContract, "",
		"User viewed organization contracts")

	return views, nil
}

func historyDetails(base, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return base
	}
	return base + ": " + message
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unionIDs(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, id := range existing {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range extra {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
