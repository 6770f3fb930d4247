// Package recipients merges the three recipient sources of a notification
// (explicit receivers, order participants, role-holding organization
// members) into one de-duplicated audience that never includes the actor
// who triggered the event.
package recipients

import (
	"context"
	"fmt"

	"freightline/internal/types"
)

// Collector builds the final recipient list for a notification. The two
// lookup sources are read-only; a failure in either is fatal to building an
// accurate audience and propagates to the caller.
type Collector struct {
	participants types.ParticipantSource
	members      types.MemberSource
}

// NewCollector creates a Collector over the given lookup sources.
func NewCollector(participants types.ParticipantSource, members types.MemberSource) *Collector {
	return &Collector{
		participants: participants,
		members:      members,
	}
}

// Input carries the optional recipient sources for one collection pass.
type Input struct {
	OrganizationID string
	ActorID        string // excluded from every source
	AuthToken      string

	Receivers []types.Recipient // explicit receivers, highest precedence

	OrderCode           string // empty skips the participant lookup
	IncludeParticipants bool

	RoleNames []string // empty skips the member lookup
}

// Collect merges the sources in precedence order: explicit receivers, then
// order participants, then role members. A user id added by an earlier
// source is never added again by a later one, and the actor id is never
// added from any source.
func (c *Collector) Collect(ctx context.Context, in Input) ([]types.Recipient, error) {
	seen := map[string]struct{}{}
	if in.ActorID != "" {
		seen[in.ActorID] = struct{}{}
	}

	var out []types.Recipient
	add := func(userID string) {
		if userID == "" {
			return
		}
		if _, dup := seen[userID]; dup {
			return
		}
		seen[userID] = struct{}{}
		out = append(out, types.NewRecipient(userID))
	}

	for _, r := range in.Receivers {
		add(r.User.ID)
	}

	if in.IncludeParticipants && in.OrderCode != "" {
		participants, err := c.participants.OrderParticipants(ctx, in.AuthToken, in.OrganizationID, in.OrderCode)
		if err != nil {
			return nil, fmt.Errorf("Collect: order participants for %s: %w", in.OrderCode, err)
		}
		for _, p := range participants {
			add(p.User.ID)
		}
	}

	if len(in.RoleNames) > 0 {
		members, err := c.members.MembersByRole(ctx, in.AuthToken, in.OrganizationID, in.RoleNames)
		if err != nil {
			return nil, fmt.Errorf("Collect: members by role: %w", err)
		}
		for _, m := range members {
			add(m.Member.ID)
		}
	}

	return out, nil
}
