// Package teams implements the team lifecycle: create, join, leave, remove,
// finalize, drive-link management, and disband. Membership mutation on a
// single team is serialized by a per-team lock plus a transactional
// read-modify-write, so capacity and finalize invariants hold under
// concurrent requests.
package teams

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/SalmanNajah/devhost-2025/internal/events"
	"github.com/SalmanNajah/devhost-2025/internal/models"
	"github.com/SalmanNajah/devhost-2025/internal/store"
	"github.com/SalmanNajah/devhost-2025/pkg/lock"
)

var (
	// ErrUnknownEvent means the event id has no configured policy.
	ErrUnknownEvent = errors.New("teams: unknown event")
	// ErrProfileNotFound means the caller has no profile document yet.
	ErrProfileNotFound = errors.New("teams: user profile not found")
	// ErrProfileIncomplete means the profile is missing required fields.
	ErrProfileIncomplete = errors.New("teams: user profile incomplete")
	// ErrAlreadyInTeam means the caller already belongs to a team for the event.
	ErrAlreadyInTeam = errors.New("teams: already part of a team for this event")
	// ErrTeamNotFound means no matching team exists.
	ErrTeamNotFound = errors.New("teams: team not found")
	// ErrEventMismatch means the team does not belong to the addressed event.
	ErrEventMismatch = errors.New("teams: team does not belong to this event")
	// ErrTeamFull means the team is at the event's maximum size.
	ErrTeamFull = errors.New("teams: team is full")
	// ErrTeamLocked means the team is finalized or registered and membership
	// is immutable.
	ErrTeamLocked = errors.New("teams: team is finalized or registered")
	// ErrNotLeader means a leader-only action was attempted by a member.
	ErrNotLeader = errors.New("teams: only the team leader may do this")
	// ErrLeaderCannotLeave means the leader tried to leave or be removed;
	// the team must be disbanded instead.
	ErrLeaderCannotLeave = errors.New("teams: leader cannot leave the team")
	// ErrNotMember means the target email is not on the team.
	ErrNotMember = errors.New("teams: not a member of this team")
	// ErrTeamNotEmpty means delete was attempted while other members remain.
	ErrTeamNotEmpty = errors.New("teams: team still has other members")
	// ErrSizeOutOfRange means the member count is outside the event bounds.
	ErrSizeOutOfRange = errors.New("teams: member count outside event bounds")
	// ErrDriveLinkRequired means finalize needs a drive link first.
	ErrDriveLinkRequired = errors.New("teams: drive link required before finalizing")
)

// Service owns team lifecycle rules on top of the store.
type Service struct {
	teams    store.Teams
	profiles store.Profiles
	policies events.Policies
	locker   lock.Locker
	logger   *zap.Logger
}

// NewService creates the team service.
func NewService(teams store.Teams, profiles store.Profiles, policies events.Policies, locker lock.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{teams: teams, profiles: profiles, policies: policies, locker: locker, logger: logger}
}

// requireProfile loads the caller's profile and checks the name is present.
func (s *Service) requireProfile(ctx context.Context, uid string) (*models.Profile, error) {
	p, err := s.profiles.Get(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, ErrProfileIncomplete
	}
	return p, nil
}

// Create makes a new leader-only team for the event. The caller must have a
// profile and must not already belong to a team for this event.
func (s *Service) Create(ctx context.Context, uid, email, eventID, teamName string) (*models.Team, error) {
	if _, ok := s.policies.Lookup(eventID); !ok {
		return nil, ErrUnknownEvent
	}
	profile, err := s.requireProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if _, err := s.teams.FindByMember(ctx, eventID, email); err == nil {
		return nil, ErrAlreadyInTeam
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	t := &models.Team{
		EventID:     eventID,
		TeamName:    strings.TrimSpace(teamName),
		LeaderEmail: email,
		LeaderName:  profile.Name,
		Members:     []string{email},
	}
	if _, err := s.teams.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("team created",
		zap.String("team_id", t.ID),
		zap.String("event_id", eventID),
		zap.String("leader", email),
	)
	return t, nil
}

// Join adds the caller to the team led by leaderEmail, if it has capacity and
// is not finalized or registered.
func (s *Service) Join(ctx context.Context, uid, email, eventID, leaderEmail string) (*models.Team, error) {
	policy, ok := s.policies.Lookup(eventID)
	if !ok {
		return nil, ErrUnknownEvent
	}
	if _, err := s.requireProfile(ctx, uid); err != nil {
		return nil, err
	}
	if _, err := s.teams.FindByMember(ctx, eventID, email); err == nil {
		return nil, ErrAlreadyInTeam
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	leaderEmail = strings.ToLower(strings.TrimSpace(leaderEmail))
	target, err := s.teams.FindByLeader(ctx, eventID, leaderEmail)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}

	var joined *models.Team
	err = s.locker.WithLock(ctx, "team:"+target.ID, func() error {
		joined, err = s.teams.Mutate(ctx, target.ID, func(t *models.Team) error {
			if t.Locked() {
				return ErrTeamLocked
			}
			if len(t.Members) >= policy.Max {
				return ErrTeamFull
			}
			t.AddMember(email)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Leave removes the caller from their team. Leaders must disband instead.
func (s *Service) Leave(ctx context.Context, email, eventID string) (*models.Team, error) {
	team, err := s.teams.FindByMember(ctx, eventID, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	if team.LeaderEmail == email {
		return nil, ErrLeaderCannotLeave
	}

	var left *models.Team
	err = s.locker.WithLock(ctx, "team:"+team.ID, func() error {
		left, err = s.teams.Mutate(ctx, team.ID, func(t *models.Team) error {
			if t.Locked() {
				return ErrTeamLocked
			}
			if !t.RemoveMember(email) {
				return ErrNotMember
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return left, nil
}

// Remove lets the leader drop memberEmail from the team.
func (s *Service) Remove(ctx context.Context, actorEmail, eventID, teamID, memberEmail string) (*models.Team, error) {
	team, err := s.getForEvent(ctx, eventID, teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderEmail != actorEmail {
		return nil, ErrNotLeader
	}
	if memberEmail == team.LeaderEmail {
		return nil, ErrLeaderCannotLeave
	}

	var updated *models.Team
	err = s.locker.WithLock(ctx, "team:"+team.ID, func() error {
		updated, err = s.teams.Mutate(ctx, team.ID, func(t *models.Team) error {
			if t.Locked() {
				return ErrTeamLocked
			}
			if !t.RemoveMember(memberEmail) {
				return ErrNotMember
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Finalize locks membership, one-way. Requires the member count to be inside
// the event bounds and, where the event demands it, a non-empty drive link.
func (s *Service) Finalize(ctx context.Context, actorEmail, eventID, teamID string) (*models.Team, error) {
	policy, ok := s.policies.Lookup(eventID)
	if !ok {
		return nil, ErrUnknownEvent
	}
	team, err := s.getForEvent(ctx, eventID, teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderEmail != actorEmail {
		return nil, ErrNotLeader
	}

	var finalized *models.Team
	err = s.locker.WithLock(ctx, "team:"+team.ID, func() error {
		finalized, err = s.teams.Mutate(ctx, team.ID, func(t *models.Team) error {
			if t.Finalized {
				return nil // one-way latch; repeat calls are a no-op
			}
			if !policy.FitsSize(len(t.Members)) {
				return ErrSizeOutOfRange
			}
			if policy.RequireDriveLink && strings.TrimSpace(t.DriveLink) == "" {
				return ErrDriveLinkRequired
			}
			t.Finalized = true
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team finalized", zap.String("team_id", teamID), zap.String("event_id", eventID))
	return finalized, nil
}

// SetDriveLink stores the team's submission artifact. Leader only; rejected
// once the team is registered.
func (s *Service) SetDriveLink(ctx context.Context, actorEmail, eventID, teamID, link string) (*models.Team, error) {
	team, err := s.getForEvent(ctx, eventID, teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderEmail != actorEmail {
		return nil, ErrNotLeader
	}
	updated, err := s.teams.Mutate(ctx, team.ID, func(t *models.Team) error {
		if t.Registered {
			return ErrTeamLocked
		}
		t.DriveLink = strings.TrimSpace(link)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete disbands the team. Leader only, never after registration, and only
// while no other members remain. Teammates must leave or be removed first so
// they are not silently orphaned.
func (s *Service) Delete(ctx context.Context, actorEmail, eventID, teamID string) error {
	team, err := s.getForEvent(ctx, eventID, teamID)
	if err != nil {
		return err
	}
	if team.LeaderEmail != actorEmail {
		return ErrNotLeader
	}
	if team.Registered {
		return ErrTeamLocked
	}
	if len(team.Members) > 1 {
		return ErrTeamNotEmpty
	}
	if err := s.teams.Delete(ctx, team.ID); err != nil {
		return err
	}
	s.logger.Info("team deleted", zap.String("team_id", teamID), zap.String("event_id", eventID))
	return nil
}

// MyTeam returns the caller's team for the event, or nil if they have none.
func (s *Service) MyTeam(ctx context.Context, email, eventID string) (*models.Team, error) {
	team, err := s.teams.FindByMember(ctx, eventID, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *Service) getForEvent(ctx context.Context, eventID, teamID string) (*models.Team, error) {
	team, err := s.teams.Get(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	if team.EventID != eventID {
		return nil, ErrEventMismatch
	}
	return team, nil
}
