package teams

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/SalmanNajah/devhost-2025/internal/events"
	"github.com/SalmanNajah/devhost-2025/internal/models"
	"github.com/SalmanNajah/devhost-2025/internal/store"
	"github.com/SalmanNajah/devhost-2025/pkg/lock"
)

func testPolicies() events.Policies {
	return events.Policies{
		models.HackathonEventID: {Min: 3, Max: 4, Amount: 250, PerHead: true, MarkupBP: 250, RequireDriveLink: true},
		"2":                     {Min: 1, Max: 2, Amount: 150, FlatFee: 3},
	}
}

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := NewService(mem.Teams(), mem.Profiles(), testPolicies(), lock.NewLocal(), nil)
	return svc, mem
}

func seedProfile(t *testing.T, mem *store.Memory, uid, email, name string) {
	t.Helper()
	err := mem.Profiles().Upsert(context.Background(), &models.Profile{
		UID: uid, Email: email, Name: name, Phone: "9999999999",
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

// buildTeam creates a team through the service and joins extra members, so
// tests start from states the service itself can produce.
func buildTeam(t *testing.T, svc *Service, mem *store.Memory, eventID string, memberEmails ...string) *models.Team {
	t.Helper()
	ctx := context.Background()
	leader := memberEmails[0]
	seedProfile(t, mem, "uid-"+leader, leader, "Member "+leader)
	team, err := svc.Create(ctx, "uid-"+leader, leader, eventID, "Test Team")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	for _, email := range memberEmails[1:] {
		seedProfile(t, mem, "uid-"+email, email, "Member "+email)
		if team, err = svc.Join(ctx, "uid-"+email, email, eventID, leader); err != nil {
			t.Fatalf("join %s: %v", email, err)
		}
	}
	return team
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	seedProfile(t, mem, "u1", "alice@x.com", "Alice")

	t.Run("unknown event", func(t *testing.T) {
		if _, err := svc.Create(ctx, "u1", "alice@x.com", "nope", "A"); !errors.Is(err, ErrUnknownEvent) {
			t.Errorf("err = %v, want ErrUnknownEvent", err)
		}
	})

	t.Run("missing profile", func(t *testing.T) {
		if _, err := svc.Create(ctx, "ghost", "ghost@x.com", models.HackathonEventID, "A"); !errors.Is(err, ErrProfileNotFound) {
			t.Errorf("err = %v, want ErrProfileNotFound", err)
		}
	})

	team, err := svc.Create(ctx, "u1", "alice@x.com", models.HackathonEventID, "  Alpha  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if team.TeamName != "Alpha" {
		t.Errorf("team name = %q, want trimmed %q", team.TeamName, "Alpha")
	}
	if team.LeaderEmail != "alice@x.com" || len(team.Members) != 1 || team.Members[0] != "alice@x.com" {
		t.Errorf("new team should contain only the leader: %+v", team)
	}
	if team.Finalized || team.Registered || team.PaymentDone {
		t.Error("new team must start unlocked and unpaid")
	}

	t.Run("one team per event", func(t *testing.T) {
		if _, err := svc.Create(ctx, "u1", "alice@x.com", models.HackathonEventID, "B"); !errors.Is(err, ErrAlreadyInTeam) {
			t.Errorf("err = %v, want ErrAlreadyInTeam", err)
		}
	})

	t.Run("same user different event", func(t *testing.T) {
		if _, err := svc.Create(ctx, "u1", "alice@x.com", "2", "Solo"); err != nil {
			t.Errorf("creating for a second event should work, got %v", err)
		}
	})
}

func TestJoin(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com", "bob@x.com", "carol@x.com")

	t.Run("unknown leader", func(t *testing.T) {
		seedProfile(t, mem, "u-dave", "dave@x.com", "Dave")
		if _, err := svc.Join(ctx, "u-dave", "dave@x.com", models.HackathonEventID, "nobody@x.com"); !errors.Is(err, ErrTeamNotFound) {
			t.Errorf("err = %v, want ErrTeamNotFound", err)
		}
	})

	t.Run("member cannot join twice", func(t *testing.T) {
		if _, err := svc.Join(ctx, "uid-bob@x.com", "bob@x.com", models.HackathonEventID, "alice@x.com"); !errors.Is(err, ErrAlreadyInTeam) {
			t.Errorf("err = %v, want ErrAlreadyInTeam", err)
		}
	})

	t.Run("leader email is normalized", func(t *testing.T) {
		seedProfile(t, mem, "u-dave", "dave@x.com", "Dave")
		team, err := svc.Join(ctx, "u-dave", "dave@x.com", models.HackathonEventID, "  ALICE@X.COM ")
		if err != nil {
			t.Fatalf("join: %v", err)
		}
		if len(team.Members) != 4 {
			t.Errorf("members = %d, want 4", len(team.Members))
		}
	})

	t.Run("full team rejects joins", func(t *testing.T) {
		seedProfile(t, mem, "u-eve", "eve@x.com", "Eve")
		if _, err := svc.Join(ctx, "u-eve", "eve@x.com", models.HackathonEventID, "alice@x.com"); !errors.Is(err, ErrTeamFull) {
			t.Errorf("err = %v, want ErrTeamFull", err)
		}
	})
}

func TestJoinRejectedAfterFinalize(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	team := buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com", "bob@x.com", "carol@x.com")

	if _, err := svc.SetDriveLink(ctx, "alice@x.com", models.HackathonEventID, team.ID, "https://drive.google.com/x"); err != nil {
		t.Fatalf("set drive link: %v", err)
	}
	if _, err := svc.Finalize(ctx, "alice@x.com", models.HackathonEventID, team.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	seedProfile(t, mem, "u-dave", "dave@x.com", "Dave")
	if _, err := svc.Join(ctx, "u-dave", "dave@x.com", models.HackathonEventID, "alice@x.com"); !errors.Is(err, ErrTeamLocked) {
		t.Errorf("err = %v, want ErrTeamLocked", err)
	}
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	team := buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com", "bob@x.com", "carol@x.com")

	t.Run("leader cannot leave", func(t *testing.T) {
		if _, err := svc.Leave(ctx, "alice@x.com", models.HackathonEventID); !errors.Is(err, ErrLeaderCannotLeave) {
			t.Errorf("err = %v, want ErrLeaderCannotLeave", err)
		}
	})

	t.Run("member leaves", func(t *testing.T) {
		updated, err := svc.Leave(ctx, "bob@x.com", models.HackathonEventID)
		if err != nil {
			t.Fatalf("leave: %v", err)
		}
		if updated.HasMember("bob@x.com") {
			t.Error("bob should be gone")
		}
		if len(updated.Members) != 2 {
			t.Errorf("members = %d, want 2", len(updated.Members))
		}
	})

	t.Run("not on any team", func(t *testing.T) {
		if _, err := svc.Leave(ctx, "bob@x.com", models.HackathonEventID); !errors.Is(err, ErrTeamNotFound) {
			t.Errorf("err = %v, want ErrTeamNotFound", err)
		}
	})

	t.Run("locked after registration", func(t *testing.T) {
		if _, err := mem.Teams().Mutate(ctx, team.ID, func(tm *models.Team) error {
			tm.Registered = true
			return nil
		}); err != nil {
			t.Fatalf("mark registered: %v", err)
		}
		if _, err := svc.Leave(ctx, "carol@x.com", models.HackathonEventID); !errors.Is(err, ErrTeamLocked) {
			t.Errorf("err = %v, want ErrTeamLocked", err)
		}
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	team := buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com", "bob@x.com", "carol@x.com")

	t.Run("only the leader", func(t *testing.T) {
		if _, err := svc.Remove(ctx, "bob@x.com", models.HackathonEventID, team.ID, "carol@x.com"); !errors.Is(err, ErrNotLeader) {
			t.Errorf("err = %v, want ErrNotLeader", err)
		}
	})

	t.Run("leader cannot remove self", func(t *testing.T) {
		if _, err := svc.Remove(ctx, "alice@x.com", models.HackathonEventID, team.ID, "alice@x.com"); !errors.Is(err, ErrLeaderCannotLeave) {
			t.Errorf("err = %v, want ErrLeaderCannotLeave", err)
		}
	})

	t.Run("unknown member", func(t *testing.T) {
		if _, err := svc.Remove(ctx, "alice@x.com", models.HackathonEventID, team.ID, "nobody@x.com"); !errors.Is(err, ErrNotMember) {
			t.Errorf("err = %v, want ErrNotMember", err)
		}
	})

	t.Run("event mismatch", func(t *testing.T) {
		if _, err := svc.Remove(ctx, "alice@x.com", "2", team.ID, "bob@x.com"); !errors.Is(err, ErrEventMismatch) {
			t.Errorf("err = %v, want ErrEventMismatch", err)
		}
	})

	updated, err := svc.Remove(ctx, "alice@x.com", models.HackathonEventID, team.ID, "bob@x.com")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if updated.HasMember("bob@x.com") || len(updated.Members) != 2 {
		t.Errorf("unexpected members after remove: %v", updated.Members)
	}
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	team := buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com", "bob@x.com")

	t.Run("only the leader", func(t *testing.T) {
		if _, err := svc.Finalize(ctx, "bob@x.com", models.HackathonEventID, team.ID); !errors.Is(err, ErrNotLeader) {
			t.Errorf("err = %v, want ErrNotLeader", err)
		}
	})

	t.Run("under minimum size", func(t *testing.T) {
		if _, err := svc.Finalize(ctx, "alice@x.com", models.HackathonEventID, team.ID); !errors.Is(err, ErrSizeOutOfRange) {
			t.Errorf("err = %v, want ErrSizeOutOfRange", err)
		}
	})

	seedProfile(t, mem, "u-carol", "carol@x.com", "Carol")
	if _, err := svc.Join(ctx, "u-carol", "carol@x.com", models.HackathonEventID, "alice@x.com"); err != nil {
		t.Fatalf("join: %v", err)
	}

	t.Run("drive link required", func(t *testing.T) {
		if _, err := svc.Finalize(ctx, "alice@x.com", models.HackathonEventID, team.ID); !errors.Is(err, ErrDriveLinkRequired) {
			t.Errorf("err = %v, want ErrDriveLinkRequired", err)
		}
	})

	if _, err := svc.SetDriveLink(ctx, "alice@x.com", models.HackathonEventID, team.ID, "https://drive.google.com/x"); err != nil {
		t.Fatalf("set drive link: %v", err)
	}
	finalized, err := svc.Finalize(ctx, "alice@x.com", models.HackathonEventID, team.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !finalized.Finalized {
		t.Error("team should be finalized")
	}

	t.Run("repeat finalize is a no-op", func(t *testing.T) {
		again, err := svc.Finalize(ctx, "alice@x.com", models.HackathonEventID, team.ID)
		if err != nil {
			t.Fatalf("second finalize: %v", err)
		}
		if !again.Finalized {
			t.Error("team should stay finalized")
		}
	})
}

func TestSetDriveLinkRejectedAfterRegistration(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	team := buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com", "bob@x.com", "carol@x.com")
	if _, err := mem.Teams().Mutate(ctx, team.ID, func(tm *models.Team) error {
		tm.Registered = true
		return nil
	}); err != nil {
		t.Fatalf("mark registered: %v", err)
	}
	if _, err := svc.SetDriveLink(ctx, "alice@x.com", models.HackathonEventID, team.ID, "https://drive.google.com/y"); !errors.Is(err, ErrTeamLocked) {
		t.Errorf("err = %v, want ErrTeamLocked", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	team := buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com", "bob@x.com")

	t.Run("only the leader", func(t *testing.T) {
		if err := svc.Delete(ctx, "bob@x.com", models.HackathonEventID, team.ID); !errors.Is(err, ErrNotLeader) {
			t.Errorf("err = %v, want ErrNotLeader", err)
		}
	})

	t.Run("not while members remain", func(t *testing.T) {
		if err := svc.Delete(ctx, "alice@x.com", models.HackathonEventID, team.ID); !errors.Is(err, ErrTeamNotEmpty) {
			t.Errorf("err = %v, want ErrTeamNotEmpty", err)
		}
	})

	if _, err := svc.Leave(ctx, "bob@x.com", models.HackathonEventID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	t.Run("not after registration", func(t *testing.T) {
		if _, err := mem.Teams().Mutate(ctx, team.ID, func(tm *models.Team) error {
			tm.Registered = true
			return nil
		}); err != nil {
			t.Fatalf("mark registered: %v", err)
		}
		if err := svc.Delete(ctx, "alice@x.com", models.HackathonEventID, team.ID); !errors.Is(err, ErrTeamLocked) {
			t.Errorf("err = %v, want ErrTeamLocked", err)
		}
		if _, err := mem.Teams().Mutate(ctx, team.ID, func(tm *models.Team) error {
			tm.Registered = false
			return nil
		}); err != nil {
			t.Fatalf("unmark registered: %v", err)
		}
	})

	if err := svc.Delete(ctx, "alice@x.com", models.HackathonEventID, team.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := mem.Teams().Get(ctx, team.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("team should be gone, got %v", err)
	}

	t.Run("leader can create again", func(t *testing.T) {
		if _, err := svc.Create(ctx, "uid-alice@x.com", "alice@x.com", models.HackathonEventID, "Fresh"); err != nil {
			t.Errorf("create after delete: %v", err)
		}
	})
}

func TestMyTeam(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	got, err := svc.MyTeam(ctx, "alice@x.com", models.HackathonEventID)
	if err != nil {
		t.Fatalf("my team: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil team, got %+v", got)
	}

	team := buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com", "bob@x.com")
	for _, email := range []string{"alice@x.com", "bob@x.com"} {
		got, err := svc.MyTeam(ctx, email, models.HackathonEventID)
		if err != nil {
			t.Fatalf("my team for %s: %v", email, err)
		}
		if got == nil || got.ID != team.ID {
			t.Errorf("my team for %s = %+v, want team %s", email, got, team.ID)
		}
	}
}

// TestConcurrentJoinsRespectCapacity races many joiners against one team and
// checks the capacity bound holds: exactly max-1 of them get in.
func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	team := buildTeam(t, svc, mem, models.HackathonEventID, "alice@x.com")

	const joiners = 10
	for i := 0; i < joiners; i++ {
		email := fmt.Sprintf("user%d@x.com", i)
		seedProfile(t, mem, "uid-"+email, email, "User")
	}

	var wg sync.WaitGroup
	var joined, full int32
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("user%d@x.com", i)
			_, err := svc.Join(ctx, "uid-"+email, email, models.HackathonEventID, "alice@x.com")
			switch {
			case err == nil:
				atomic.AddInt32(&joined, 1)
			case errors.Is(err, ErrTeamFull):
				atomic.AddInt32(&full, 1)
			default:
				t.Errorf("join %s: %v", email, err)
			}
		}(i)
	}
	wg.Wait()

	if joined != 3 {
		t.Errorf("joined = %d, want 3 (leader plus three fills the team)", joined)
	}
	if joined+full != joiners {
		t.Errorf("joined+full = %d, want %d", joined+full, joiners)
	}
	final, err := mem.Teams().Get(ctx, team.ID)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if len(final.Members) != 4 {
		t.Errorf("members = %d, capacity bound violated", len(final.Members))
	}
}
