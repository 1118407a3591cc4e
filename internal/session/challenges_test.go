package session

import (
	"context"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/store/memory"
)

func TestChallengesGenerateWeeklyIdempotent(t *testing.T) {
	s, _ := testSession(t, "user-1")

	first, err := s.Challenges.GenerateWeekly(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first.Status != core.StatusPending {
		t.Fatalf("generated status = %q, want pending", first.Status)
	}
	if first.Week != s.Challenges.CurrentWeek() {
		t.Fatalf("generated week = %q, want %q", first.Week, s.Challenges.CurrentWeek())
	}

	second, err := s.Challenges.GenerateWeekly(context.Background())
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("second generate should return the existing challenge")
	}
	if got := s.Challenges.ByWeek(first.Week); len(got) != 1 {
		t.Fatalf("week %q has %d challenges, want exactly 1", first.Week, len(got))
	}
}

func TestChallengesGenerateDrawsFromPool(t *testing.T) {
	s, _ := testSession(t, "user-1", WithRand(func(n int) int { return n - 1 }))

	ch, err := s.Challenges.GenerateWeekly(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ch.Description != weeklySuggestions[len(weeklySuggestions)-1] {
		t.Fatalf("unexpected description %q", ch.Description)
	}
}

func TestChallengesUpdateStatusCompleted(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	s, _ := testSession(t, "user-1", WithClock(func() time.Time { return now }))

	ch, err := s.Challenges.GenerateWeekly(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	accepted, err := s.Challenges.UpdateStatus(context.Background(), ch.ID, core.StatusAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.CompletedAt != nil {
		t.Fatal("accepting must not stamp completion")
	}

	completed, err := s.Challenges.UpdateStatus(context.Background(), ch.ID, core.StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.CompletedAt == nil || !completed.CompletedAt.Equal(now) {
		t.Fatalf("completion stamp = %v, want %v", completed.CompletedAt, now)
	}

	// Current-week pointer reflects the completed state.
	current := s.Challenges.CurrentWeekChallenge()
	if current == nil {
		t.Fatal("current-week challenge missing")
	}
	if current.Status != core.StatusCompleted || current.CompletedAt == nil {
		t.Fatalf("pointer not refreshed: %+v", current)
	}
}

func TestChallengesUpdateStatusInvalid(t *testing.T) {
	s, _ := testSession(t, "user-1")
	ch, _ := s.Challenges.GenerateWeekly(context.Background())

	if _, err := s.Challenges.UpdateStatus(context.Background(), ch.ID, "abandoned"); err == nil {
		t.Fatal("unknown status should be rejected")
	}
	if _, err := s.Challenges.UpdateStatus(context.Background(), "missing-id", core.StatusAccepted); err == nil {
		t.Fatal("unknown id should be rejected")
	}
}

func TestChallengesByWeek(t *testing.T) {
	s, _ := testSession(t, "user-1")

	old, err := s.Challenges.Add(context.Background(), "Desafio antigo", core.StatusCompleted, "2023-07")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.Challenges.GenerateWeekly(context.Background()); err != nil {
		t.Fatalf("generate: %v", err)
	}

	got := s.Challenges.ByWeek("2023-07")
	if len(got) != 1 || got[0].ID != old.ID {
		t.Fatalf("ByWeek returned %d records, want only the old one", len(got))
	}
}

func TestChallengesCurrentPointerAfterReload(t *testing.T) {
	mem := memory.New()
	s := New(mem.Stores(), nil, "user-1")
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	generated, err := s.Challenges.GenerateWeekly(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// A fresh session over the same store finds the pointer on reload.
	fresh := New(mem.Stores(), nil, "user-1")
	if err := fresh.Reload(context.Background()); err != nil {
		t.Fatalf("fresh reload: %v", err)
	}
	current := fresh.Challenges.CurrentWeekChallenge()
	if current == nil || current.ID != generated.ID {
		t.Fatal("current-week pointer not restored on reload")
	}
}

func TestChallengesDeleteClearsPointer(t *testing.T) {
	s, _ := testSession(t, "user-1")
	ch, _ := s.Challenges.GenerateWeekly(context.Background())

	if err := s.Challenges.Delete(context.Background(), ch.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Challenges.CurrentWeekChallenge() != nil {
		t.Fatal("pointer should clear when its record is deleted")
	}
}
