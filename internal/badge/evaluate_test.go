package badge

import (
	"testing"

	"github.com/mhollis/chorequest/internal/model"
)

func findBadge(t *testing.T, code string) model.Badge {
	t.Helper()
	b := Lookup(code)
	if b == nil {
		t.Fatalf("badge %q not in catalog", code)
	}
	return *b
}

func TestThresholdExactness(t *testing.T) {
	taskMaster := findBadge(t, "task-master")
	superAchiever := findBadge(t, "super-achiever")

	at10 := Stats{CompletedTasks: 10}
	if !Eligible(taskMaster, at10) {
		t.Error("10 completions should earn Task Master")
	}
	if Eligible(superAchiever, at10) {
		t.Error("10 completions should not earn Super Achiever")
	}

	at9 := Stats{CompletedTasks: 9}
	if Eligible(taskMaster, at9) {
		t.Error("9 completions should not earn Task Master")
	}
	if Eligible(superAchiever, at9) {
		t.Error("9 completions should not earn Super Achiever")
	}

	at50 := Stats{CompletedTasks: 50}
	if !Eligible(superAchiever, at50) {
		t.Error("50 completions should earn Super Achiever")
	}
}

func TestStreakAndPointBadges(t *testing.T) {
	if !Eligible(findBadge(t, "week-warrior"), Stats{CurrentStreak: 7}) {
		t.Error("7-day streak should earn Week Warrior")
	}
	if Eligible(findBadge(t, "week-warrior"), Stats{CurrentStreak: 6}) {
		t.Error("6-day streak should not earn Week Warrior")
	}
	if !Eligible(findBadge(t, "pocket-money"), Stats{LifetimePoints: 100}) {
		t.Error("100 points should earn Pocket Money")
	}
}

func TestSpecialBadges(t *testing.T) {
	if !Eligible(findBadge(t, "early-bird"), Stats{MorningCompletions: 5}) {
		t.Error("5 morning completions should earn Early Bird")
	}
	if Eligible(findBadge(t, "early-bird"), Stats{CompletedTasks: 5}) {
		t.Error("plain completions must not stand in for morning completions")
	}
	if !Eligible(findBadge(t, "night-owl"), Stats{NightCompletions: 5}) {
		t.Error("5 night completions should earn Night Owl")
	}
	if !Eligible(findBadge(t, "perfect-week"), Stats{CurrentStreak: 7}) {
		t.Error("7-day streak should earn Perfect Week")
	}
	if Eligible(findBadge(t, "perfect-week"), Stats{CurrentStreak: 6}) {
		t.Error("6-day streak should not earn Perfect Week")
	}
}

func TestEvaluateSkipsEarned(t *testing.T) {
	stats := Stats{CompletedTasks: 10, CurrentStreak: 3, LifetimePoints: 100}
	earned := map[string]bool{"first-step": true, "task-master": true}

	got := Evaluate(stats, earned)
	for _, b := range got {
		if earned[b.Code] {
			t.Errorf("already-earned badge %q re-awarded", b.Code)
		}
	}

	codes := make(map[string]bool, len(got))
	for _, b := range got {
		codes[b.Code] = true
	}
	for _, want := range []string{"on-a-roll", "pocket-money"} {
		if !codes[want] {
			t.Errorf("expected %q in %v", want, codes)
		}
	}
}

func TestCatalogCodesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, b := range Catalog {
		if seen[b.Code] {
			t.Errorf("duplicate badge code %q", b.Code)
		}
		seen[b.Code] = true
	}
}
