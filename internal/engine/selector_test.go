package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/platform/logger"
)

func newTestSelector() *Selector {
	return &Selector{MinimumBalance: 100, Logger: logger.NewLogger()}
}

func richBalance() (int, error) { return 10000, nil }

func selectorProfile(unitTypes ...string) *profile.Profile {
	p := profile.NewProfile("chief-1")
	snap := testSnapshot()
	for _, typeID := range unitTypes {
		if _, ok := snap.Vehicles[typeID]; ok {
			p.AddUnit(profile.NewUnit(typeID, profile.KindVehicle))
		} else {
			p.AddUnit(profile.NewUnit(typeID, profile.KindStaff))
		}
	}
	return p
}

func missionIDs(assignments []Assignment) []string {
	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.Mission.ID
	}
	return ids
}

func TestSelectorPicksHighestRewardFirst(t *testing.T) {
	s := newTestSelector()
	p := selectorProfile("patrol_car", "officer")
	now := time.Now()

	got, err := s.SelectDispatches(testSnapshot(), p, nil, now, 10, richBalance)
	if err != nil {
		t.Fatalf("SelectDispatches: %v", err)
	}

	// One patrol car: only one downtown mission fits, and it must be the
	// higher-paying one.
	if len(got) != 1 {
		t.Fatalf("got %d assignments, want 1", len(got))
	}
	if got[0].Mission.ID != "robbery" {
		t.Errorf("selected %s, want robbery", got[0].Mission.ID)
	}
}

func TestSelectorUnitConsumedOnce(t *testing.T) {
	s := newTestSelector()
	p := selectorProfile("patrol_car", "patrol_car", "officer", "officer")
	now := time.Now()

	got, err := s.SelectDispatches(testSnapshot(), p, nil, now, 10, richBalance)
	if err != nil {
		t.Fatalf("SelectDispatches: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %v, want two assignments", missionIDs(got))
	}
	seen := make(map[string]bool)
	for _, a := range got {
		for _, u := range a.Units {
			if seen[u.ID] {
				t.Errorf("unit %s assigned twice", u.ID)
			}
			seen[u.ID] = true
		}
	}
}

func TestSelectorSkipsLockedDistrictAndLevel(t *testing.T) {
	s := newTestSelector()
	// SWAT van and officers available, but harbor is locked and the
	// mission needs station level 2.
	p := selectorProfile("swat_van", "officer", "officer")
	now := time.Now()

	got, err := s.SelectDispatches(testSnapshot(), p, nil, now, 10, richBalance)
	if err != nil {
		t.Fatalf("SelectDispatches: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want none", missionIDs(got))
	}

	p.UnlockedDistricts = append(p.UnlockedDistricts, "harbor")
	got, err = s.SelectDispatches(testSnapshot(), p, nil, now, 10, richBalance)
	if err != nil {
		t.Fatalf("SelectDispatches: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("level-gated mission still selected: %v", missionIDs(got))
	}

	p.StationLevel = 2
	got, err = s.SelectDispatches(testSnapshot(), p, nil, now, 10, richBalance)
	if err != nil {
		t.Fatalf("SelectDispatches: %v", err)
	}
	if len(got) != 1 || got[0].Mission.ID != "smuggling_ring" {
		t.Errorf("got %v, want smuggling_ring", missionIDs(got))
	}
}

func TestSelectorPolicyFilters(t *testing.T) {
	s := newTestSelector()
	snap := testSnapshot()
	p := selectorProfile("patrol_car", "officer")
	cautious := snap.Policies["cautious"] // max reward 150

	got, err := s.SelectDispatches(snap, p, []*content.PolicyDef{cautious}, time.Now(), 10, richBalance)
	if err != nil {
		t.Fatalf("SelectDispatches: %v", err)
	}
	if len(got) != 1 || got[0].Mission.ID != "noise_complaint" {
		t.Errorf("got %v, want noise_complaint only", missionIDs(got))
	}
}

func TestSelectorBalanceGate(t *testing.T) {
	s := newTestSelector()
	p := selectorProfile("patrol_car", "officer")

	poor := func() (int, error) { return 99, nil }
	got, err := s.SelectDispatches(testSnapshot(), p, nil, time.Now(), 10, poor)
	if err != nil {
		t.Fatalf("a gated dispatch is a skip, not an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v below minimum balance, want none", missionIDs(got))
	}
}

func TestSelectorBalanceErrorAborts(t *testing.T) {
	s := newTestSelector()
	p := selectorProfile("patrol_car", "officer")

	broken := func() (int, error) { return 0, errors.New("ledger down") }
	_, err := s.SelectDispatches(testSnapshot(), p, nil, time.Now(), 10, broken)
	if err == nil {
		t.Fatal("expected error when the balance query fails")
	}
	if !IsRetryable(err) {
		t.Errorf("balance failure should be retryable, got %v", err)
	}
}

func TestSelectorRespectsDispatchCap(t *testing.T) {
	s := newTestSelector()
	p := selectorProfile("patrol_car", "patrol_car", "officer", "officer")

	got, err := s.SelectDispatches(testSnapshot(), p, nil, time.Now(), 1, richBalance)
	if err != nil {
		t.Fatalf("SelectDispatches: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d assignments with cap 1", len(got))
	}
}

func TestSelectorTieBreakKeepsCatalogOrder(t *testing.T) {
	s := newTestSelector()
	snap := testSnapshot()
	// Give both downtown missions the same reward: insertion order decides.
	snap.Missions["robbery"].BaseReward = snap.Missions["noise_complaint"].BaseReward
	p := selectorProfile("patrol_car", "officer")

	got, err := s.SelectDispatches(snap, p, nil, time.Now(), 10, richBalance)
	if err != nil {
		t.Fatalf("SelectDispatches: %v", err)
	}
	if len(got) != 1 || got[0].Mission.ID != "noise_complaint" {
		t.Errorf("got %v, want noise_complaint (catalog order)", missionIDs(got))
	}
}

func TestSelectorRoundRobinAlternatesDistricts(t *testing.T) {
	missions := []*content.MissionDef{
		{ID: "a1", District: "downtown"},
		{ID: "a2", District: "downtown"},
		{ID: "b1", District: "harbor"},
		{ID: "b2", District: "harbor"},
	}

	got := roundRobinByDistrict(missions)
	want := []string{"a1", "b1", "a2", "b2"}
	for i, m := range got {
		if m.ID != want[i] {
			t.Fatalf("round robin order = %v, want %v", missionIDs2(got), want)
		}
	}
}

func missionIDs2(missions []*content.MissionDef) []string {
	ids := make([]string, len(missions))
	for i, m := range missions {
		ids[i] = m.ID
	}
	return ids
}
