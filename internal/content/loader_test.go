package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/policechief/server/internal/platform/logger"
)

const (
	repoDataDir   = "../../data"
	repoSchemaDir = "../../schemas"
)

func TestLoadShippedPacks(t *testing.T) {
	l := NewLoader(repoDataDir, repoSchemaDir, logger.NewLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := l.Current()
	if snap == nil {
		t.Fatal("Current returned nil after successful Load")
	}

	if len(snap.Missions) == 0 || len(snap.Vehicles) == 0 || len(snap.Districts) == 0 {
		t.Errorf("incomplete snapshot: %d missions, %d vehicles, %d districts",
			len(snap.Missions), len(snap.Vehicles), len(snap.Districts))
	}

	m, ok := snap.GetMission("noise_complaint")
	if !ok {
		t.Fatal("noise_complaint missing from mission pack")
	}
	if m.District != "downtown" {
		t.Errorf("noise_complaint district = %q, want downtown", m.District)
	}

	if _, ok := snap.GetDistrict("downtown"); !ok {
		t.Error("starting district downtown missing from district pack")
	}
	if _, ok := snap.GetPolicy("chase_the_money"); !ok {
		t.Error("chase_the_money missing from policy pack")
	}

	if len(snap.MissionOrder) != len(snap.Missions) {
		t.Errorf("MissionOrder has %d entries, want %d", len(snap.MissionOrder), len(snap.Missions))
	}
}

func TestLoadRejectsInvalidPack(t *testing.T) {
	dir := t.TempDir()
	bad := `{"missions": [{"id": "broken", "name": "Broken"}]}`
	if err := os.WriteFile(filepath.Join(dir, "missions_bad.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir, repoSchemaDir, logger.NewLogger())
	if err := l.Load(); err == nil {
		t.Fatal("Load accepted a pack missing required mission fields")
	}
	if l.Current() != nil {
		t.Error("failed Load published a snapshot")
	}
}

func TestReloadKeepsPreviousSnapshotOnError(t *testing.T) {
	dir := t.TempDir()
	good := `{"missions": [{
		"id": "test_call", "name": "Test Call", "district": "downtown",
		"required_vehicle_types": ["patrol"], "required_staff_types": ["officer"],
		"base_reward": 50, "base_duration": 10, "base_success_chance": 80, "fuel_cost": 5
	}]}`
	packPath := filepath.Join(dir, "missions_test.json")
	if err := os.WriteFile(packPath, []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir, repoSchemaDir, logger.NewLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("initial Load failed: %v", err)
	}
	first := l.Current()

	if err := os.WriteFile(packPath, []byte(`{"missions": [{"id":`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.Load(); err == nil {
		t.Fatal("Load accepted truncated JSON")
	}
	if l.Current() != first {
		t.Error("failed reload swapped the active snapshot")
	}
}

func TestMissionsForDistrictFiltersByLevel(t *testing.T) {
	l := NewLoader(repoDataDir, repoSchemaDir, logger.NewLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	snap := l.Current()

	level1 := snap.MissionsForDistrict("downtown", 1)
	for _, m := range level1 {
		if m.MinStationLevel > 1 {
			t.Errorf("mission %s requires level %d but was returned at level 1", m.ID, m.MinStationLevel)
		}
	}

	level2 := snap.MissionsForDistrict("downtown", 2)
	if len(level2) <= len(level1) {
		t.Errorf("level 2 should open more downtown missions: %d vs %d", len(level2), len(level1))
	}
}
