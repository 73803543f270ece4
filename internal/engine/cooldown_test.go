package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/policechief/server/internal/domain/profile"
)

func TestCooldownReserveAndExpiry(t *testing.T) {
	var tracker CooldownTracker
	u := profile.NewUnit("patrol_car", profile.KindVehicle)
	now := time.Now()

	if !tracker.IsAvailable(u, now) {
		t.Fatal("fresh unit should be available")
	}

	until, err := tracker.Reserve(u, now, 40*time.Minute)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if want := now.Add(40 * time.Minute); !until.Equal(want) {
		t.Errorf("available at %s, want %s", until, want)
	}

	if tracker.IsAvailable(u, now.Add(39*time.Minute)) {
		t.Error("unit available before cooldown expires")
	}
	if !tracker.IsAvailable(u, now.Add(40*time.Minute)) {
		t.Error("unit still unavailable at expiry")
	}
}

func TestCooldownDoubleReserve(t *testing.T) {
	var tracker CooldownTracker
	u := profile.NewUnit("patrol_car", profile.KindVehicle)
	now := time.Now()

	if _, err := tracker.Reserve(u, now, time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	_, err := tracker.Reserve(u, now, time.Hour)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("double reserve returned %v, want ErrInvalidState", err)
	}
}

func TestCooldownNegativeDuration(t *testing.T) {
	var tracker CooldownTracker
	u := profile.NewUnit("patrol_car", profile.KindVehicle)

	_, err := tracker.Reserve(u, time.Now(), -time.Minute)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("negative duration returned %v, want ErrInvalidState", err)
	}
}

func TestCooldownRelease(t *testing.T) {
	var tracker CooldownTracker
	u := profile.NewUnit("patrol_car", profile.KindVehicle)
	now := time.Now()

	if _, err := tracker.Reserve(u, now, time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	tracker.Release(u)
	if !tracker.IsAvailable(u, now) {
		t.Error("released unit should be immediately available")
	}
}
