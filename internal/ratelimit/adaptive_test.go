package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func TestAdaptiveReducesOnErrors(t *testing.T) {
	a := NewAdaptive(100, time.Minute)
	a.SetSampleSize(10)

	for i := 0; i < 7; i++ {
		a.RecordError()
	}
	for i := 0; i < 3; i++ {
		a.RecordSuccess()
	}

	if got := a.CurrentMax(); got != 50 {
		t.Errorf("CurrentMax after 70%% errors = %d, want 50", got)
	}

	// Counters must reset after the evaluation; nine more outcomes should
	// not trigger another adaptation.
	for i := 0; i < 9; i++ {
		a.RecordError()
	}
	if got := a.CurrentMax(); got != 50 {
		t.Errorf("CurrentMax before next full sample = %d, want 50", got)
	}
}

func TestAdaptiveIncreasesOnSuccess(t *testing.T) {
	a := NewAdaptive(100, time.Minute)
	a.SetSampleSize(10)

	// Drop to 50 first.
	for i := 0; i < 10; i++ {
		a.RecordError()
	}
	if got := a.CurrentMax(); got != 50 {
		t.Fatalf("CurrentMax after all-error sample = %d, want 50", got)
	}

	// A clean sample grows capacity by 1.5x.
	for i := 0; i < 10; i++ {
		a.RecordSuccess()
	}
	if got := a.CurrentMax(); got != 75 {
		t.Errorf("CurrentMax after clean sample = %d, want 75", got)
	}

	// Growth is capped at the initial ceiling.
	for i := 0; i < 20; i++ {
		a.RecordSuccess()
	}
	if got := a.CurrentMax(); got != 100 {
		t.Errorf("CurrentMax after repeated clean samples = %d, want 100", got)
	}
}

func TestAdaptiveDeadZone(t *testing.T) {
	a := NewAdaptive(100, time.Minute)
	a.SetSampleSize(10)

	// 10% error rate sits between the thresholds: no change either way.
	for i := 0; i < 9; i++ {
		a.RecordSuccess()
	}
	a.RecordError()

	if got := a.CurrentMax(); got != 100 {
		t.Errorf("CurrentMax after dead-zone sample = %d, want 100", got)
	}
}

func TestAdaptiveFloor(t *testing.T) {
	a := NewAdaptive(100, time.Minute)
	a.SetSampleSize(10)

	// Keep failing; capacity halves until it hits initial/10.
	for round := 0; round < 6; round++ {
		for i := 0; i < 10; i++ {
			a.RecordError()
		}
	}

	if got := a.CurrentMax(); got != 10 {
		t.Errorf("CurrentMax after sustained errors = %d, want floor 10", got)
	}
}

func TestAdaptiveFloorMinimumOne(t *testing.T) {
	a := NewAdaptive(5, time.Minute)
	a.SetSampleSize(4)

	for round := 0; round < 5; round++ {
		for i := 0; i < 4; i++ {
			a.RecordError()
		}
	}

	if got := a.CurrentMax(); got < 1 {
		t.Errorf("CurrentMax = %d, must never drop below 1", got)
	}
}

func TestAdaptiveDelegatesToRebuiltLimiter(t *testing.T) {
	a := NewAdaptive(20, time.Minute)
	a.SetSampleSize(10)

	for i := 0; i < 10; i++ {
		a.RecordError()
	}
	// Capacity is now 10; exactly 10 admissions should pass.
	allowed := 0
	for i := 0; i < 20; i++ {
		if a.IsAllowed() {
			allowed++
		}
	}
	if allowed != 10 {
		t.Errorf("admitted %d requests at adapted capacity, want 10", allowed)
	}
}

func TestRegistryAllowAndDeny(t *testing.T) {
	reg := NewRegistry(map[string]Policy{
		"test": {MaxRequests: 2, Window: time.Minute},
	})

	if err := reg.Allow("test"); err != nil {
		t.Fatalf("first Allow: %v", err)
	}
	if err := reg.Allow("test"); err != nil {
		t.Fatalf("second Allow: %v", err)
	}

	err := reg.Allow("test")
	if err == nil {
		t.Fatal("third Allow should be denied")
	}

	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("denial should be *DeniedError, got %T", err)
	}
	if denied.Key != "test" {
		t.Errorf("denied.Key = %q, want %q", denied.Key, "test")
	}
	if denied.Wait <= 0 {
		t.Errorf("denied.Wait = %v, want > 0", denied.Wait)
	}
}

func TestRegistryUnknownKeyFallsBack(t *testing.T) {
	reg := NewRegistry(nil)

	if reg.Limiter("nonsense") != reg.Limiter(KeyDefault) {
		t.Error("unknown key should resolve to the default limiter")
	}
}

func TestRegistryDefaultsAndOverrides(t *testing.T) {
	reg := NewRegistry(map[string]Policy{
		KeySearch: {MaxRequests: 99, Window: time.Hour},
	})

	if p := reg.Policy(KeySearch); p.MaxRequests != 99 {
		t.Errorf("search policy MaxRequests = %d, want override 99", p.MaxRequests)
	}
	if p := reg.Policy(KeyInstall); p.MaxRequests != 5 || p.Window != 5*time.Minute {
		t.Errorf("install policy = %+v, want stock (5, 5m)", p)
	}
}

func TestRegistryReset(t *testing.T) {
	reg := NewRegistry(map[string]Policy{
		"a": {MaxRequests: 1, Window: time.Minute},
		"b": {MaxRequests: 1, Window: time.Minute},
	})

	reg.Allow("a")
	reg.Allow("b")

	reg.Reset("a")
	if err := reg.Allow("a"); err != nil {
		t.Errorf("a after reset: %v", err)
	}
	if err := reg.Allow("b"); err == nil {
		t.Error("b should still be exhausted")
	}

	reg.Reset("")
	if err := reg.Allow("b"); err != nil {
		t.Errorf("b after full reset: %v", err)
	}
}
