package climate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAddEntitiesAssignsIDs(t *testing.T) {
	p := NewPlatform()
	p.AddEntities([]Climate{
		newFakeClimate("uid-1", "Living Room AC"),
		newFakeClimate("uid-2", "Living Room AC"),
		newFakeClimate("uid-1", "Duplicate"),
		newFakeClimate("uid-3", "!!!"),
	})

	ids := p.EntityIDs()
	want := []string{"climate.living_room_ac", "climate.living_room_ac_2", "climate.unnamed"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d entities, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("entity %d: expected %s, got %s", i, want[i], ids[i])
		}
	}

	state, ok := p.State("climate.living_room_ac")
	if !ok {
		t.Fatalf("expected initial state to be written")
	}
	if state.State != "cool" || state.UniqueID != "uid-1" {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.Attributes.FriendlyName != "Living Room AC" {
		t.Fatalf("unexpected friendly name: %s", state.Attributes.FriendlyName)
	}
}

func TestSnapshotStates(t *testing.T) {
	entity := newFakeClimate("uid", "AC")

	entity.available = false
	if got := Snapshot("climate.ac", entity, time.Time{}).State; got != StateUnavailable {
		t.Fatalf("expected unavailable, got %s", got)
	}

	entity.available = true
	entity.mode = ""
	if got := Snapshot("climate.ac", entity, time.Time{}).State; got != StateUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}

	entity.features = FeatureTargetTemperature
	state := Snapshot("climate.ac", entity, time.Time{})
	if state.Attributes.FanModes != nil || state.Attributes.SwingModes != nil {
		t.Fatalf("fan and swing attributes must be omitted without the features: %+v", state.Attributes)
	}
	if state.Attributes.Temperature == nil || *state.Attributes.Temperature != 22 {
		t.Fatalf("unexpected target temperature: %v", state.Attributes.Temperature)
	}
}

func TestPollUpdatesAndNotifies(t *testing.T) {
	p := NewPlatform()
	polled := newFakeClimate("uid-1", "Bedroom")
	static := newFakeClimate("uid-2", "Office")
	static.poll = false
	p.AddEntities([]Climate{polled, static})

	var seen []State
	cancel := p.Subscribe(func(s State) { seen = append(seen, s) })
	defer cancel()

	p.Poll(context.Background())
	if polled.updates != 1 {
		t.Fatalf("expected 1 update, got %d", polled.updates)
	}
	if static.updates != 0 {
		t.Fatalf("non-polling entity was updated")
	}
	if len(seen) != 0 {
		t.Fatalf("unchanged state must not notify, got %d", len(seen))
	}

	polled.mode = HVACModeHeat
	polled.updateErr = errors.New("timeout")
	p.Poll(context.Background())
	if len(seen) != 1 || seen[0].State != "heat" {
		t.Fatalf("expected one heat notification, got %+v", seen)
	}

	cancel()
	polled.mode = HVACModeDry
	p.Poll(context.Background())
	if len(seen) != 1 {
		t.Fatalf("unsubscribed listener was notified")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Living Room":   "living_room",
		"  AC--Unit 2 ": "ac_unit_2",
		"Küche":         "k_che",
		"":              "unnamed",
		"already_snake": "already_snake",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
