package bridge

import (
	"reflect"
	"testing"
)

// applyActions replays an action list onto a known state and returns the
// resulting unmuted set. Used to check reconciliation outcomes.
func applyActions(start MixerState, actions []Action) map[ChannelID]struct{} {
	result := make(map[ChannelID]struct{})
	for _, ch := range start.Unmuted() {
		result[ch] = struct{}{}
	}
	for _, a := range actions {
		if a.Mute {
			delete(result, a.Channel)
		} else {
			result[a.Channel] = struct{}{}
		}
	}
	return result
}

func assertUnmutesFirst(t *testing.T, actions []Action) {
	t.Helper()
	seenMute := false
	for _, a := range actions {
		if a.Mute {
			seenMute = true
		} else if seenMute {
			t.Fatalf("unmute %v appears after a mute in %v", a, actions)
		}
	}
}

func TestReconcile_FullResyncFromUnknown(t *testing.T) {
	scenes := SceneMap{"Intro": {1, 2}}
	universe := Universe(4)

	actions := Reconcile("Intro", scenes, UnknownState(), universe)

	want := []Action{
		{Channel: 1, Mute: false},
		{Channel: 2, Mute: false},
		{Channel: 3, Mute: true},
		{Channel: 4, Mute: true},
	}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("Reconcile() = %v, want %v", actions, want)
	}

	// Resync covers every channel exactly once.
	seen := make(map[ChannelID]int)
	for _, a := range actions {
		seen[a.Channel]++
	}
	for _, ch := range universe {
		if seen[ch] != 1 {
			t.Errorf("channel %d covered %d times, want exactly once", ch, seen[ch])
		}
	}
}

func TestReconcile_MinimalDiffFromKnown(t *testing.T) {
	scenes := SceneMap{
		"Intro": {1, 2},
		"Main":  {1, 2, 3, 4},
	}
	universe := Universe(4)

	// After Intro, channels 1 and 2 are open. Switching to Main should only
	// open 3 and 4.
	actions := Reconcile("Main", scenes, KnownState(1, 2), universe)

	want := []Action{
		{Channel: 3, Mute: false},
		{Channel: 4, Mute: false},
	}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("Reconcile() = %v, want %v", actions, want)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	scenes := SceneMap{"Main": {1, 2, 3}}
	universe := Universe(8)

	// State already matches the scene: zero actions.
	actions := Reconcile("Main", scenes, KnownState(1, 2, 3), universe)
	if len(actions) != 0 {
		t.Errorf("reconciling into matching state produced %v, want none", actions)
	}
}

func TestReconcile_UnconfiguredSceneMutesEverything(t *testing.T) {
	scenes := SceneMap{"Intro": {1, 2}}
	universe := Universe(4)

	// "BRB" has no entry: mute all currently-open channels.
	actions := Reconcile("BRB", scenes, KnownState(1, 2), universe)

	want := []Action{
		{Channel: 1, Mute: true},
		{Channel: 2, Mute: true},
	}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("Reconcile() = %v, want %v", actions, want)
	}

	// Same result as a scene explicitly configured empty.
	scenes["Empty"] = nil
	explicit := Reconcile("Empty", scenes, KnownState(1, 2), universe)
	if !reflect.DeepEqual(actions, explicit) {
		t.Errorf("unconfigured scene %v != empty-configured scene %v", actions, explicit)
	}
}

func TestReconcile_OrderingAndOutcome(t *testing.T) {
	scenes := SceneMap{
		"A": {1, 2},
		"B": {2, 3, 5},
		"C": nil,
		"D": {1, 2, 3, 4, 5, 6},
	}
	universe := Universe(6)

	states := map[string]MixerState{
		"unknown":    UnknownState(),
		"empty":      KnownState(),
		"partial":    KnownState(1, 4),
		"everything": KnownState(1, 2, 3, 4, 5, 6),
	}

	for scene := range scenes {
		for name, state := range states {
			actions := Reconcile(scene, scenes, state, universe)
			assertUnmutesFirst(t, actions)

			// Applying the actions must land exactly on the wanted set.
			got := applyActions(state, actions)
			want := make(map[ChannelID]struct{})
			for _, ch := range scenes[scene] {
				want[ch] = struct{}{}
			}
			// From unknown state the start set is empty but the resync
			// touches every channel, so the outcome is still exact.
			if !reflect.DeepEqual(got, want) {
				t.Errorf("scene %q from %s: applied set %v, want %v", scene, name, got, want)
			}

			// Minimality: from a known state every action changes state.
			if state.Known() {
				for _, a := range actions {
					if a.Mute != state.IsUnmuted(a.Channel) {
						t.Errorf("scene %q from %s: action %v is a no-op", scene, name, a)
					}
				}
			}
		}
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	scenes := SceneMap{"A": {5, 1, 3}}
	universe := Universe(6)

	first := Reconcile("A", scenes, UnknownState(), universe)
	for i := 0; i < 10; i++ {
		if again := Reconcile("A", scenes, UnknownState(), universe); !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic result: %v then %v", first, again)
		}
	}

	// Ascending channel order within each group.
	for i := 1; i < len(first); i++ {
		if first[i].Mute == first[i-1].Mute && first[i].Channel < first[i-1].Channel {
			t.Errorf("channels out of ascending order: %v", first)
		}
	}
}

func TestSceneMap_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scenes  SceneMap
		count   int
		wantErr bool
	}{
		{"valid", SceneMap{"Intro": {1, 16}}, 16, false},
		{"empty map", SceneMap{}, 16, false},
		{"channel zero", SceneMap{"Intro": {0}}, 16, true},
		{"channel above range", SceneMap{"Intro": {17}}, 16, true},
		{"empty scene name", SceneMap{"": {1}}, 16, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scenes.Validate(tt.count)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
