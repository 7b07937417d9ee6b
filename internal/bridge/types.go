package bridge

import (
	"fmt"
	"sort"
)

// ChannelID identifies one input strip on the mixing console.
// Channel numbering is 1-based, matching the console's own labelling.
type ChannelID int

// SceneName identifies a switcher scene. Case-sensitive, never empty.
type SceneName string

// SceneMap maps each scene to the channels that should be unmuted while it
// is the program scene. Scenes absent from the map mean "mute everything".
// The map is built once from configuration and never mutated afterwards.
type SceneMap map[SceneName][]ChannelID

// Universe returns the full ascending channel range 1..count.
func Universe(count int) []ChannelID {
	chs := make([]ChannelID, count)
	for i := range chs {
		chs[i] = ChannelID(i + 1)
	}
	return chs
}

// Validate checks that every channel referenced by the map is resolvable
// within a console of channelCount strips. Called once at startup; the scene
// map is immutable afterwards so this never needs re-checking.
func (m SceneMap) Validate(channelCount int) error {
	for scene, channels := range m {
		if scene == "" {
			return fmt.Errorf("scene map: empty scene name")
		}
		for _, ch := range channels {
			if ch < 1 || int(ch) > channelCount {
				return fmt.Errorf("scene map: scene %q references channel %d outside mixer range 1..%d",
					scene, ch, channelCount)
			}
		}
	}
	return nil
}

// Action is a single imperative mute instruction for one channel.
// Immutable once constructed; each action is submitted to the mixer exactly
// once.
type Action struct {
	Channel ChannelID
	Mute    bool
}

func (a Action) String() string {
	verb := "unmute"
	if a.Mute {
		verb = "mute"
	}
	return fmt.Sprintf("%s(%d)", verb, a.Channel)
}

// MixerState is the bridge's belief about which channels are currently
// unmuted. It is either known (an exact set) or unknown (after a reconnect
// or a failed submission), in which case the next reconciliation performs a
// full resync instead of a diff.
//
// MixerState is owned by the Bridge run loop and is never shared across
// goroutines.
type MixerState struct {
	known   bool
	unmuted map[ChannelID]struct{}
}

// UnknownState returns a MixerState with no knowledge of the console.
func UnknownState() MixerState {
	return MixerState{}
}

// KnownState returns a MixerState asserting exactly the given channels are
// unmuted.
func KnownState(unmuted ...ChannelID) MixerState {
	set := make(map[ChannelID]struct{}, len(unmuted))
	for _, ch := range unmuted {
		set[ch] = struct{}{}
	}
	return MixerState{known: true, unmuted: set}
}

// Known reports whether the state reflects a confirmed console state.
func (s MixerState) Known() bool { return s.known }

// IsUnmuted reports whether the channel is believed unmuted.
// Only meaningful when Known() is true.
func (s MixerState) IsUnmuted(ch ChannelID) bool {
	_, ok := s.unmuted[ch]
	return ok
}

// Unmuted returns the believed-unmuted channels in ascending order.
func (s MixerState) Unmuted() []ChannelID {
	chs := make([]ChannelID, 0, len(s.unmuted))
	for ch := range s.unmuted {
		chs = append(chs, ch)
	}
	sort.Slice(chs, func(i, j int) bool { return chs[i] < chs[j] })
	return chs
}
