package bridge

// Reconcile computes the ordered action list that transitions the console
// from the given state to the state newScene wants.
//
// Behaviour:
//   - A scene with no entry in the map is valid and means "mute everything".
//   - If state is unknown (post-reconnect), a full resync is produced: an
//     action for every channel in universe, so the console ends in a known
//     state regardless of what happened while it was out of sight.
//   - If state is known, only channels whose desired state differs produce
//     an action (minimality).
//   - All unmute actions precede all mute actions, each group in ascending
//     channel order. Opening the new scene's channels before silencing the
//     old ones avoids a moment of dead air during the transition.
//
// Reconcile is a pure function: no clock, no randomness, no side effects.
// Identical inputs always yield identical output.
func Reconcile(newScene SceneName, scenes SceneMap, state MixerState, universe []ChannelID) []Action {
	wanted := make(map[ChannelID]struct{})
	for _, ch := range scenes[newScene] {
		wanted[ch] = struct{}{}
	}

	var unmutes, mutes []Action
	for _, ch := range universe {
		_, want := wanted[ch]
		switch {
		case !state.Known():
			// Full resync: every channel gets an explicit state.
			if want {
				unmutes = append(unmutes, Action{Channel: ch, Mute: false})
			} else {
				mutes = append(mutes, Action{Channel: ch, Mute: true})
			}
		case want && !state.IsUnmuted(ch):
			unmutes = append(unmutes, Action{Channel: ch, Mute: false})
		case !want && state.IsUnmuted(ch):
			mutes = append(mutes, Action{Channel: ch, Mute: true})
		}
	}

	return append(unmutes, mutes...)
}
