package mqtt

import "fmt"

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "scenemix"

// Topics builds the service's MQTT topic names under one prefix.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.NewTopics("scenemix")
//	topics.Status()       // "scenemix/status"
//	topics.SceneEvent()   // "scenemix/event/scene"
//	topics.SessionEvent() // "scenemix/event/session"
type Topics struct {
	prefix string
}

// NewTopics returns a Topics rooted at prefix, falling back to the default
// when prefix is empty.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Status returns the retained service status topic. The LWT is registered
// here so observers see "offline" even after a crash.
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}

// SceneEvent returns the topic for applied scene changes.
func (t Topics) SceneEvent() string {
	return fmt.Sprintf("%s/event/scene", t.prefix)
}

// SessionEvent returns the topic for endpoint session state changes.
func (t Topics) SessionEvent() string {
	return fmt.Sprintf("%s/event/session", t.prefix)
}
