package mqtt

import (
	"encoding/json"
	"time"
)

// statusPayload is the body of the retained service status topic and the
// LWT. Reason is set for offline statuses only.
type statusPayload struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// scenePayload announces an applied scene change.
type scenePayload struct {
	Scene     string `json:"scene"`
	Actions   int    `json:"actions"`
	Timestamp string `json:"timestamp"`
}

// sessionPayload announces an endpoint session state change.
type sessionPayload struct {
	Endpoint  string `json:"endpoint"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

func statusBody(status, clientID, reason string) []byte {
	body, _ := json.Marshal(statusPayload{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return body
}

// PublishSceneChange announces that a scene's mute state has been applied,
// with the number of commands it took.
func (c *Client) PublishSceneChange(scene string, actions int) error {
	body, err := json.Marshal(scenePayload{
		Scene:     scene,
		Actions:   actions,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return c.Publish(c.topics.SceneEvent(), body, byte(c.cfg.QoS), false)
}

// PublishSessionState announces an endpoint session transition, e.g.
// ("mixer", "connected") or ("obs", "disconnected").
func (c *Client) PublishSessionState(endpoint, state string) error {
	body, err := json.Marshal(sessionPayload{
		Endpoint:  endpoint,
		State:     state,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return c.Publish(c.topics.SessionEvent(), body, byte(c.cfg.QoS), false)
}
