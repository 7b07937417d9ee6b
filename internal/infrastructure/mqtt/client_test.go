package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/graystream/scenemix/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "scenemix-test",
		},
		QoS:         1,
		TopicPrefix: "scenemix",
	}
}

func TestNewTopics(t *testing.T) {
	topics := NewTopics("studio/scenemix")
	if got := topics.Status(); got != "studio/scenemix/status" {
		t.Errorf("Status() = %q", got)
	}
	if got := topics.SceneEvent(); got != "studio/scenemix/event/scene" {
		t.Errorf("SceneEvent() = %q", got)
	}
	if got := topics.SessionEvent(); got != "studio/scenemix/event/session" {
		t.Errorf("SessionEvent() = %q", got)
	}

	fallback := NewTopics("")
	if got := fallback.Status(); got != "scenemix/status" {
		t.Errorf("default Status() = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "viewer"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers = %v, want one broker", opts.Servers)
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q", got)
	}
	if opts.ClientID != "scenemix-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "viewer" {
		t.Errorf("Username = %q", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be enabled")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Fatal("TLSConfig not set")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	configureLWT(opts, NewTopics("scenemix"), "scenemix-test")

	if !opts.WillEnabled {
		t.Fatal("will not enabled")
	}
	if opts.WillTopic != "scenemix/status" {
		t.Errorf("will topic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("will should be retained")
	}

	var payload statusPayload
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if payload.Status != "offline" {
		t.Errorf("will status = %q, want offline", payload.Status)
	}
	if payload.Reason != "unexpected_disconnect" {
		t.Errorf("will reason = %q", payload.Reason)
	}
}

func TestStatusBody(t *testing.T) {
	var payload statusPayload
	if err := json.Unmarshal(statusBody("online", "scenemix-test", ""), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Status != "online" || payload.ClientID != "scenemix-test" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Reason != "" {
		t.Errorf("online status should carry no reason, got %q", payload.Reason)
	}
	if _, err := time.Parse(time.RFC3339, payload.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", payload.Timestamp, err)
	}
}

// disconnectedClient builds a Client that was never connected, for
// exercising validation without a broker.
func disconnectedClient() *Client {
	cfg := testConfig()
	return &Client{
		client:  pahomqtt.NewClient(buildClientOptions(cfg)),
		cfg:     cfg,
		topics:  NewTopics(cfg.TopicPrefix),
		localID: cfg.Broker.ClientID,
	}
}

func TestPublish_Validation(t *testing.T) {
	c := disconnectedClient()

	if err := c.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic err = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("t", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos err = %v, want ErrInvalidQoS", err)
	}
	big := []byte(strings.Repeat("x", maxPayloadSize+1))
	if err := c.Publish("t", big, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversize err = %v, want ErrPublishFailed", err)
	}
	if err := c.Publish("t", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected err = %v, want ErrNotConnected", err)
	}
}

func TestPublishSceneChange_RequiresConnection(t *testing.T) {
	c := disconnectedClient()
	if err := c.PublishSceneChange("Main", 4); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestPublishSessionState_RequiresConnection(t *testing.T) {
	c := disconnectedClient()
	if err := c.PublishSessionState("mixer", "connected"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}
