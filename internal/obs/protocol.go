package obs

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// rpcVersion is the obs-websocket RPC version this client speaks.
const rpcVersion = 1

// Websocket message opcodes.
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opEvent           = 5
	opRequest         = 6
	opRequestResponse = 7
)

// Event subscription bits for the Identify message.
const (
	subGeneral = 1 << 0
	subScenes  = 1 << 2
)

// Close codes the server uses to reject an Identify.
const (
	closeAuthFailed     = 4009
	closeUnsupportedRPC = 4010
)

// Event names the read loop dispatches on.
const (
	eventSceneChanged = "CurrentProgramSceneChanged"
	eventExitStarted  = "ExitStarted"
)

// envelope is the outer frame of every obs-websocket message.
type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

func encodeEnvelope(op int, d any) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal op %d: %w", ErrProtocol, op, err)
	}
	return json.Marshal(envelope{Op: op, D: data})
}

// helloData is the server's opening message. Authentication is present only
// when the server has a password configured.
type helloData struct {
	ObsWebSocketVersion string `json:"obsWebSocketVersion"`
	RPCVersion          int    `json:"rpcVersion"`
	Authentication      *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

type identifyData struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

type identifiedData struct {
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

type eventData struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData"`
}

type sceneChangedEvent struct {
	SceneName string `json:"sceneName"`
}

type requestData struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData,omitempty"`
}

type requestResponseData struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData"`
}

// Version is the subset of a GetVersion response shown in the startup
// banner.
type Version struct {
	OBSVersion       string `json:"obsVersion"`
	WebSocketVersion string `json:"obsWebSocketVersion"`
	Platform         string `json:"platform"`
}

// authToken computes the Identify authentication string:
// base64(sha256(base64(sha256(password + salt)) + challenge)).
func authToken(password, salt, challenge string) string {
	secret := hashb64(password + salt)
	return hashb64(secret + challenge)
}

func hashb64(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}
