package mixer

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// fakeConsole is a loopback UDP stand-in for an XAir console.
type fakeConsole struct {
	t    *testing.T
	pc   net.PacketConn
	mu   sync.Mutex
	seen []string // decoded addresses of received datagrams
	mute bool     // when true, stop answering /xinfo probes

	done chan struct{}
}

func startFakeConsole(t *testing.T) *fakeConsole {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fc := &fakeConsole{t: t, pc: pc, done: make(chan struct{})}
	go fc.serve()
	t.Cleanup(fc.stop)
	return fc
}

func (fc *fakeConsole) stop() {
	select {
	case <-fc.done:
	default:
		close(fc.done)
		fc.pc.Close()
	}
}

func (fc *fakeConsole) serve() {
	buf := make([]byte, 512)
	for {
		n, from, err := fc.pc.ReadFrom(buf)
		if err != nil {
			return
		}
		addr, _, err := decodeOSC(buf[:n])
		if err != nil {
			continue
		}

		fc.mu.Lock()
		fc.seen = append(fc.seen, addr)
		muted := fc.mute
		fc.mu.Unlock()

		if addr == "/xinfo" && !muted {
			reply := encodeOSC("/xinfo", "127.0.0.1", "TESTDESK", "XR18", "1.18")
			fc.pc.WriteTo(reply, from)
		}
	}
}

func (fc *fakeConsole) port() int {
	return fc.pc.LocalAddr().(*net.UDPAddr).Port
}

func (fc *fakeConsole) goSilent() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.mute = true
}

// waitFor polls until the console has seen an address or times out.
func (fc *fakeConsole) waitFor(addr string) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		fc.mu.Lock()
		for _, a := range fc.seen {
			if a == addr {
				fc.mu.Unlock()
				return true
			}
		}
		fc.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func testConfig(fc *fakeConsole) Config {
	return Config{
		Kind: KindXR18,
		Host: "127.0.0.1",
		Port: fc.port(),
	}
}

func TestConnect_HandshakeAndInfo(t *testing.T) {
	fc := startFakeConsole(t)

	c, err := Connect(context.Background(), testConfig(fc))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	info := c.Info()
	if info.Name != "TESTDESK" || info.Model != "XR18" || info.Firmware != "1.18" {
		t.Errorf("Info() = %+v, want TESTDESK/XR18/1.18", info)
	}
	if c.ChannelCount() != 16 {
		t.Errorf("ChannelCount() = %d, want 16", c.ChannelCount())
	}
}

func TestConnect_NoConsole(t *testing.T) {
	// A bound but silent socket: dial succeeds, handshake must time out.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	_, err = Connect(context.Background(), Config{
		Kind:           KindXR18,
		Host:           "127.0.0.1",
		Port:           pc.LocalAddr().(*net.UDPAddr).Port,
		ConnectTimeout: 100 * time.Millisecond,
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_UnknownKind(t *testing.T) {
	_, err := Connect(context.Background(), Config{Kind: "DM1000", Host: "127.0.0.1"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Connect() error = %v, want ErrUnknownKind", err)
	}
}

func TestSetChannelMute_SendsCommand(t *testing.T) {
	fc := startFakeConsole(t)

	c, err := Connect(context.Background(), testConfig(fc))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if err := c.SetChannelMute(context.Background(), 3, true); err != nil {
		t.Fatalf("SetChannelMute() error = %v", err)
	}
	if !fc.waitFor("/ch/03/mix/on") {
		t.Error("console never received /ch/03/mix/on")
	}
}

func TestSetChannelMute_InvalidChannel(t *testing.T) {
	fc := startFakeConsole(t)

	c, err := Connect(context.Background(), testConfig(fc))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	for _, ch := range []int{0, -1, 17} {
		if err := c.SetChannelMute(context.Background(), ch, true); !errors.Is(err, ErrInvalidChannel) {
			t.Errorf("SetChannelMute(%d) error = %v, want ErrInvalidChannel", ch, err)
		}
	}
}

func TestSetChannelMute_AfterClose(t *testing.T) {
	fc := startFakeConsole(t)

	c, err := Connect(context.Background(), testConfig(fc))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.Close()

	if err := c.SetChannelMute(context.Background(), 1, true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetChannelMute() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestKeepalive_SendsXremote(t *testing.T) {
	fc := startFakeConsole(t)

	cfg := testConfig(fc)
	cfg.ProbeInterval = 20 * time.Millisecond
	c, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if !fc.waitFor("/xremote") {
		t.Error("console never received /xremote keepalive")
	}
}

func TestProbeTimeout_ReportsLoss(t *testing.T) {
	fc := startFakeConsole(t)

	cfg := testConfig(fc)
	cfg.ProbeInterval = 20 * time.Millisecond
	c, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	fc.goSilent()

	select {
	case lossErr := <-c.Done():
		if !errors.Is(lossErr, ErrProbeTimeout) {
			t.Errorf("Done() error = %v, want ErrProbeTimeout", lossErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session loss never reported")
	}
}

func TestClose_Idempotent(t *testing.T) {
	fc := startFakeConsole(t)

	c, err := Connect(context.Background(), testConfig(fc))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("first Close() = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
