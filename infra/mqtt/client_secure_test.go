package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/dutyplan/core/events"
	coremqtt "github.com/kilianp07/dutyplan/core/mqtt"
	"github.com/kilianp07/dutyplan/internal/eventbus"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
}

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestQoSSettings(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", TopicPrefix: "fleet", QoS: map[string]byte{"schedule": 2, "recompute": 1}}
	cli, err := NewPahoNotifier(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if len(mc.subscribed) == 0 || mc.subscribed[0].qos != 1 || mc.subscribed[0].topic != "fleet/routes/+/recompute" {
		t.Fatalf("subscription not applied: %+v", mc.subscribed)
	}
	if err := cli.NotifySchedule(events.ScheduleComputedEvent{RouteID: "r1", Duties: 2}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mc.published) != 1 || mc.published[0].qos != 2 || mc.published[0].topic != "fleet/routes/r1/schedule" {
		t.Fatalf("publish not applied: %+v", mc.published)
	}
	var env struct {
		MessageID string `json:"message_id"`
		Data      struct {
			RouteID  string   `json:"route_id"`
			Duties   int      `json:"duties"`
			Warnings []string `json:"warnings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(mc.published[0].payload, &env); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if env.MessageID == "" || env.Data.RouteID != "r1" || env.Data.Duties != 2 || env.Data.Warnings == nil {
		t.Fatalf("unexpected payload %+v", env)
	}
}

func TestNotifyRouteChangeTopic(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := cli.NotifyRouteChange(events.RouteChangedEvent{RouteID: "abc", Action: events.RouteDeleted}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if mc.published[0].topic != "dutyplan/routes/abc/deleted" {
		t.Fatalf("unexpected topic %s", mc.published[0].topic)
	}
}

func TestRecomputeRequests(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883", TopicPrefix: "p"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	var got []string
	cli.OnRecompute(func(_ context.Context, id string) { got = append(got, id) })
	cli.onRecompute(nil, mockMessage{topic: "p/routes/r9/recompute"})
	cli.onRecompute(nil, mockMessage{topic: "p/routes/a/b/recompute"})
	cli.onRecompute(nil, mockMessage{topic: "other/routes/r1/recompute"})
	if len(got) != 1 || got[0] != "r9" {
		t.Fatalf("unexpected recompute calls %v", got)
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1}
	cli, err := NewPahoNotifier(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	cli.Close()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1}
	cli, err := NewPahoNotifier(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := cli.NotifyRouteChange(events.RouteChangedEvent{RouteID: "r", Action: "created"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries")
	}
}

func TestPublishFailure(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	withMock(t, mc)
	cli, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	err = cli.NotifySchedule(events.ScheduleComputedEvent{RouteID: "r"})
	if !errors.Is(err, coremqtt.ErrPublishFailed) {
		t.Fatalf("expected publish failure, got %v", err)
	}
	if len(mc.published) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(mc.published))
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Enabled: true}).Validate(); err == nil {
		t.Fatal("expected missing broker error")
	}
	c := Config{}
	c.SetDefaults()
	if c.TopicPrefix != "dutyplan" || c.MaxRetries != 3 || c.ClientID == "" {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestForward(t *testing.T) {
	bus := eventbus.New()
	n := NewMockNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	done := Forward(ctx, bus, n, nil)
	bus.Publish(events.RouteChangedEvent{RouteID: "r", Action: "created"})
	bus.Publish(events.ScheduleComputedEvent{RouteID: "r"})
	bus.Publish("noise")
	deadline := time.After(time.Second)
	for {
		c, s := n.Counts()
		if c == 1 && s == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("events not forwarded: %d %d", c, s)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	published []struct {
		topic   string
		qos     byte
		payload []byte
	}
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, struct {
		topic   string
		qos     byte
		payload []byte
	}{topic, qos, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
