package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/dutyplan/core/events"
	coremqtt "github.com/kilianp07/dutyplan/core/mqtt"
	"github.com/kilianp07/dutyplan/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool            `json:"enabled"`
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	Retain      bool            `json:"retain"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "dutyplan"
	}
	if c.ClientID == "" {
		c.ClientID = "dutyplan-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks that an enabled notifier has a broker.
func (c Config) Validate() error {
	if c.Enabled && c.Broker == "" {
		return fmt.Errorf("mqtt broker is required when notify is enabled")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoNotifier implements coremqtt.Notifier using Eclipse Paho.
type PahoNotifier struct {
	cli        pahoClient
	prefix     string
	qos        map[string]byte
	retain     bool
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration

	mu        sync.Mutex
	recompute coremqtt.RecomputeFunc
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoNotifier connects to the MQTT broker and subscribes to recompute
// requests on <prefix>/routes/+/recompute.
func NewPahoNotifier(cfg Config) (*PahoNotifier, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_notifier")
	pn := &PahoNotifier{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		topic := pn.prefix + "/routes/+/recompute"
		if token := c.Subscribe(topic, pn.qosFor("recompute"), pn.onRecompute); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pn.cli = c
	return pn, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// OnRecompute sets the callback for remote recompute requests.
func (p *PahoNotifier) OnRecompute(fn coremqtt.RecomputeFunc) {
	p.mu.Lock()
	p.recompute = fn
	p.mu.Unlock()
}

func (p *PahoNotifier) onRecompute(_ paho.Client, msg paho.Message) {
	id, err := p.routeFromTopic(msg.Topic(), "recompute")
	if err != nil {
		p.logger.Warnf("ignoring message on %s: %v", msg.Topic(), err)
		return
	}
	p.mu.Lock()
	fn := p.recompute
	p.mu.Unlock()
	if fn == nil {
		return
	}
	p.logger.Infof("recompute requested for route %s", id)
	fn(context.Background(), id)
}

// routeFromTopic extracts the route id of <prefix>/routes/<id>/<suffix>.
func (p *PahoNotifier) routeFromTopic(topic, suffix string) (string, error) {
	rest, ok := strings.CutPrefix(topic, p.prefix+"/routes/")
	if !ok {
		return "", coremqtt.ErrInvalidTopic
	}
	id, ok := strings.CutSuffix(rest, "/"+suffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", coremqtt.ErrInvalidTopic
	}
	return id, nil
}

type envelope struct {
	MessageID string `json:"message_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NotifyRouteChange publishes on <prefix>/routes/<id>/<action>.
func (p *PahoNotifier) NotifyRouteChange(ev events.RouteChangedEvent) error {
	topic := fmt.Sprintf("%s/routes/%s/%s", p.prefix, ev.RouteID, ev.Action)
	return p.publish(topic, p.qosFor("route"), map[string]string{"route_id": ev.RouteID, "action": ev.Action})
}

// NotifySchedule publishes a schedule summary on <prefix>/routes/<id>/schedule.
func (p *PahoNotifier) NotifySchedule(ev events.ScheduleComputedEvent) error {
	topic := fmt.Sprintf("%s/routes/%s/schedule", p.prefix, ev.RouteID)
	warnings := ev.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	body := struct {
		RouteID        string   `json:"route_id"`
		Headway        int      `json:"headway"`
		Duties         int      `json:"duties"`
		Trips          int      `json:"trips"`
		Retries        int      `json:"retries"`
		FallbackDuties int      `json:"fallback_duties"`
		Warnings       []string `json:"warnings"`
		DurationMS     int64    `json:"duration_ms"`
	}{ev.RouteID, ev.Headway, ev.Duties, ev.Trips, ev.Retries, ev.FallbackDuties, warnings, ev.Duration.Milliseconds()}
	return p.publish(topic, p.qosFor("schedule"), body)
}

func (p *PahoNotifier) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoNotifier) publish(topic string, qos byte, data any) error {
	payload, err := json.Marshal(envelope{MessageID: uuid.NewString(), Timestamp: time.Now().UnixMilli(), Data: data})
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published to %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("%w: %s: %v", coremqtt.ErrPublishFailed, topic, publishErr)
}

// Close gracefully closes the MQTT connection.
func (p *PahoNotifier) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
