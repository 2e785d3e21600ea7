package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/kitty3000/core/model"
	coremqtt "github.com/kilianp07/kitty3000/core/mqtt"
	"github.com/kilianp07/kitty3000/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
	AuthMethod string `json:"auth_method"`
	// QoS maps the last topic segment ("command", "treats", "availability",
	// ...) to a QoS level. "default" applies to anything else.
	QoS              map[string]byte `json:"qos"`
	LWTTopic         string          `json:"lwt_topic"`
	LWTPayload       string          `json:"lwt_payload"`
	LWTQoS           byte            `json:"lwt_qos"`
	LWTRetain        bool            `json:"lwt_retain"`
	MaxRetries       int             `json:"max_retries"`
	BackoffMS        int             `json:"backoff_ms"`
	KeepAliveSeconds int             `json:"keep_alive_seconds"`
	// PublishTimeoutMS bounds the wait for a publish confirmation.
	PublishTimeoutMS int             `json:"publish_timeout_ms"`
	ConnectRetry     bool            `json:"connect_retry"`
	TLSConfig        *tls.Config     `json:"-"`
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("mqtt: unknown auth_method %q", c.AuthMethod)
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	IsConnectionOpen() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements core/mqtt.Client using Eclipse Paho. Reconnection is
// left to paho; hooks registered with OnConnect run after every connection.
type PahoClient struct {
	cli     pahoClient
	qos     map[string]byte
	logger  logger.Logger
	backoff time.Duration
	retries int
	timeout time.Duration

	mu    sync.Mutex
	hooks []func()
}

var _ coremqtt.Client = (*PahoClient)(nil)

// DefaultPublishTimeout bounds a publish when no timeout is configured.
const DefaultPublishTimeout = 5 * time.Second

// defaultQoS applies when the configuration names neither the topic kind nor
// a default. Treats counts use QoS 1 so paho stores them across a reconnect
// instead of dropping them.
var defaultQoS = map[string]byte{"treats": 1}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient prepares a client. No connection is made until Connect.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		qos:     cfg.QoS,
		logger:  log,
		retries: cfg.MaxRetries,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		timeout: time.Duration(cfg.PublishTimeoutMS) * time.Millisecond,
	}
	if pc.timeout <= 0 {
		pc.timeout = DefaultPublishTimeout
	}
	if pc.retries <= 0 {
		pc.retries = 3
	}
	if pc.backoff <= 0 {
		pc.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(_ paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		pc.mu.Lock()
		hooks := append([]func(){}, pc.hooks...)
		pc.mu.Unlock()
		for _, h := range hooks {
			h()
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	pc.cli = newMQTTClient(opts)
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "kitty3000-" + uuid.NewString()
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.AutoReconnect = true
	opts.SetConnectRetry(cfg.ConnectRetry)
	if cfg.KeepAliveSeconds > 0 {
		opts.SetKeepAlive(time.Duration(cfg.KeepAliveSeconds) * time.Second)
	}
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
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// OnConnect registers fn to run after every successful connection. Hooks
// must be registered before Connect to see the first connection.
func (p *PahoClient) OnConnect(fn func()) {
	p.mu.Lock()
	p.hooks = append(p.hooks, fn)
	p.mu.Unlock()
}

// Connect opens the session and blocks until the broker accepted it or ctx
// is done.
func (p *PahoClient) Connect(ctx context.Context) error {
	token := p.cli.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PahoClient) qosFor(topic string) byte {
	key := topic
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		key = topic[i+1:]
	}
	if q, ok := p.qos[key]; ok {
		return q
	}
	if q, ok := p.qos["default"]; ok {
		return q
	}
	return defaultQoS[key]
}

// Subscribe registers handler for topic.
func (p *PahoClient) Subscribe(topic string, handler coremqtt.Handler) error {
	qos := p.qosFor(topic)
	token := p.cli.Subscribe(topic, qos, func(_ paho.Client, m paho.Message) {
		handler(model.Message{Topic: m.Topic(), Payload: m.Payload(), Retained: m.Retained()})
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	p.logger.Debugf("subscribed to %s (qos %d)", topic, qos)
	return nil
}

// Publish sends payload to topic, retrying with exponential backoff.
func (p *PahoClient) Publish(topic string, payload []byte, retained bool) error {
	if !p.cli.IsConnected() {
		return fmt.Errorf("publish %s: %w", topic, coremqtt.ErrNotConnected)
	}
	qos := p.qosFor(topic)
	var publishErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		if !token.WaitTimeout(p.timeout) {
			// paho keeps the message; retrying would duplicate it.
			return fmt.Errorf("publish %s after %s: %w", topic, p.timeout, coremqtt.ErrTimeout)
		}
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugw("published", map[string]any{"topic": topic, "retained": retained, "qos": qos})
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.retries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// IsConnectionOpen reports whether a session with the broker is established
// right now. Unlike IsConnected it is false while paho is (re)connecting.
func (p *PahoClient) IsConnectionOpen() bool {
	return p.cli != nil && p.cli.IsConnectionOpen()
}

// Disconnect gracefully closes the MQTT connection. The broker does not
// send the last-will on a clean disconnect.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
