// Package mqtt publishes schedules with the Eclipse Paho client.
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

	coremon "github.com/kilianp07/unitcommit/core/monitoring"
	coremqtt "github.com/kilianp07/unitcommit/core/mqtt"
	"github.com/kilianp07/unitcommit/core/schedule"
	"github.com/kilianp07/unitcommit/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client. An empty
// Broker disables publishing.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	AuthMethod  string      `json:"auth_method"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TimeoutMS   int         `json:"timeout_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "ucplan-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "unitcommit"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 5000
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2")
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("mqtt: unknown auth_method %q", c.AuthMethod)
	}
	if strings.ContainsAny(c.TopicPrefix, "+#") {
		return fmt.Errorf("mqtt: topic_prefix must not contain wildcards")
	}
	if c.MaxRetries < 0 || c.BackoffMS < 0 || c.TimeoutMS < 0 {
		return fmt.Errorf("mqtt: retries and timeouts must be >= 0")
	}
	return nil
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoPublisher implements mqtt.Publisher. Schedules are published retained
// so late subscribers receive the latest plan of each case.
type PahoPublisher struct {
	cli     pahoClient
	cfg     Config
	logger  logger.Logger
	monitor coremon.Monitor

	mu     sync.Mutex
	closed bool
}

// NewPahoPublisher connects to the broker. The publisher announces itself
// "online" on the status topic; the broker publishes "offline" as last will.
func NewPahoPublisher(cfg Config, mon coremon.Monitor) (*PahoPublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	p := &PahoPublisher{cfg: cfg, logger: log, monitor: coremon.OrNop(mon)}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		c.Publish(p.StatusTopic(), 1, true, "online")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(p.timeout()) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}
	p.cli = c
	return p, nil
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
	if cfg.UseTLS || cfg.AuthMethod == "certificate" || cfg.AuthMethod == "both" {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	opts.SetWill(statusTopic(cfg.TopicPrefix), "offline", 1, true)
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
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s holds no certificate", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// ScheduleTopic is the retained topic of a case's latest schedule.
func (p *PahoPublisher) ScheduleTopic(caseName string) string {
	return p.cfg.TopicPrefix + "/" + topicSegment(caseName) + "/schedule"
}

// StatusTopic carries the publisher's online/offline state.
func (p *PahoPublisher) StatusTopic() string { return statusTopic(p.cfg.TopicPrefix) }

func statusTopic(prefix string) string { return prefix + "/status" }

// topicSegment maps a case name onto a single topic level.
func topicSegment(name string) string {
	if name == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
}

func (p *PahoPublisher) timeout() time.Duration {
	return time.Duration(p.cfg.TimeoutMS) * time.Millisecond
}

// PublishSchedule implements mqtt.Publisher. Failed attempts are retried with
// exponential backoff until MaxRetries is exhausted or ctx is done.
func (p *PahoPublisher) PublishSchedule(ctx context.Context, s *schedule.Schedule) (string, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return "", coremqtt.ErrNotConnected
	}
	msgID := uuid.NewString()
	payload, err := json.Marshal(coremqtt.Envelope{
		MessageID:   msgID,
		RunID:       s.RunID,
		Case:        s.Case,
		PublishedAt: time.Now().UTC(),
		Schedule:    s,
	})
	if err != nil {
		return "", fmt.Errorf("mqtt: encode schedule: %w", err)
	}

	topic := p.ScheduleTopic(s.Case)
	backoff := time.Duration(p.cfg.BackoffMS) * time.Millisecond
	var publishErr error
retry:
	for attempt := 0; ; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, true, payload)
		if !token.WaitTimeout(p.timeout()) {
			publishErr = fmt.Errorf("publish to %s timed out", topic)
		} else {
			publishErr = token.Error()
		}
		if publishErr == nil {
			p.logger.Infof("published schedule %s (run %s) to %s", msgID, s.RunID, topic)
			return msgID, nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt >= p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			publishErr = fmt.Errorf("%w (last error: %v)", ctx.Err(), publishErr)
			break retry
		case <-time.After(backoff * time.Duration(1<<attempt)):
		}
	}
	err = fmt.Errorf("mqtt: publish schedule to %s: %w", topic, publishErr)
	p.monitor.CaptureException(err, map[string]string{"module": "mqtt", "case": s.Case, "run_id": s.RunID})
	return "", err
}

// Disconnect publishes the offline status and closes the connection.
func (p *PahoPublisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Publish(p.StatusTopic(), 1, true, "offline").WaitTimeout(p.timeout())
		p.cli.Disconnect(250)
	}
}
