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
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremqtt "github.com/kilianp07/unitcommit/core/mqtt"
	"github.com/kilianp07/unitcommit/core/schedule"
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
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	_, err = Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestNewClientOptions(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"}
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "unitcommit/status", opts.WillTopic)
	assert.Equal(t, "offline", string(opts.WillPayload))
	assert.True(t, opts.WillRetained)
}

func TestConfigValidate(t *testing.T) {
	base := Config{Broker: "tcp://localhost:1883"}
	base.SetDefaults()
	assert.NoError(t, base.Validate())

	bad := base
	bad.QoS = 3
	assert.Error(t, bad.Validate())
	bad = base
	bad.TopicPrefix = "plans/#"
	assert.Error(t, bad.Validate())
	bad = base
	bad.AuthMethod = "kerberos"
	assert.Error(t, bad.Validate())
	assert.False(t, Config{}.Enabled())
}

func TestTopicSegment(t *testing.T) {
	assert.Equal(t, "default", topicSegment(""))
	assert.Equal(t, "toy-case_1.v2", topicSegment("toy-case_1.v2"))
	assert.Equal(t, "a_b_c_d", topicSegment("a/b+c#d"))
}

func withMockClient(t *testing.T, mc *mockClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = orig })
}

func testSchedule() *schedule.Schedule {
	s := schedule.New(2)
	s.RunID = "run-1"
	s.Case = "toy case"
	s.TotalCost = 123
	s.Generators["g1"] = schedule.Generator{PowerOutput: []float64{10, 20}, ConnectedBus: "b1"}
	return s
}

func TestPublishSchedule(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	pub, err := NewPahoPublisher(Config{Broker: "tcp://localhost:1883", QoS: 1}, nil)
	require.NoError(t, err)

	id, err := pub.PublishSchedule(context.Background(), testSchedule())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := mc.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "unitcommit/status", msgs[0].topic)
	assert.Equal(t, "online", msgs[0].payload)

	last := msgs[1]
	assert.Equal(t, "unitcommit/toy_case/schedule", last.topic)
	assert.Equal(t, byte(1), last.qos)
	assert.True(t, last.retained)
	var env coremqtt.Envelope
	require.NoError(t, json.Unmarshal([]byte(last.payload), &env))
	assert.Equal(t, id, env.MessageID)
	assert.Equal(t, "run-1", env.RunID)
	assert.Equal(t, 123.0, env.Schedule.TotalCost)
	assert.Equal(t, []float64{10, 20}, env.Schedule.Generators["g1"].PowerOutput)

	pub.Disconnect()
	msgs = mc.messages()
	assert.Equal(t, "offline", msgs[len(msgs)-1].payload)
	_, err = pub.PublishSchedule(context.Background(), testSchedule())
	assert.ErrorIs(t, err, coremqtt.ErrNotConnected)
}

func TestPublishRetry(t *testing.T) {
	mc := &mockClient{publishErrs: []error{nil, fmt.Errorf("net fail"), nil}}
	withMockClient(t, mc)
	pub, err := NewPahoPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1}, nil)
	require.NoError(t, err)

	_, err = pub.PublishSchedule(context.Background(), testSchedule())
	require.NoError(t, err)
	assert.Len(t, mc.messages(), 3, "online status, failed attempt, retried attempt")
}

func TestPublishFailureCaptured(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{nil, fail, fail, fail}}
	withMockClient(t, mc)
	mon := &recordMonitor{}
	pub, err := NewPahoPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1}, mon)
	require.NoError(t, err)

	_, err = pub.PublishSchedule(context.Background(), testSchedule())
	require.Error(t, err)
	assert.ErrorIs(t, err, fail)
	require.Error(t, mon.err)
	assert.Equal(t, "mqtt", mon.tags["module"])
	assert.Equal(t, "toy case", mon.tags["case"])
	assert.Equal(t, "run-1", mon.tags["run_id"])
}

func TestPublishStopsOnCancel(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{nil, fail, fail, fail, fail}}
	withMockClient(t, mc)
	pub, err := NewPahoPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 4, BackoffMS: 60000}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_, err = pub.PublishSchedule(ctx, testSchedule())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, mc.messages(), 2)
}

func TestConnectError(t *testing.T) {
	mc := &mockClient{connectErr: errors.New("refused")}
	withMockClient(t, mc)
	_, err := NewPahoPublisher(Config{Broker: "tcp://localhost:1883"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// mockClient implements pahoClient and paho.Client for tests.
type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	published   []published
	publishErrs []error
	connectErr  error
}

func (m *mockClient) messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	}
	m.published = append(m.published, published{topic, qos, retained, body})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
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
