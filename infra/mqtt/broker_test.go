package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremqtt "github.com/kilianp07/unitcommit/core/mqtt"
)

func startMosquitto(ctx context.Context, t *testing.T) string {
	t.Helper()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("mosquitto container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// TestScheduleRoundTripWithBroker publishes through a real broker and reads
// the retained message back with a late subscriber.
func TestScheduleRoundTripWithBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("broker test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker := startMosquitto(ctx, t)

	pub, err := NewPahoPublisher(Config{Broker: broker, ClientID: "planner", QoS: 1}, nil)
	require.NoError(t, err)
	defer pub.Disconnect()
	sch := testSchedule()
	id, err := pub.PublishSchedule(ctx, sch)
	require.NoError(t, err)

	got := make(chan coremqtt.Envelope, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("consumer"))
	token := sub.Connect()
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())
	defer sub.Disconnect(100)
	token = sub.Subscribe(pub.ScheduleTopic(sch.Case), 1, func(_ paho.Client, m paho.Message) {
		var env coremqtt.Envelope
		if json.Unmarshal(m.Payload(), &env) == nil {
			select {
			case got <- env:
			default:
			}
		}
	})
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())

	select {
	case env := <-got:
		assert.Equal(t, id, env.MessageID)
		assert.Equal(t, sch.RunID, env.RunID)
		assert.Equal(t, sch.TotalCost, env.Schedule.TotalCost)
	case <-time.After(10 * time.Second):
		t.Fatal("retained schedule not received")
	}
}
