// Package notify_test tests the NATS status publisher.
package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-bootstrap/internal/core"
	"github.com/book-expert/tts-bootstrap/internal/notify"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSubject = "tts.bootstrap.status"

// StartTestServer starts an in-memory NATS server for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		natsServer.Shutdown()
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "notify-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = testLogger.Close() })

	return testLogger
}

func TestNATSPublisher_Notify(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	sub, err := natsConnection.SubscribeSync(testSubject)
	require.NoError(t, err)
	require.NoError(t, natsConnection.Flush())

	publisher := notify.NewNATSPublisher(natsConnection, testSubject, "run-1", newTestLogger(t))

	publisher.Notify(context.Background(), core.StageCreate, core.StateStarted, nil)
	publisher.Notify(context.Background(), core.StageCreate, core.StateFailed, errors.New("venv exploded"))

	first, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var started notify.StatusEvent
	require.NoError(t, json.Unmarshal(first.Data, &started))
	assert.Equal(t, core.StageCreate, started.Stage)
	assert.Equal(t, core.StateStarted, started.State)
	assert.Equal(t, "run-1", started.Header.WorkflowID)
	assert.NotEmpty(t, started.Header.EventID)
	assert.Empty(t, started.Error)

	second, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var failed notify.StatusEvent
	require.NoError(t, json.Unmarshal(second.Data, &failed))
	assert.Equal(t, core.StateFailed, failed.State)
	assert.Equal(t, "venv exploded", failed.Error)
	assert.NotEqual(t, started.Header.EventID, failed.Header.EventID)
}

func TestNATSPublisher_ClosedConnectionDoesNotPanic(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()

	natsConnection.Close()

	publisher := notify.NewNATSPublisher(natsConnection, testSubject, "run-2", newTestLogger(t))

	assert.NotPanics(t, func() {
		publisher.Notify(context.Background(), core.StageLaunch, core.StateDone, nil)
	})
}

func TestNATSPublisher_ReconnectingServerDoesNotStall(t *testing.T) {
	t.Parallel()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	natsServer := test.RunServer(&opts)

	disconnected := make(chan struct{}, 1)

	natsConnection, err := nats.Connect(natsServer.ClientURL(),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Minute),
		nats.DisconnectErrHandler(func(*nats.Conn, error) {
			select {
			case disconnected <- struct{}{}:
			default:
			}
		}),
	)
	require.NoError(t, err)
	defer natsConnection.Close()

	natsServer.Shutdown()

	select {
	case <-disconnected:
	case <-time.After(10 * time.Second):
		t.Fatal("client never noticed the server shutdown")
	}

	publisher := notify.NewNATSPublisher(natsConnection, testSubject, "run-3", newTestLogger(t))

	start := time.Now()
	publisher.Notify(context.Background(), core.StageInstallDep, core.StateStarted, nil)

	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var notifier core.StatusNotifier = notify.Nop{}

	assert.NotPanics(t, func() {
		notifier.Notify(context.Background(), core.StageMark, core.StateDone, nil)
	})
}
