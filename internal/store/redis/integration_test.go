//go:build integration

package redis_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisstore "github.com/gosuda/hrdesk/internal/store/redis"
)

var testPubSub *redisstore.PubSub

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		log.Fatalf("container port: %v", err)
	}

	testPubSub, err = redisstore.New(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}

	code := m.Run()

	_ = testPubSub.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestPubSub_RelaysInOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channel := redisstore.ChatChannel("hr/employees/ada/2025-03-01")
	messages, cleanup, err := testPubSub.Subscribe(ctx, channel)
	require.NoError(t, err)
	defer cleanup()

	type event struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	for _, text := range []string{"Hello", " Ada"} {
		require.NoError(t, testPubSub.PublishJSON(ctx, channel, event{Type: "turn.chunk", Text: text}))
	}

	var got []string
	for range 2 {
		select {
		case payload := <-messages:
			var ev event
			require.NoError(t, json.Unmarshal(payload, &ev))
			got = append(got, ev.Text)
		case <-ctx.Done():
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []string{"Hello", " Ada"}, got)
}

func TestPubSub_ChannelsAreIsolated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	messages, cleanup, err := testPubSub.Subscribe(ctx, redisstore.ChatChannel("hr/employees/ada/2025-03-01"))
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, testPubSub.Publish(ctx, redisstore.ChatChannel("hr/employees/alan/2025-03-01"), []byte("other")))
	require.NoError(t, testPubSub.Publish(ctx, redisstore.ChatChannel("hr/employees/ada/2025-03-01"), []byte("mine")))

	select {
	case payload := <-messages:
		assert.Equal(t, "mine", string(payload))
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestPubSub_SubscriptionEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	messages, cleanup, err := testPubSub.Subscribe(ctx, redisstore.ChatChannel("hr/employees/grace/2025-03-01"))
	require.NoError(t, err)
	defer cleanup()

	cancel()

	select {
	case _, ok := <-messages:
		assert.False(t, ok, "channel must close after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestPubSub_Ping(t *testing.T) {
	require.NoError(t, testPubSub.Ping(context.Background()))
}
