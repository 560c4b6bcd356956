//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// Integration tests against a live broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		BrokerURL:         "tcp://127.0.0.1:1883",
		ClientID:          fmt.Sprintf("lutrongw-it-%d", time.Now().UnixNano()),
		ConnectTimeout:    5 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	client, err := Connect(context.Background(), integrationOptions(t))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

func TestIntegration_MessageRoundtrip(t *testing.T) {
	client, err := Connect(context.Background(), integrationOptions(t))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := NewTopics(fmt.Sprintf("lutron-it-%d", time.Now().UnixNano()))
	received := make(chan []byte, 1)

	err = client.Subscribe(topics.Events(), 1, func(_ string, payload []byte) error {
		received <- payload
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(topics.Events()) {
		t.Error("HasSubscription() = false after Subscribe")
	}

	want := `{"cmd":"ListDevices","args":{}}`
	if err := client.Publish(topics.Events(), []byte(want), 1); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if string(got) != want {
			t.Errorf("payload = %s, want %s", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	if err := client.Unsubscribe(topics.Events()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestIntegration_DuplicateClientIDTriggersLost(t *testing.T) {
	opts := integrationOptions(t)
	lost := make(chan error, 1)

	first, err := Connect(context.Background(), opts, WithOnDisconnect(func(err error) { lost <- err }))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer first.Close()

	// The broker drops the older session when a second client reuses its ID.
	second, err := Connect(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	defer second.Close()

	select {
	case <-lost:
	case <-time.After(10 * time.Second):
		t.Fatal("connection lost callback not invoked")
	}
	if first.IsConnected() {
		t.Error("first client still reports connected")
	}
}
