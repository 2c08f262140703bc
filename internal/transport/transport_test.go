package transport

import (
	"context"
	"testing"
	"time"
)

func TestSendStructuredWithFallback(t *testing.T) {
	client := NewMemoryClient()

	err := SendStructuredWithFallback(context.Background(), client, "conv-1", "pick one",
		map[string]string{"id": "menu-1"}, ContentActions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := client.Sent()
	if len(sent) != 1 || sent[0].Tag != ContentActions || sent[0].Payload == nil {
		t.Fatalf("expected structured delivery, got %+v", sent)
	}
}

func TestSendStructuredWithFallbackDegrades(t *testing.T) {
	client := NewMemoryClient()
	client.FailStructured = true

	err := SendStructuredWithFallback(context.Background(), client, "conv-1", "pick one",
		map[string]string{"id": "menu-1"}, ContentActions)
	if err != nil {
		t.Fatalf("fallback must swallow the structured failure: %v", err)
	}
	sent := client.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected one plain delivery, got %d", len(sent))
	}
	if sent[0].Payload != nil || sent[0].Tag != "" {
		t.Fatalf("fallback must be plain text, got %+v", sent[0])
	}
	if sent[0].Text != "pick one" {
		t.Fatalf("fallback must reuse the text, got %q", sent[0].Text)
	}
}

func TestSendStructuredWithFallbackNilClient(t *testing.T) {
	if err := SendStructuredWithFallback(context.Background(), nil, "conv-1", "x", nil, ContentActions); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestMemoryClientDeliverFansOut(t *testing.T) {
	client := NewMemoryClient()
	var got []string
	client.RegisterHandler("a", func(_ context.Context, msg Message) {
		got = append(got, "a:"+msg.ID)
	})
	client.RegisterHandler("b", func(_ context.Context, msg Message) {
		got = append(got, "b:"+msg.ID)
	})

	client.Deliver(context.Background(), Message{ID: "m1", Timestamp: time.Now()})
	if len(got) != 2 {
		t.Fatalf("expected both handlers to run, got %v", got)
	}

	client.UnregisterHandler("a")
	got = got[:0]
	client.Deliver(context.Background(), Message{ID: "m2"})
	if len(got) != 1 || got[0] != "b:m2" {
		t.Fatalf("expected only remaining handler, got %v", got)
	}
}
