package rpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type echoParams struct {
	Value string `json:"value"`
}

type echoResult struct {
	Value string `json:"value"`
}

func TestCallRoundTrip(t *testing.T) {
	s := NewServer()
	s.Register("Echo.Call", func(ctx context.Context, req json.RawMessage) (any, error) {
		var p echoParams
		if err := json.Unmarshal(req, &p); err != nil {
			return nil, err
		}
		return echoResult{Value: p.Value}, nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve("127.0.0.1:19999") }()
	defer s.Stop()
	time.Sleep(50 * time.Millisecond)

	client, err := Dial("127.0.0.1:19999")
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer client.Close()

	var result echoResult
	if err := client.Call("Echo.Call", echoParams{Value: "hello"}, &result); err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if result.Value != "hello" {
		t.Errorf("result.Value = %q, want hello", result.Value)
	}
}

func TestCallUnknownMethod(t *testing.T) {
	s := NewServer()
	go s.Serve("127.0.0.1:19998")
	defer s.Stop()
	time.Sleep(50 * time.Millisecond)

	client, err := Dial("127.0.0.1:19998")
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer client.Close()

	var result echoResult
	if err := client.Call("Nonexistent.Method", echoParams{}, &result); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestCallContextDeadlineExceeded(t *testing.T) {
	s := NewServer()
	s.Register("Slow.Call", func(ctx context.Context, req json.RawMessage) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return echoResult{}, nil
	})
	go s.Serve("127.0.0.1:19997")
	defer s.Stop()
	time.Sleep(50 * time.Millisecond)

	client, err := Dial("127.0.0.1:19997")
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var result echoResult
	if err := client.CallContext(ctx, "Slow.Call", echoParams{}, &result); err == nil {
		t.Fatal("expected deadline-exceeded error")
	}
}
