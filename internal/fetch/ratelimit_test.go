package fetch

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestNewLimiter(t *testing.T) {
	if NewLimiter(0) != nil {
		t.Error("NewLimiter(0) should be nil (unlimited)")
	}
	if NewLimiter(-1) != nil {
		t.Error("NewLimiter(-1) should be nil (unlimited)")
	}

	l := NewLimiter(1024)
	if l == nil {
		t.Fatal("NewLimiter(1024) = nil")
	}
	// Small limits still get a burst wide enough for one read buffer.
	if l.Burst() < minBurst {
		t.Errorf("Burst = %d, want at least %d", l.Burst(), minBurst)
	}

	big := NewLimiter(10 * 1024 * 1024)
	if big.Burst() != 10*1024*1024 {
		t.Errorf("Burst = %d, want the full rate", big.Burst())
	}
}

func TestLimitedReader_NilLimiterPassesThrough(t *testing.T) {
	src := bytes.NewReader([]byte("payload"))
	r := NewLimitedReader(context.Background(), src, nil)

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("read %q, want payload", data)
	}
}

func TestLimitedReader_Throttled(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)
	r := NewLimitedReader(context.Background(), bytes.NewReader(payload), NewLimiter(1<<20))

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("read %d bytes, want %d", len(data), len(payload))
	}
}

func TestLimitedReader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewLimitedReader(ctx, bytes.NewReader([]byte("payload")), nil)
	if _, err := r.Read(make([]byte, 4)); err != context.Canceled {
		t.Errorf("Read on canceled context = %v, want context.Canceled", err)
	}
}
