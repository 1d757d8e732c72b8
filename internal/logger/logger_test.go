package logger

import (
	"context"
	"testing"
	"time"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "compute-42")
	if got := RequestID(ctx); got != "compute-42" {
		t.Errorf("got %q, want %q", got, "compute-42")
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("unset context: got %q, want empty", got)
	}
}

func TestGenerateRequestID(t *testing.T) {
	ts := time.Unix(0, 12345)
	if got := GenerateRequestID("compute", ts); got != "compute-12345" {
		t.Errorf("got %q, want %q", got, "compute-12345")
	}
}
