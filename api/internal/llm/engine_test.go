package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEngine struct{ name string }

func (f fakeEngine) Name() string     { return f.name }
func (f fakeEngine) GetModel() string { return f.name + "-model" }
func (f fakeEngine) Generate(context.Context, string, []byte, string) (string, error) {
	return f.name, nil
}

func TestEngines(t *testing.T) {
	t.Parallel()
	engs, err := NewEngines("gemini", fakeEngine{"gemini"}, fakeEngine{"openai"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "gemini", false},
		{"openai", "openai", false},
		{"GPT", "openai", false},
		{"claude", "", true},
	}
	for _, tt := range tests {
		eng, err := engs.GetEngine(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("GetEngine(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("GetEngine(%q): %v", tt.in, err)
		}
		if eng.Name() != tt.want {
			t.Errorf("GetEngine(%q)=%s want=%s", tt.in, eng.Name(), tt.want)
		}
	}
	if got := engs.Names(); len(got) != 2 || got[0] != "gemini" || got[1] != "openai" {
		t.Errorf("Names()=%v", got)
	}
}

func TestNewEnginesBadDefault(t *testing.T) {
	t.Parallel()
	if _, err := NewEngines("anthropic", fakeEngine{"gemini"}); err == nil {
		t.Fatal("expected error for unconfigured default")
	}
	if _, err := NewEngines("gemini"); err == nil {
		t.Fatal("expected error for empty set")
	}
}

func TestRetry(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")

	calls := 0
	_, err := Retry(context.Background(), 1, func(context.Context) (string, error) {
		calls++
		return "", boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("single attempt: err=%v calls=%d", err, calls)
	}

	calls = 0
	out, err := Retry(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", boom
		}
		return "ok", nil
	})
	if err != nil || out != "ok" || calls != 2 {
		t.Fatalf("retry: out=%q err=%v calls=%d", out, err, calls)
	}

	calls = 0
	_, err = Retry(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		return "", ErrEmptyResponse
	})
	if !errors.Is(err, ErrEmptyResponse) || calls != 1 {
		t.Fatalf("empty response must not be retried: err=%v calls=%d", err, calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_, err := Retry(ctx, 5, func(context.Context) (string, error) { return "", errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("retry kept sleeping after cancel")
	}
}
