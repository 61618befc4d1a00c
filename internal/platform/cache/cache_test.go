package cache

import (
	"testing"
	"time"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestNewClient_DefaultTimeouts(t *testing.T) {
	opts, err := ParseURL("redis://localhost:6379")
	if err != nil {
		t.Fatal(err)
	}
	opts.ReadTimeout = time.Second

	client := NewClient(opts)
	defer client.Close()

	got := client.Options()
	if got.DialTimeout != 5*time.Second {
		t.Errorf("DialTimeout = %v, want 5s", got.DialTimeout)
	}
	if got.ReadTimeout != time.Second {
		t.Errorf("ReadTimeout = %v, want 1s", got.ReadTimeout)
	}
}
