package config

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedisClientHostPortBeatsAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("REDIS_ADDR", "localhost:1") // nothing listens here
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("REDIS_TLS", "")

	client, err := NewRedisClient()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if got := client.Options().Addr; got != mr.Addr() {
		t.Fatalf("addr = %s, want host/port pair %s", got, mr.Addr())
	}
}

func TestNewRedisClientAddrFallback(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("REDIS_TLS", "")

	client, err := NewRedisClient()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if got := client.Options().Addr; got != mr.Addr() {
		t.Fatalf("addr = %s, want %s", got, mr.Addr())
	}
}
