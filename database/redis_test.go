package database

import (
	"context"
	"strings"
	"testing"
)

func TestConnectCache_Unreachable(t *testing.T) {
	cache, err := ConnectCache(context.Background(), CacheOptions{Addr: "127.0.0.1:1", DB: 2})
	if err == nil {
		cache.Close()
		t.Fatal("expected error for unreachable redis")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1") {
		t.Errorf("expected address in error, got %v", err)
	}
}
