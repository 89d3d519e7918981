package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zmooth/console/internal/infrastructure/memstore"
	"github.com/zmooth/console/internal/pkg/config"
)

func TestOpenRefreshStore_MemoryWithoutRedis(t *testing.T) {
	store, closeFn, err := openRefreshStore(context.Background(), config.RedisConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("openRefreshStore: %v", err)
	}
	defer closeFn()

	if _, ok := store.(*memstore.RefreshStore); !ok {
		t.Fatalf("expected in-memory store, got %T", store)
	}
	if err := store.Save(context.Background(), "s", 1, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestOpenRefreshStore_RedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, _, err := openRefreshStore(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unreachable redis")
	}
}

func TestLoadAccounts_DefaultsToDemoTable(t *testing.T) {
	accts, err := loadAccounts("")
	if err != nil {
		t.Fatalf("loadAccounts: %v", err)
	}
	if len(accts) != 2 {
		t.Fatalf("expected 2 built-in accounts, got %d", len(accts))
	}
}
