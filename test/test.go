// Package test provides a conformance test helper exercised by every
// store.Store/store.Tier backend under store/, so each backend is checked
// against the same contract instead of duplicating the same assertions.
package test

import (
	"bytes"
	"context"
	"testing"

	"github.com/polarcache/httpcache/store"
)

// Store exercises a store.Store implementation's basic contract: an absent
// key reports ok=false with no error, a set key round-trips its exact
// bytes, and Remove makes it absent again.
func Store(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	key := "testKey"

	_, ok, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("retrieved key before adding it")
	}

	val := []byte("some bytes")
	if err := s.Set(ctx, key, val); err != nil {
		t.Fatalf("error setting key: %v", err)
	}

	retVal, ok, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if !ok {
		t.Fatal("could not retrieve an element we just added")
	}
	if !bytes.Equal(retVal, val) {
		t.Fatal("retrieved a different value than what we put in")
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("error removing key: %v", err)
	}

	_, ok, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("removed key still present")
	}
}

// Tier runs Store plus a TierName sanity check.
func Tier(t *testing.T, tier store.Tier) {
	t.Helper()
	if tier.TierName() == "" {
		t.Fatal("TierName must not be empty")
	}
	Store(t, tier)
}
