package hazelcasttier_test

import (
	"context"
	"testing"
	"time"

	"github.com/hazelcast/hazelcast-go-client"

	"github.com/polarcache/httpcache/store/hazelcasttier"
	"github.com/polarcache/httpcache/test"
)

func TestHazelcastTier(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tier, err := hazelcasttier.New(ctx, hazelcast.Config{}, "httpcache_test")
	if err != nil {
		t.Skipf("skipping; Hazelcast not available: %v", err)
	}
	defer tier.Close(context.Background())

	test.Tier(t, tier)
}
