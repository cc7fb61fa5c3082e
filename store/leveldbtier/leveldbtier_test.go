package leveldbtier_test

import (
	"path/filepath"
	"testing"

	"github.com/polarcache/httpcache/store/leveldbtier"
	"github.com/polarcache/httpcache/test"
)

func TestLevelDBTier(t *testing.T) {
	tier, err := leveldbtier.New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer tier.Close()

	test.Tier(t, tier)
}
