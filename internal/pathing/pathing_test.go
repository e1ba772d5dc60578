package pathing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint([]byte("hello world"))
	b := Fingerprint([]byte("hello world"))
	require.Equal(t, a, b)
	require.Len(t, a, 32)

	c := Fingerprint([]byte("hello world!"))
	require.NotEqual(t, a, c)
}

func TestShardStableAndBounded(t *testing.T) {
	fp := Fingerprint([]byte("some image bytes"))
	l1a, l2a := Shard(fp, 1024)
	l1b, l2b := Shard(fp, 1024)
	assert.Equal(t, l1a, l1b)
	assert.Equal(t, l2a, l2b)
	assert.True(t, l1a >= 0 && l1a < 1024)
	assert.True(t, l2a >= 0 && l2a < 1024)
}

func TestRenditionNameOrigin(t *testing.T) {
	assert.Equal(t, OriginSuffix, RenditionName(0, 0, true, false))
}

func TestRenditionNameCombinations(t *testing.T) {
	cases := []struct {
		w, h       int
		proportion bool
		gray       bool
		want       string
	}{
		{100, 50, true, true, "100*50pg"},
		{100, 50, true, false, "100*50p"},
		{100, 50, false, true, "100*50g"},
		{100, 50, false, false, "100*50"},
		{0, 0, true, true, "0*0pg"},
	}
	for _, tc := range cases {
		got := RenditionName(tc.w, tc.h, tc.proportion, tc.gray)
		assert.Equal(t, tc.want, got)
	}
}

func TestKeyInjective(t *testing.T) {
	seen := map[string]bool{}
	fp := "f" // fingerprints don't matter for this injectivity check
	for _, w := range []int{0, 100} {
		for _, h := range []int{0, 50} {
			for _, p := range []bool{true, false} {
				for _, g := range []bool{true, false} {
					k := Key(fp, w, h, p, g)
					require.False(t, seen[k], "duplicate key %s", k)
					seen[k] = true
				}
			}
		}
	}
}

func TestPaths(t *testing.T) {
	dir, origin, rendition := Paths("/root", "abc123", 7, 9, "100*50p")
	assert.Equal(t, "/root/7/9/abc123", dir)
	assert.Equal(t, "/root/7/9/abc123/0*0p", origin)
	assert.Equal(t, "/root/7/9/abc123/100*50p", rendition)
}
