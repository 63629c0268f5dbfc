package sessionring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingEvictsOnCount(t *testing.T) {
	r := New(2, 10000)
	r.Push("user", "one")
	r.Push("assistant", "two")
	r.Push("user", "three")
	assert.Equal(t, 2, r.Len())
	all := r.All()
	assert.Equal(t, "two", all[0].Content)
	assert.Equal(t, "three", all[1].Content)
}

func TestRingEvictsOnBytes(t *testing.T) {
	r := New(100, 10)
	r.Push("user", strings.Repeat("a", 8))
	r.Push("user", strings.Repeat("b", 8))
	assert.LessOrEqual(t, r.Len(), 1)
}

func TestRingSearchRanksByOverlap(t *testing.T) {
	r := New(50, 50000)
	r.Push("user", "restart the gateway service")
	r.Push("user", "unrelated disk cleanup notes")
	r.Push("assistant", "gateway restart complete")

	results := r.Search("restart gateway", 10)
	assert.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "gateway")
}
