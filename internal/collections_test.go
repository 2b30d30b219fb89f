package internal

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAddAndContains(t *testing.T) {
	set := NewSet[int]()
	set.Add(1)
	set.Add(2)
	set.Add(2)

	assert.Equal(t, 2, set.Size())
	assert.True(t, set.Contains(1))
	assert.True(t, set.Contains(2))
	assert.False(t, set.Contains(3))
}

func TestSetRemoveAndClear(t *testing.T) {
	set := NewSetFrom("a", "b", "c")
	set.Remove("b")
	set.Remove("missing")

	assert.Equal(t, 2, set.Size())
	assert.False(t, set.Contains("b"))

	set.Clear()
	assert.Equal(t, 0, set.Size())
}

func TestSetToSlice(t *testing.T) {
	set := NewSetFrom(3, 1, 2, 1)
	items := set.ToSlice()
	sort.Ints(items)
	assert.Equal(t, []int{1, 2, 3}, items)
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, Dedupe([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, Dedupe([]string{}))
}

func TestFilter(t *testing.T) {
	even := Filter([]int{1, 2, 3, 4, 5, 6}, func(v int) bool { return v%2 == 0 })
	assert.Equal(t, []int{2, 4, 6}, even)
}
