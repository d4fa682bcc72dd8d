package bant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMergeNeverRegressesConfirmedField(t *testing.T) {
	prior := State{Budget: strPtr("25M"), Authority: strPtr(AuthorityYes)}

	// 本轮什么都没提取到，已确认字段必须原样保留
	next := Merge(prior, Extraction{})
	require.NotNil(t, next.Budget)
	assert.Equal(t, "25M", *next.Budget)
	require.NotNil(t, next.Authority)
	assert.Equal(t, AuthorityYes, *next.Authority)
	assert.Nil(t, next.Need)
	assert.Nil(t, next.Timeline)
	assert.False(t, next.Completed)
}

func TestMergeOverwritesWithExplicitNewValue(t *testing.T) {
	prior := State{Budget: strPtr("25M")}
	next := Merge(prior, Extraction{Budget: strPtr("30M")})
	require.NotNil(t, next.Budget)
	assert.Equal(t, "30M", *next.Budget)
}

func TestMergeEmptyStringDoesNotClear(t *testing.T) {
	prior := State{Need: strPtr(NeedResidential)}
	next := Merge(prior, Extraction{Need: strPtr("")})
	require.NotNil(t, next.Need)
	assert.Equal(t, NeedResidential, *next.Need)
}

func TestMergeCompletedDerived(t *testing.T) {
	prior := State{
		Budget:    strPtr("25M"),
		Authority: strPtr(AuthorityYes),
		Need:      strPtr(NeedResidential),
	}
	next := Merge(prior, Extraction{Timeline: strPtr(Timeline1To3)})
	assert.True(t, next.Completed)
}

func TestMergeCopiesPointers(t *testing.T) {
	// 合并结果不得与输入共享底层指针，否则会话间状态可能互相污染
	v := "25M"
	prior := State{Budget: &v}
	next := Merge(prior, Extraction{})
	v = "mutated"
	require.NotNil(t, next.Budget)
	assert.Equal(t, "25M", *next.Budget)
}

func TestNextMissingFieldPriority(t *testing.T) {
	s := State{}
	assert.Equal(t, "budget", s.NextMissingField())

	s.Budget = strPtr("25M")
	assert.Equal(t, "authority", s.NextMissingField())

	s.Authority = strPtr(AuthorityYes)
	assert.Equal(t, "need", s.NextMissingField())

	s.Need = strPtr(NeedResidential)
	assert.Equal(t, "timeline", s.NextMissingField())

	s.Timeline = strPtr(Timeline3To6)
	assert.Equal(t, "", s.NextMissingField())
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, State{}.IsEmpty())
	assert.False(t, State{Budget: strPtr("1M")}.IsEmpty())
}

func TestDedupCache(t *testing.T) {
	cache := NewDedupCache(DefaultDedupTTL)
	key := DedupKey("conv-1", "msg-1")

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Put(key, State{Budget: strPtr("25M")})
	got, ok := cache.Get(key)
	require.True(t, ok)
	require.NotNil(t, got.Budget)
	assert.Equal(t, "25M", *got.Budget)

	// 不同消息不共享缓存
	_, ok = cache.Get(DedupKey("conv-1", "msg-2"))
	assert.False(t, ok)

	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 0, cache.Sweep())
}
