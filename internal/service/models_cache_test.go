package service

import (
	"testing"
	"time"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestModelsCache_Expires(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c := NewModelsCache(time.Hour)
	c.now = func() time.Time { return now }

	assert.Nil(t, c.Get())

	c.Set([]domain.AIModel{{ID: "a"}, {ID: "b", Name: "Bee"}})
	assert.Len(t, c.Get(), 2)
	m, ok := c.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, "Bee", m.Name)
	_, ok = c.Lookup("zzz")
	assert.False(t, ok)

	now = now.Add(time.Hour + time.Second)
	assert.Nil(t, c.Get())
	_, ok = c.Lookup("a")
	assert.False(t, ok)
}
