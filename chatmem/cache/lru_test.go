package cache

import (
	"fmt"
	"testing"

	"github.com/ZanzyTHEbar/chat-memstore/chatmem/message"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userMsg(text string) message.Message {
	return message.Message{Role: message.RoleUser, Content: message.Content{Text: text}}
}

func TestGetMissReturnsEmpty(t *testing.T) {
	c := NewPartitionCache(4)

	p, ok := c.Get("absent")
	assert.False(t, ok)
	assert.Nil(t, p.System)
	assert.Nil(t, p.Messages)
	assert.False(t, c.Has("absent"))
}

func TestPutIfAbsentKeepsIncumbent(t *testing.T) {
	c := NewPartitionCache(4)

	stored := c.PutIfAbsent("k", Partition{Messages: []message.Message{userMsg("first")}})
	assert.True(t, stored)

	// A second loader losing the seed race must not overwrite.
	stored = c.PutIfAbsent("k", Partition{Messages: []message.Message{userMsg("second")}})
	assert.False(t, stored)

	p, ok := c.Get("k")
	require.True(t, ok)
	require.Len(t, p.Messages, 1)
	assert.Equal(t, "first", p.Messages[0].Content.Text)
}

func TestGetReturnsIndependentCopies(t *testing.T) {
	c := NewPartitionCache(4)
	sys := message.Message{Role: message.RoleSystem, Content: message.Content{Text: "instructions"}}
	c.PutIfAbsent("k", Partition{System: &sys, Messages: []message.Message{userMsg("hi")}})

	p1, ok := c.Get("k")
	require.True(t, ok)
	p1.Messages[0].Content.Text = "corrupted"
	p1.System.Content.Text = "corrupted"

	p2, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hi", p2.Messages[0].Content.Text)
	assert.Equal(t, "instructions", p2.System.Content.Text)
}

func TestUpdateOnColdKeyIsNoOp(t *testing.T) {
	c := NewPartitionCache(4)

	touched := c.Update("cold", func(p *Partition) {
		p.Messages = append(p.Messages, userMsg("x"))
	})
	assert.False(t, touched)
	assert.False(t, c.Has("cold"))
}

func TestUpdateMutatesWarmEntry(t *testing.T) {
	c := NewPartitionCache(4)
	c.PutIfAbsent("k", Partition{Messages: []message.Message{userMsg("m1")}})

	touched := c.Update("k", func(p *Partition) {
		p.Messages = append(p.Messages, userMsg("m2"))
	})
	require.True(t, touched)

	p, _ := c.Get("k")
	require.Len(t, p.Messages, 2)
	assert.Equal(t, "m2", p.Messages[1].Content.Text)
}

func TestInvalidateAbsentKeyIsNoOp(t *testing.T) {
	c := NewPartitionCache(4)
	c.Invalidate("never-seen")
	assert.Equal(t, 0, c.Len())
}

func TestLRUEviction(t *testing.T) {
	c := NewPartitionCache(2)
	c.PutIfAbsent("a", Partition{})
	c.PutIfAbsent("b", Partition{})

	// Touch "a" so "b" becomes least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.PutIfAbsent("c", Partition{})
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("c"))
}

func TestConcurrentAccess(t *testing.T) {
	c := NewPartitionCache(64)

	var wg conc.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Go(func() {
			key := fmt.Sprintf("key-%d", i%4)
			for j := 0; j < 200; j++ {
				c.PutIfAbsent(key, Partition{Messages: []message.Message{userMsg("seed")}})
				c.Update(key, func(p *Partition) {
					p.Messages = append(p.Messages, userMsg("more"))
				})
				if p, ok := c.Get(key); ok {
					_ = p.Messages
				}
				if j%50 == 0 {
					c.Invalidate(key)
				}
			}
		})
	}
	wg.Wait()
}
