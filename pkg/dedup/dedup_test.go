package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestShouldProcess(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := New(time.Minute, 10).WithClock(clk.now)

	assert.True(t, d.ShouldProcess("a"))
	assert.False(t, d.ShouldProcess("a"))
	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))

	clk.advance(61 * time.Second)
	assert.True(t, d.ShouldProcess("a"), "expired keys are processed again")
}

func TestForget(t *testing.T) {
	d := New(time.Minute, 10)
	assert.True(t, d.ShouldProcess("a"))
	d.Forget("a")
	d.Forget("missing")
	assert.Equal(t, 0, d.Len())
	assert.True(t, d.ShouldProcess("a"))
	assert.False(t, d.ShouldProcess("a"))
}

func TestCapEvictsOldest(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := New(time.Hour, 2).WithClock(clk.now)

	d.ShouldProcess("a")
	clk.advance(time.Second)
	d.ShouldProcess("b")
	clk.advance(time.Second)
	d.ShouldProcess("c")

	assert.Equal(t, 2, d.Len())
	assert.True(t, d.ShouldProcess("a"), "oldest key was evicted")
	assert.False(t, d.ShouldProcess("c"))
}

func TestPayloadKey(t *testing.T) {
	assert.Equal(t, PayloadKey([]byte("x")), PayloadKey([]byte("x")))
	assert.NotEqual(t, PayloadKey([]byte("x")), PayloadKey([]byte("y")))
	assert.Len(t, PayloadKey(nil), 64)
}

func TestDefaults(t *testing.T) {
	d := New(0, 0)
	assert.Equal(t, 10*time.Minute, d.ttl)
	assert.Equal(t, 10000, d.max)
}
