package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestFPSMeter_RecomputesOnlyAfterOneSecond(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	m := NewFPSMeter(clock.now)

	for i := 0; i < 9; i++ {
		clock.advance(100 * time.Millisecond)
		assert.Zero(t, m.Tick(), "frame %d: under one second", i+1)
	}
	assert.Equal(t, 9, m.Pending())

	clock.advance(100 * time.Millisecond)
	assert.InDelta(t, 10.0, m.Tick(), 1e-9)
	assert.Zero(t, m.Pending(), "counter resets on recomputation")

	clock.advance(500 * time.Millisecond)
	assert.InDelta(t, 10.0, m.Tick(), 1e-9, "value held until the next full second")
	assert.Equal(t, 1, m.Pending())

	clock.advance(1500 * time.Millisecond)
	assert.InDelta(t, 1.0, m.Tick(), 1e-9)
	assert.InDelta(t, 1.0, m.FPS(), 1e-9)
}

func TestFPSMeter_DefaultClock(t *testing.T) {
	m := NewFPSMeter(nil)
	assert.Zero(t, m.Tick())
}

func TestTimings_Summary(t *testing.T) {
	var tm Timings
	tm.Add(10*time.Millisecond, 4*time.Millisecond)
	tm.Add(20*time.Millisecond, 2*time.Millisecond)
	tm.Add(30*time.Millisecond, 0)

	s := tm.Summary(12.5, true)
	assert.Equal(t, 3, s.Frames)
	assert.Equal(t, 20*time.Millisecond, s.AvgFace)
	assert.Equal(t, 2*time.Millisecond, s.AvgEye)
	assert.Equal(t, 12.5, s.FPS)

	off := tm.Summary(12.5, false)
	assert.Zero(t, off.AvgEye)
	assert.Equal(t, 20*time.Millisecond, off.AvgFace)
}

func TestSummary_WriteTo(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    string
	}{
		{
			name:    "no frames prints nothing",
			summary: Summary{FPS: 30, EyesEnabled: true},
			want:    "",
		},
		{
			name: "eyes enabled",
			summary: Summary{
				FPS: 29.456, Frames: 10, EyesEnabled: true,
				AvgFace: 12346 * time.Microsecond, AvgEye: 2500 * time.Microsecond,
			},
			want: "Average FPS: 29.46\n" +
				"Average Face Detection Time: 12.35 ms\n" +
				"Average Eye Detection Time: 2.50 ms\n",
		},
		{
			name:    "eyes disabled",
			summary: Summary{FPS: 15, Frames: 1, AvgFace: time.Millisecond},
			want: "Average FPS: 15.00\n" +
				"Average Face Detection Time: 1.00 ms\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tc.summary.WriteTo(&buf)
			require.NoError(t, err)
			assert.Equal(t, tc.want, buf.String())
			assert.Equal(t, int64(len(tc.want)), n)
		})
	}
}
