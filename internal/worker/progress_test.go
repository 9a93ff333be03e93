package worker

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	p := NewProgress(&bytes.Buffer{}, 10, false)
	p.Update(5, 10, 0)

	assert.Equal(t, 5, p.completed)
	assert.Equal(t, 10, p.total)
}

func TestProgress_Print(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 10, true)
	p.startTime = time.Now().Add(-10 * time.Second)

	p.Update(5, 10, 1)

	out := buf.String()
	assert.Contains(t, out, "█")
	assert.Contains(t, out, "5/10 tiles")
	assert.Contains(t, out, "(1 failed)")
	assert.Contains(t, out, "tiles/sec")
	assert.Contains(t, out, "ETA:")
}

func TestProgress_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 0, true)
	p.Print()
	assert.Contains(t, buf.String(), "0/0 tiles")
}

func TestProgress_Done(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 3, true)
	p.startTime = time.Now().Add(-3 * time.Second)

	p.Update(3, 3, 0)
	buf.Reset()
	p.Done()

	assert.Contains(t, buf.String(), "Done in")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgress_Summary(t *testing.T) {
	p := NewProgress(&bytes.Buffer{}, 10, false)
	p.startTime = time.Now().Add(-10 * time.Second)
	p.Update(10, 10, 2)

	summary := p.Summary()
	assert.Contains(t, summary, "8/10 tiles")
	assert.Contains(t, summary, "2 failed")
}

func TestProgress_Disabled(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 10, false)
	p.Callback()(5, 10, 1)

	assert.Zero(t, buf.Len())
	assert.Equal(t, 1, p.failed)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		expected string
		duration time.Duration
	}{
		{"30s", 30 * time.Second},
		{"1m30s", 90 * time.Second},
		{"5m0s", 5 * time.Minute},
		{"1h5m", 65 * time.Minute},
		{"2h30m", 2*time.Hour + 30*time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDuration(tt.duration))
		})
	}
}
