package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingTone struct {
	plays int
	err   error
}

func (c *countingTone) Play() error {
	c.plays++
	return c.err
}

func TestNopIndicator(t *testing.T) {
	var ind Indicator = Nop{}
	assert.NoError(t, ind.Show(RecordingNotice))
	assert.NotPanics(t, ind.Dismiss)
}

func TestDesktopDismissWithoutShow(t *testing.T) {
	tone := &countingTone{err: errors.New("no device")}
	d := NewDesktop(DesktopOptions{AppName: "glite", Tone: tone})

	assert.NotPanics(t, d.Dismiss)
	assert.False(t, d.shown)
	assert.Equal(t, 0, tone.plays)
}
