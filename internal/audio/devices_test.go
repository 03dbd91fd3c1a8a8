package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const avfoundationListing = `[AVFoundation indev @ 0x7f8] AVFoundation video devices:
[AVFoundation indev @ 0x7f8] [0] FaceTime HD Camera
[AVFoundation indev @ 0x7f8] [1] Capture screen 0
[AVFoundation indev @ 0x7f8] AVFoundation audio devices:
[AVFoundation indev @ 0x7f8] [0] MacBook Pro Microphone
[AVFoundation indev @ 0x7f8] [1] BlackHole 2ch
: Input/output error`

const dshowListing = `[dshow @ 000001] "Integrated Camera" (video)
[dshow @ 000001]   Alternative name "@device_pnp_\\?\usb#vid"
[dshow @ 000001] "Microphone Array (Realtek(R) Audio)" (audio)
[dshow @ 000001]   Alternative name "@device_cm_{33D9A762}"
[dshow @ 000001] "立体声混音 (Realtek(R) Audio)" (audio)
dummy: Immediate exit requested`

const dshowLegacyListing = `[dshow @ 000002] DirectShow video devices (some may be both video and audio devices)
[dshow @ 000002]  "Integrated Camera"
[dshow @ 000002] DirectShow audio devices
[dshow @ 000002]  "Stereo Mix (Realtek High Definition Audio)"
[dshow @ 000002]  "Microphone (USB Audio)"`

func TestParseAVFoundationDevices(t *testing.T) {
	devices := parseAVFoundationDevices(avfoundationListing)

	assert.Equal(t, []Device{
		{ID: "0", Name: "MacBook Pro Microphone"},
		{ID: "1", Name: "BlackHole 2ch"},
	}, devices)

	mics, loopbacks := splitDevices(devices)
	assert.Len(t, mics, 1)
	assert.Equal(t, "1", loopbacks[0].ID)
}

func TestParseDShowDevices(t *testing.T) {
	devices := parseDShowDevices(dshowListing)

	assert.Len(t, devices, 2)
	mics, loopbacks := splitDevices(devices)
	assert.Equal(t, "Microphone Array (Realtek(R) Audio)", mics[0].Name)
	assert.Equal(t, "立体声混音 (Realtek(R) Audio)", loopbacks[0].Name)
}

func TestParseDShowLegacyDevices(t *testing.T) {
	devices := parseDShowDevices(dshowLegacyListing)

	assert.Equal(t, []Device{
		{ID: "Stereo Mix (Realtek High Definition Audio)", Name: "Stereo Mix (Realtek High Definition Audio)"},
		{ID: "Microphone (USB Audio)", Name: "Microphone (USB Audio)"},
	}, devices)
}

func TestIsLoopbackName(t *testing.T) {
	assert.True(t, IsLoopbackName("blackhole 16ch"))
	assert.True(t, IsLoopbackName("Stereo Mix (Realtek)"))
	assert.False(t, IsLoopbackName("USB Microphone"))
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "voice_call", SourceVoiceCall.String())
	assert.Equal(t, "mic", SourceMic.String())
}
