package audio

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	loopbackErr error
}

func (fakePlatform) micInput(_, device string) ([]string, error) {
	if device == "" {
		device = "default"
	}
	return []string{"-f", "fake", "-i", device}, nil
}

func (p fakePlatform) loopbackInput(string) ([]string, error) {
	if p.loopbackErr != nil {
		return nil, p.loopbackErr
	}
	return []string{"-f", "fake", "-i", "monitor"}, nil
}

// fakeFFmpeg 写一个假的ffmpeg脚本
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for ffmpeg needs a unix shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestBuildArgsSingleInput(t *testing.T) {
	args := buildArgs([][]string{{"-f", "pulse", "-i", "default"}}, DefaultProfile, "/tmp/out.m4a")

	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "pulse", "-i", "default",
		"-c:a", "aac", "-b:a", "128000", "-ar", "44100",
		"-f", "mp4", "-y", "/tmp/out.m4a",
	}, args)
}

func TestBuildArgsMixesTwoInputs(t *testing.T) {
	p := DefaultProfile
	p.Channels = 1
	args := buildArgs([][]string{{"-i", "mic"}, {"-i", "monitor"}}, p, "out.m4a")

	assert.Contains(t, args, "amix=inputs=2:duration=longest:dropout_transition=0")
	assert.Contains(t, args, "-ac")
	assert.Equal(t, "out.m4a", args[len(args)-1])
}

func TestProfileValidate(t *testing.T) {
	assert.NoError(t, DefaultProfile.Validate())

	bad := DefaultProfile
	bad.BitRate = 0
	assert.Error(t, bad.Validate())

	bad = DefaultProfile
	bad.Codec = ""
	assert.Error(t, bad.Validate())
}

func TestSetAudioSourceVoiceCallUnsupported(t *testing.T) {
	r := newFFmpegRecorder(Options{}.withDefaults(), fakePlatform{loopbackErr: errors.New("no monitor")})

	err := r.SetAudioSource(SourceVoiceCall)
	assert.ErrorIs(t, err, ErrSourceUnsupported)
	assert.NoError(t, r.SetAudioSource(SourceMic))
}

func TestPrepareWithoutFFmpeg(t *testing.T) {
	r := newFFmpegRecorder(Options{FFmpegPath: filepath.Join(t.TempDir(), "missing")}.withDefaults(), fakePlatform{})
	require.NoError(t, r.SetAudioSource(SourceMic))
	r.SetOutputFile(filepath.Join(t.TempDir(), "out.m4a"))

	assert.ErrorIs(t, r.Prepare(), ErrFFmpegNotFound)
}

func TestStartBeforePrepare(t *testing.T) {
	r := newFFmpegRecorder(Options{}.withDefaults(), fakePlatform{})
	require.NoError(t, r.SetAudioSource(SourceMic))

	assert.ErrorIs(t, r.Start(), ErrNotPrepared)
	assert.ErrorIs(t, r.Stop(), ErrNotRecording)
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := newFFmpegRecorder(Options{}.withDefaults(), fakePlatform{})

	assert.NoError(t, r.Release())
	assert.NoError(t, r.Release())
	assert.ErrorIs(t, r.SetAudioSource(SourceMic), ErrReleased)
	assert.ErrorIs(t, r.Prepare(), ErrReleased)
}

func TestStartStopWithFakeFFmpeg(t *testing.T) {
	bin := fakeFFmpeg(t, "cat > /dev/null\nexit 0")
	out := filepath.Join(t.TempDir(), "REC_1_20240101_000000.m4a")

	r := newFFmpegRecorder(Options{FFmpegPath: bin}.withDefaults(), fakePlatform{})
	var asyncErr error
	r.SetOnError(func(err error) { asyncErr = err })
	require.NoError(t, r.SetAudioSource(SourceVoiceCall))
	r.SetProfile(DefaultProfile)
	r.SetOutputFile(out)

	require.NoError(t, r.Prepare())
	assert.FileExists(t, out)
	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Start(), ErrAlreadyStarted)

	require.NoError(t, r.Stop())
	require.NoError(t, r.Release())
	assert.NoError(t, asyncErr)
}

func TestUnexpectedExitCallsOnError(t *testing.T) {
	bin := fakeFFmpeg(t, "echo 'device busy' >&2\nexit 3")

	r := newFFmpegRecorder(Options{FFmpegPath: bin}.withDefaults(), fakePlatform{})
	errCh := make(chan error, 1)
	r.SetOnError(func(err error) { errCh <- err })
	require.NoError(t, r.SetAudioSource(SourceMic))
	r.SetOutputFile(filepath.Join(t.TempDir(), "out.m4a"))
	require.NoError(t, r.Prepare())
	require.NoError(t, r.Start())

	select {
	case err := <-errCh:
		assert.Contains(t, err.Error(), "device busy")
	case <-time.After(5 * time.Second):
		t.Fatal("onError was not called")
	}
	assert.ErrorIs(t, r.Stop(), ErrNotRecording)
	assert.NoError(t, r.Release())
}

func TestStopTimeoutKillsProcess(t *testing.T) {
	bin := fakeFFmpeg(t, "trap '' INT\nwhile true; do sleep 1; done")

	r := newFFmpegRecorder(Options{FFmpegPath: bin, StopTimeout: 200 * time.Millisecond}, fakePlatform{})
	require.NoError(t, r.SetAudioSource(SourceMic))
	r.SetOutputFile(filepath.Join(t.TempDir(), "out.m4a"))
	require.NoError(t, r.Prepare())
	require.NoError(t, r.Start())

	assert.Error(t, r.Stop())
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	b := newTailBuffer(4)
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))

	assert.Equal(t, "defg", b.String())
}
