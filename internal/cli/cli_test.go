package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justa-cai/glite-go/internal/audio"
	"github.com/justa-cai/glite-go/internal/bridge"
	"github.com/justa-cai/glite-go/internal/client"
	"github.com/justa-cai/glite-go/internal/config"
	"github.com/justa-cai/glite-go/internal/recorder"
)

type stubRecorder struct {
	mu      sync.Mutex
	targets []string
	ends    int
	err     error
}

func (s *stubRecorder) Begin(_ context.Context, target string) (*recorder.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, target)
	if s.err != nil {
		return nil, s.err
	}
	return &recorder.Session{Active: true}, nil
}

func (s *stubRecorder) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ends++
	return nil
}

func (s *stubRecorder) calls() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.targets...), s.ends
}

type stubFolder struct{ access bool }

func (f *stubFolder) HasAccess() bool    { return f.access }
func (f *stubFolder) EnsureFolder() bool { return f.access }
func (f *stubFolder) Path() string       { return "/srv/glite" }
func (f *stubFolder) Exists() bool       { return false }

type stubAccess struct{}

func (stubAccess) RequestAccess() {}

func runCLI(t *testing.T, rec *stubRecorder, folder *stubFolder, args ...string) (string, error) {
	t.Helper()
	srv := bridge.NewServer(bridge.New(rec, folder, stubAccess{}), audio.DefaultProfile)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + bridge.ChannelPath

	deps := &Dependencies{
		Config: config.Default(),
		Dial: func(string) (*client.Client, error) {
			return dialWebsocket(url)
		},
	}
	var out bytes.Buffer
	root := NewRootCmd(deps)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestStartWithNumber(t *testing.T) {
	rec := &stubRecorder{}
	out, err := runCLI(t, rec, &stubFolder{}, "start", "--number", "+1-555-0100")
	require.NoError(t, err)
	assert.Contains(t, out, "Recording started")
	targets, _ := rec.calls()
	assert.Equal(t, []string{"+1-555-0100"}, targets)
}

func TestStartWithoutNumber(t *testing.T) {
	rec := &stubRecorder{}
	_, err := runCLI(t, rec, &stubFolder{}, "start")
	require.NoError(t, err)
	targets, _ := rec.calls()
	assert.Equal(t, []string{""}, targets)
}

func TestStartFailureIsReported(t *testing.T) {
	rec := &stubRecorder{err: &recorder.CaptureError{Kind: recorder.KindSessionBusy, Err: errors.New("正在录音")}}
	_, err := runCLI(t, rec, &stubFolder{}, "start")
	assert.ErrorContains(t, err, "session_busy")
}

func TestStop(t *testing.T) {
	rec := &stubRecorder{}
	out, err := runCLI(t, rec, &stubFolder{}, "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "Recording stopped")
	_, ends := rec.calls()
	assert.Equal(t, 1, ends)
}

func TestFolderCommands(t *testing.T) {
	out, err := runCLI(t, &stubRecorder{}, &stubFolder{access: true}, "access")
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out)

	out, err = runCLI(t, &stubRecorder{}, &stubFolder{}, "folder-exists")
	require.NoError(t, err)
	assert.Equal(t, "no\n", out)

	out, err = runCLI(t, &stubRecorder{}, &stubFolder{}, "folder-path")
	require.NoError(t, err)
	assert.Equal(t, "/srv/glite\n", out)

	_, err = runCLI(t, &stubRecorder{}, &stubFolder{}, "ensure-folder")
	assert.Error(t, err)

	_, err = runCLI(t, &stubRecorder{}, &stubFolder{}, "request-access")
	assert.NoError(t, err)
}

func TestDaemonUnreachable(t *testing.T) {
	deps := &Dependencies{
		Config: config.Default(),
		Dial: func(string) (*client.Client, error) {
			return nil, errors.New("connection refused")
		},
	}
	root := NewRootCmd(deps)
	root.SetArgs([]string{"stop"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	assert.ErrorContains(t, err, "connection refused")
}
