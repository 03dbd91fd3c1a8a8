package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justa-cai/glite-go/internal/protocol"
	"github.com/justa-cai/glite-go/internal/recorder"
)

type fakeRecorder struct {
	mu       sync.Mutex
	targets  []string
	ends     int
	beginErr error
	panicMsg string
}

func (f *fakeRecorder) Begin(_ context.Context, target string) (*recorder.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.targets = append(f.targets, target)
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &recorder.Session{Active: true, Target: recorder.SanitizeTarget(target)}, nil
}

func (f *fakeRecorder) End() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	return nil
}

type fakeFolder struct {
	mu      sync.Mutex
	access  bool
	ensured int
	exists  bool
}

func (f *fakeFolder) HasAccess() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

func (f *fakeFolder) EnsureFolder() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.access {
		return false
	}
	f.ensured++
	f.exists = true
	return true
}

func (f *fakeFolder) Path() string { return "/home/u/glite" }

func (f *fakeFolder) Exists() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists
}

type fakeAccess struct{ requests int }

func (f *fakeAccess) RequestAccess() { f.requests++ }

func newTestBridge() (*Bridge, *fakeRecorder, *fakeFolder, *fakeAccess) {
	rec := &fakeRecorder{}
	folder := &fakeFolder{}
	access := &fakeAccess{}
	return New(rec, folder, access), rec, folder, access
}

func call(channel, method string, args map[string]interface{}) protocol.MethodCall {
	return protocol.MethodCall{Type: protocol.TypeCall, ID: "req-1", Channel: channel, Method: method, Args: args}
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, CommandStartRecording, ParseCommand(protocol.ChannelCallRecording, "startRecording"))
	assert.Equal(t, CommandFolderExists, ParseCommand(protocol.ChannelStoragePermission, "folderExists"))
	assert.Equal(t, CommandUnknown, ParseCommand(protocol.ChannelStoragePermission, "startRecording"))
	assert.Equal(t, CommandUnknown, ParseCommand("", ""))

	assert.Equal(t, "stopRecording", CommandStopRecording.String())
	assert.Equal(t, protocol.ChannelStoragePermission, CommandEnsureOutputFolder.Channel())
	assert.Equal(t, "unknown", CommandUnknown.String())
}

func TestStartRecordingPassesPhoneNumber(t *testing.T) {
	b, rec, _, _ := newTestBridge()

	res := b.Dispatch(context.Background(), call(protocol.ChannelCallRecording, "startRecording",
		map[string]interface{}{"phoneNumber": "+1-555-0100"}))

	assert.Equal(t, protocol.StatusSuccess, res.Status)
	assert.Equal(t, "req-1", res.ID)
	assert.Equal(t, []string{"+1-555-0100"}, rec.targets)
}

func TestStartRecordingWithoutNumber(t *testing.T) {
	b, rec, _, _ := newTestBridge()

	b.Dispatch(context.Background(), call(protocol.ChannelCallRecording, "startRecording", nil))
	b.Dispatch(context.Background(), call(protocol.ChannelCallRecording, "startRecording",
		map[string]interface{}{"phoneNumber": nil}))

	assert.Equal(t, []string{"", ""}, rec.targets)
}

func TestStartRecordingFailureCarriesKind(t *testing.T) {
	b, rec, _, _ := newTestBridge()
	rec.beginErr = fmt.Errorf("begin: %w", &recorder.CaptureError{Kind: recorder.KindStartFailed, Op: "start", Err: errors.New("boom")})

	res := b.Dispatch(context.Background(), call(protocol.ChannelCallRecording, "startRecording", nil))

	assert.Equal(t, protocol.StatusError, res.Status)
	assert.Equal(t, "start_failed", res.ErrorKind)
	assert.Contains(t, res.Error, "boom")
}

func TestStartRecordingAfterClose(t *testing.T) {
	b, rec, _, _ := newTestBridge()
	rec.beginErr = recorder.ErrClosed

	res := b.Dispatch(context.Background(), call(protocol.ChannelCallRecording, "startRecording", nil))
	assert.Equal(t, KindClosed, res.ErrorKind)
}

func TestStopRecordingAlwaysSucceeds(t *testing.T) {
	b, rec, _, _ := newTestBridge()

	for i := 0; i < 2; i++ {
		res := b.Dispatch(context.Background(), call(protocol.ChannelCallRecording, "stopRecording", nil))
		assert.Equal(t, protocol.StatusSuccess, res.Status)
	}
	assert.Equal(t, 2, rec.ends)
}

func TestStorageCommands(t *testing.T) {
	b, _, folder, access := newTestBridge()
	ctx := context.Background()

	res := b.Dispatch(ctx, call(protocol.ChannelStoragePermission, "hasStorageAccess", nil))
	assert.Equal(t, false, res.Value)

	res = b.Dispatch(ctx, call(protocol.ChannelStoragePermission, "ensureOutputFolder", nil))
	assert.Equal(t, false, res.Value)
	assert.Equal(t, 0, folder.ensured)

	res = b.Dispatch(ctx, call(protocol.ChannelStoragePermission, "requestStorageAccess", nil))
	assert.Equal(t, protocol.StatusSuccess, res.Status)
	assert.Nil(t, res.Value)
	assert.Equal(t, 1, access.requests)

	folder.access = true
	res = b.Dispatch(ctx, call(protocol.ChannelStoragePermission, "ensureOutputFolder", nil))
	assert.Equal(t, true, res.Value)

	res = b.Dispatch(ctx, call(protocol.ChannelStoragePermission, "folderExists", nil))
	assert.Equal(t, true, res.Value)

	res = b.Dispatch(ctx, call(protocol.ChannelStoragePermission, "getOutputFolderPath", nil))
	assert.Equal(t, "/home/u/glite", res.Value)
}

func TestUnknownCommandIsNotImplemented(t *testing.T) {
	b, rec, _, _ := newTestBridge()

	res := b.Dispatch(context.Background(), call(protocol.ChannelCallRecording, "pauseRecording", nil))

	assert.Equal(t, protocol.StatusNotImplemented, res.Status)
	assert.Equal(t, "req-1", res.ID)
	assert.Empty(t, rec.targets)
	assert.Zero(t, rec.ends)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	b, rec, _, _ := newTestBridge()
	rec.panicMsg = "device exploded"

	res := b.Dispatch(context.Background(), call(protocol.ChannelCallRecording, "startRecording", nil))

	assert.Equal(t, protocol.StatusError, res.Status)
	assert.Equal(t, KindInternal, res.ErrorKind)
}

func TestOnAttachProvisionsFolderOnlyWithAccess(t *testing.T) {
	b, _, folder, _ := newTestBridge()

	b.OnAttach()
	assert.Equal(t, 0, folder.ensured)

	folder.access = true
	b.OnAttach()
	assert.Equal(t, 1, folder.ensured)
}
