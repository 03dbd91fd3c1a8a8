//go:build darwin

package audio

import (
	"errors"
)

// avfoundationPlatform macOS下通过AVFoundation采集，回环需要BlackHole等虚拟声卡
type avfoundationPlatform struct{}

func newPlatform() platform {
	return avfoundationPlatform{}
}

func (avfoundationPlatform) micInput(_ string, device string) ([]string, error) {
	if device == "" {
		device = "default"
	}
	return []string{"-f", "avfoundation", "-i", ":" + device}, nil
}

func (avfoundationPlatform) loopbackInput(ffmpeg string) ([]string, error) {
	// ffmpeg列出设备后总是以非零状态退出，这里只看输出
	out, _ := probe(ffmpeg, "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	_, loopbacks := splitDevices(parseAVFoundationDevices(out))
	if len(loopbacks) == 0 {
		return nil, errors.New("未找到回环设备，可安装 BlackHole 2ch: brew install blackhole-2ch")
	}
	return []string{"-f", "avfoundation", "-i", ":" + loopbacks[0].ID}, nil
}
