//go:build windows

package audio

import (
	"errors"
)

// dshowPlatform Windows下通过DirectShow采集，回环使用"立体声混音"设备
type dshowPlatform struct{}

func newPlatform() platform {
	return dshowPlatform{}
}

func (dshowPlatform) devices(ffmpeg string) []Device {
	out, _ := probe(ffmpeg, "-hide_banner", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
	return parseDShowDevices(out)
}

func (p dshowPlatform) micInput(ffmpeg, device string) ([]string, error) {
	if device == "" {
		// DirectShow没有默认设备，取第一个非回环设备
		mics, _ := splitDevices(p.devices(ffmpeg))
		if len(mics) == 0 {
			return nil, errors.New("未找到麦克风设备")
		}
		device = mics[0].Name
	}
	return []string{"-f", "dshow", "-i", "audio=" + device}, nil
}

func (p dshowPlatform) loopbackInput(ffmpeg string) ([]string, error) {
	_, loopbacks := splitDevices(p.devices(ffmpeg))
	if len(loopbacks) == 0 {
		return nil, errors.New("未找到立体声混音设备，请在声音设置中启用")
	}
	return []string{"-f", "dshow", "-i", "audio=" + loopbacks[0].Name}, nil
}
