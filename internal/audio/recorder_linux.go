//go:build linux

package audio

import (
	"errors"
	"fmt"
	"strings"
)

// pulsePlatform 通过PulseAudio/PipeWire采集，回环使用默认输出设备的monitor
type pulsePlatform struct{}

func newPlatform() platform {
	return pulsePlatform{}
}

func (pulsePlatform) micInput(_ string, device string) ([]string, error) {
	if device == "" {
		device = "default"
	}
	return []string{"-f", "pulse", "-i", device}, nil
}

func (pulsePlatform) loopbackInput(_ string) ([]string, error) {
	out, err := probe("pactl", "get-default-sink")
	if err != nil {
		return nil, fmt.Errorf("查询默认输出设备失败: %v", err)
	}
	sink := strings.TrimSpace(out)
	if sink == "" || strings.Contains(sink, " ") {
		return nil, errors.New("没有可用的默认输出设备")
	}
	return []string{"-f", "pulse", "-i", sink + ".monitor"}, nil
}
