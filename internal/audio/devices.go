package audio

import (
	"regexp"
	"strings"
)

// Device 输入设备
type Device struct {
	ID   string
	Name string
}

var (
	avfoundationDeviceRe = regexp.MustCompile(`\]\s*\[(\d+)\]\s*(.+)$`)
	dshowQuotedRe        = regexp.MustCompile(`"([^"]+)"`)
)

// 常见的系统回环设备名称
var loopbackNames = []string{
	"BlackHole",
	"Soundflower",
	"Loopback Audio",
	"Stereo Mix",
	"立体声混音",
	"What U Hear",
}

// IsLoopbackName 判断设备名称是否为系统播放回环设备
func IsLoopbackName(name string) bool {
	lower := strings.ToLower(name)
	for _, n := range loopbackNames {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// parseAVFoundationDevices 解析 `ffmpeg -f avfoundation -list_devices true -i ""` 的音频设备部分
func parseAVFoundationDevices(output string) []Device {
	var devices []Device
	inAudio := false
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, "AVFoundation audio devices"):
			inAudio = true
			continue
		case strings.Contains(line, "AVFoundation video devices"):
			inAudio = false
			continue
		}
		if !inAudio {
			continue
		}
		m := avfoundationDeviceRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		devices = append(devices, Device{ID: m[1], Name: strings.TrimSpace(m[2])})
	}
	return devices
}

// parseDShowDevices 解析 `ffmpeg -list_devices true -f dshow -i dummy` 的音频设备
// 同时兼容新版的 "(audio)" 后缀格式和旧版的分段格式
func parseDShowDevices(output string) []Device {
	var devices []Device
	inAudio := false
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, "DirectShow audio devices"):
			inAudio = true
			continue
		case strings.Contains(line, "DirectShow video devices"):
			inAudio = false
			continue
		case strings.Contains(line, "Alternative name"):
			continue
		}
		tagged := strings.Contains(line, "(audio)")
		if !tagged && !inAudio {
			continue
		}
		m := dshowQuotedRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		devices = append(devices, Device{ID: m[1], Name: m[1]})
	}
	return devices
}

// splitDevices 将设备分为麦克风和回环设备
func splitDevices(devices []Device) (mics, loopbacks []Device) {
	for _, d := range devices {
		if IsLoopbackName(d.Name) {
			loopbacks = append(loopbacks, d)
		} else {
			mics = append(mics, d)
		}
	}
	return mics, loopbacks
}
