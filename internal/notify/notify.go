// Package notify 录音期间向宿主环境发出前台提示
package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"
)

// Notice 前台提示内容
type Notice struct {
	Title string
	Text  string
}

// RecordingNotice 录音进行中的默认提示
var RecordingNotice = Notice{
	Title: "Recording in progress",
	Text:  "Your call is being recorded",
}

// Indicator 向宿主环境声明有长时间任务在进行
type Indicator interface {
	Show(n Notice) error
	Dismiss()
}

// Tone 提示音
type Tone interface {
	Play() error
}

// DesktopOptions 桌面提示选项
type DesktopOptions struct {
	AppName string // 通知中显示的应用名称
	Tone    Tone   // 开始录音时播放的提示音，为nil时不播放
}

// Desktop 通过系统通知和提示音实现 Indicator
type Desktop struct {
	opts  DesktopOptions
	shown bool
}

// NewDesktop 创建桌面提示器
func NewDesktop(opts DesktopOptions) *Desktop {
	return &Desktop{opts: opts}
}

// Show 发送系统通知，可选播放提示音
func (d *Desktop) Show(n Notice) error {
	title := n.Title
	if d.opts.AppName != "" {
		title = d.opts.AppName + ": " + title
	}
	if err := beeep.Notify(title, n.Text, ""); err != nil {
		return err
	}
	d.shown = true
	logrus.Debugf("已发送前台通知: %s", n.Title)

	if d.opts.Tone != nil {
		if err := d.opts.Tone.Play(); err != nil {
			logrus.Warnf("播放提示音失败: %v", err)
		}
	}
	return nil
}

// Dismiss 系统通知无法撤回，这里只记录状态
func (d *Desktop) Dismiss() {
	if !d.shown {
		return
	}
	d.shown = false
	logrus.Debug("前台通知已结束")
}

// Nop 不做任何提示
type Nop struct{}

func (Nop) Show(Notice) error { return nil }
func (Nop) Dismiss()          {}
