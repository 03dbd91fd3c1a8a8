package storage

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Surface 一个可以打开的设置界面
type Surface struct {
	Name    string   // 日志中使用的名称
	Command []string // 打开界面的命令
}

// Launcher 执行打开设置界面的命令
type Launcher func(command []string) error

// SettingsNavigator 引导用户到授予存储权限的设置界面
type SettingsNavigator struct {
	AppScoped  Surface // 应用专属的存储权限设置
	General    Surface // 系统通用的存储权限设置
	AppDetails Surface // 应用详情（不支持应用级权限的宿主）
	// Scoped 宿主是否支持应用级存储权限
	Scoped bool
	Launch Launcher
}

// NewSettingsNavigator 根据当前平台生成默认的设置界面
func NewSettingsNavigator(appID, root string) *SettingsNavigator {
	n := &SettingsNavigator{Launch: execLauncher}
	details := nearestExisting(root)
	if details == "" {
		details = "."
	}

	switch runtime.GOOS {
	case "darwin":
		n.Scoped = true
		n.AppScoped = Surface{"应用文件访问权限", []string{"open", "x-apple.systempreferences:com.apple.preference.security?Privacy_AllFiles"}}
		n.General = Surface{"隐私与安全性", []string{"open", "x-apple.systempreferences:com.apple.preference.security"}}
		n.AppDetails = Surface{"应用目录", []string{"open", details}}
	case "windows":
		n.Scoped = true
		n.AppScoped = Surface{"应用文件系统访问权限", []string{"explorer.exe", "ms-settings:privacy-broadfilesystemaccess"}}
		n.General = Surface{"隐私设置", []string{"explorer.exe", "ms-settings:privacy"}}
		n.AppDetails = Surface{"应用目录", []string{"explorer.exe", details}}
	default:
		// 只有沙盒中运行的应用才有应用级权限
		n.Scoped = os.Getenv("FLATPAK_ID") != ""
		n.AppScoped = Surface{"应用权限", []string{"gnome-control-center", "applications", appID}}
		n.General = Surface{"隐私设置", []string{"gnome-control-center", "privacy"}}
		n.AppDetails = Surface{"应用目录", []string{"xdg-open", details}}
	}
	return n
}

// RequestAccess 依次尝试打开设置界面，全部失败时只记录日志
// 支持应用级权限时：应用专属设置 -> 通用设置；否则打开应用详情
func (n *SettingsNavigator) RequestAccess() {
	chain := []Surface{n.AppDetails}
	if n.Scoped {
		chain = []Surface{n.AppScoped, n.General}
	}

	for i, s := range chain {
		err := n.open(s)
		if err == nil {
			logrus.Infof("已打开%s", s.Name)
			return
		}
		if i < len(chain)-1 {
			logrus.Warnf("打开%s失败: %v, 尝试下一个设置界面", s.Name, err)
		} else {
			logrus.Errorf("无法打开任何存储权限设置界面: %v", err)
		}
	}
}

func (n *SettingsNavigator) open(s Surface) error {
	if len(s.Command) == 0 {
		return errors.New("未配置打开命令")
	}
	launch := n.Launch
	if launch == nil {
		launch = execLauncher
	}
	return launch(s.Command)
}

func execLauncher(command []string) error {
	cmd := exec.Command(command[0], command[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("启动%s失败: %w", command[0], err)
	}
	// 设置界面独立运行，不等待其退出
	go cmd.Wait()
	return nil
}
