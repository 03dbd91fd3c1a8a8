package recorder

import (
	"fmt"
	"strings"
	"time"

	"github.com/justa-cai/glite-go/internal/audio"
)

const (
	FilePrefix      = "REC"
	UnknownTarget   = "unknown"
	timestampLayout = "20060102_150405"
)

// Session 一次录音会话
type Session struct {
	Active     bool
	OutputPath string
	Target     string // 清洗后的标识，例如电话号码
	StartedAt  time.Time
	Source     audio.Source // 实际使用的音源
}

// Duration 返回会话已持续的时间
func (s Session) Duration(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// SanitizeTarget 把[0-9+]以外的字符替换为'_'，空标识返回"unknown"
func SanitizeTarget(target string) string {
	if target == "" {
		return UnknownTarget
	}
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return '_'
	}, target)
}

// FileName 生成 REC_<token>_<yyyyMMdd_HHmmss>.<ext>
func FileName(token string, t time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", FilePrefix, token, t.Format(timestampLayout), ext)
}
