// Package tone 通过 Oto 播放录音提示音
package tone

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/oto"
	"github.com/sirupsen/logrus"
)

const (
	toneSampleRate  = 44100
	toneChannels    = 1
	toneBytes       = 2 // 16bit
	toneAmplitude   = 0.3
	toneFrequency   = 1400.0
	toneDuration    = 200 * time.Millisecond
	toneGap         = 120 * time.Millisecond
	tonePlayTimeout = 2 * time.Second
)

// Player 播放录音提示音，使用Oto输出
type Player struct {
	mu        sync.Mutex
	context   *oto.Context // Oto上下文，整个进程只能创建一个
	dummyMode bool         // 无法打开输出设备时不发声
	pcm       []byte       // 预先生成的提示音
}

var (
	shared     *Player
	sharedOnce sync.Once
)

// Shared 返回进程内唯一的提示音播放器
func Shared() *Player {
	sharedOnce.Do(func() {
		shared = newPlayer()
	})
	return shared
}

func newPlayer() *Player {
	p := &Player{
		pcm: beepPCM(toneFrequency, toneDuration, toneGap, 2),
	}
	ctx, err := oto.NewContext(toneSampleRate, toneChannels, toneBytes, toneSampleRate*toneBytes/10)
	if err != nil {
		logrus.Warnf("初始化Oto失败: %v, 提示音将以哑模式运行", err)
		p.dummyMode = true
		return p
	}
	p.context = ctx
	return p
}

// Play 播放两声短促的提示音，超时后放弃
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dummyMode {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		player := p.context.NewPlayer()
		defer player.Close()
		if _, err := player.Write(p.pcm); err != nil {
			done <- fmt.Errorf("写入提示音失败: %v", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(tonePlayTimeout):
		logrus.Warn("播放提示音超时")
		return fmt.Errorf("播放提示音超时")
	}
}

// IsDummyMode 是否在哑模式下运行
func (p *Player) IsDummyMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dummyMode
}

// beepPCM 生成count声正弦提示音的16bit小端PCM，每声之间静音gap
func beepPCM(freq float64, tone, gap time.Duration, count int) []byte {
	toneSamples := int(float64(toneSampleRate) * tone.Seconds())
	gapSamples := int(float64(toneSampleRate) * gap.Seconds())
	buf := make([]byte, 0, (toneSamples+gapSamples)*count*toneBytes)

	for n := 0; n < count; n++ {
		for i := 0; i < toneSamples; i++ {
			// 首尾5ms淡入淡出，避免爆音
			env := 1.0
			fade := toneSampleRate / 200
			if i < fade {
				env = float64(i) / float64(fade)
			} else if i > toneSamples-fade {
				env = float64(toneSamples-i) / float64(fade)
			}
			v := int16(env * toneAmplitude * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/toneSampleRate))
			buf = append(buf, byte(v), byte(v>>8))
		}
		if n < count-1 {
			buf = append(buf, make([]byte, gapSamples*toneBytes)...)
		}
	}
	return buf
}
