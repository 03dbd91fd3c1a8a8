//go:build !linux && !darwin && !windows

package audio

import "errors"

type unsupportedPlatform struct{}

func newPlatform() platform {
	return unsupportedPlatform{}
}

func (unsupportedPlatform) micInput(string, string) ([]string, error) {
	return nil, errors.New("当前平台不支持录音")
}

func (unsupportedPlatform) loopbackInput(string) ([]string, error) {
	return nil, errors.New("当前平台不支持录音")
}
