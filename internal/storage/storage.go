// Package storage 管理录音使用的固定目录以及存储访问权限
package storage

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	DefaultFolderName   = "glite"
	NoMediaFileName     = ".nomedia"
	RecordingsSubfolder = "CallRecordings"
)

// AccessChecker 判断进程是否有权写入某个目录
type AccessChecker func(path string) bool

// Storage 固定目录布局：<Root>/.nomedia 与 <Root>/CallRecordings
type Storage struct {
	Root          string
	RecordingsDir string
	checkAccess   AccessChecker
}

// New 使用默认的权限检查创建 Storage
func New(root string) *Storage {
	return NewWithChecker(root, writable)
}

// NewWithChecker 使用指定的权限检查创建 Storage
func NewWithChecker(root string, check AccessChecker) *Storage {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Storage{
		Root:          root,
		RecordingsDir: filepath.Join(root, RecordingsSubfolder),
		checkAccess:   check,
	}
}

// DefaultRoot 默认目录 ~/glite
func DefaultRoot() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, DefaultFolderName)
	}
	return filepath.Join(".", DefaultFolderName)
}

// HasAccess 检查存储权限：目录本身或最近的已存在上级目录可写
func (s *Storage) HasAccess() bool {
	dir := nearestExisting(s.Root)
	if dir == "" {
		return false
	}
	return s.checkAccess(dir)
}

// EnsureFolder 创建固定目录、.nomedia标记文件和录音子目录
// 没有存储权限时直接返回false，不创建任何内容
func (s *Storage) EnsureFolder() bool {
	log := logrus.WithField("path", s.Root)

	if !s.HasAccess() {
		log.Error("未获得存储访问权限")
		return false
	}

	if !isDir(s.Root) {
		if err := os.MkdirAll(s.Root, 0o755); err != nil {
			log.Errorf("创建glite目录失败: %v", err)
			return false
		}
		log.Info("成功创建glite目录")
	}

	noMedia := filepath.Join(s.Root, NoMediaFileName)
	if _, err := os.Stat(noMedia); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(noMedia, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			log.Warnf("创建.nomedia文件失败: %v", err)
		} else {
			f.Close()
			log.Debug("已创建.nomedia文件")
		}
	}

	if !isDir(s.RecordingsDir) {
		if err := os.MkdirAll(s.RecordingsDir, 0o755); err != nil {
			logrus.WithField("path", s.RecordingsDir).Errorf("创建CallRecordings目录失败: %v", err)
			return false
		}
		logrus.WithField("path", s.RecordingsDir).Info("成功创建CallRecordings目录")
	}
	return true
}

// Path 返回固定目录的绝对路径
func (s *Storage) Path() string {
	return s.Root
}

// Exists 只检查固定目录是否存在
func (s *Storage) Exists() bool {
	return isDir(s.Root)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// nearestExisting 返回path本身或最近的已存在上级目录
func nearestExisting(path string) string {
	for {
		fi, err := os.Stat(path)
		if err == nil {
			if fi.IsDir() {
				return path
			}
			return ""
		}
		parent := filepath.Dir(path)
		if parent == path {
			return ""
		}
		path = parent
	}
}
