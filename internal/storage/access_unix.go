//go:build unix

package storage

import "golang.org/x/sys/unix"

// writable 使用access(2)检查写和执行权限
func writable(dir string) bool {
	return unix.Access(dir, unix.W_OK|unix.X_OK) == nil
}
