//go:build !unix

package storage

import "os"

// writable 没有access(2)的平台上尝试创建临时文件
func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".glite-access-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
