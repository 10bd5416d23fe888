//go:build unix

package netcheck

import "syscall"

// Filesystem magic numbers from statfs(2), adapted from
// internal/netfs/netfs_unix.go.
const (
	nfsMagic   = 0x6969
	cifsMagic  = 0xff534d42
	smbfsMagic = 0x517B
	ncpfsMagic = 0x564c
	afsMagic   = 0x5346414F
	fuseMagic  = 0x65735546
)

func detectNetworkFS(path string) (network bool, fsName string) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return false, ""
	}

	switch stat.Type {
	case nfsMagic:
		return true, "NFS"
	case cifsMagic, smbfsMagic:
		return true, "CIFS/SMB"
	case ncpfsMagic:
		return true, "NCP"
	case afsMagic:
		return true, "AFS"
	case fuseMagic:
		return true, "FUSE"
	default:
		return false, ""
	}
}
