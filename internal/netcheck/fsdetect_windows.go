//go:build windows

package netcheck

func detectNetworkFS(_ string) (network bool, fsName string) {
	return false, ""
}
