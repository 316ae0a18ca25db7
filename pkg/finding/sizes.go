package finding

import "fmt"

// SizeFriendly renders a byte count the way reports print it.
func SizeFriendly(size int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
		tb = gb * 1024
	)
	switch {
	case size < kb:
		return fmt.Sprintf("%.2fB", float64(size))
	case size < mb:
		return fmt.Sprintf("%.2fKB", float64(size)/kb)
	case size < gb:
		return fmt.Sprintf("%.2fMB", float64(size)/mb)
	case size < tb:
		return fmt.Sprintf("%.2fGB", float64(size)/gb)
	default:
		return fmt.Sprintf("%.2fTB", float64(size)/tb)
	}
}
