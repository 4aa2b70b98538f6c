package utils

import "fmt"

const bytesPerKilobyte = 1024

// FormatSize renders a byte count as "N B" below one kilobyte and as kilobytes
// with one decimal otherwise.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	if bytes < bytesPerKilobyte {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f KB", float64(bytes)/bytesPerKilobyte)
}
