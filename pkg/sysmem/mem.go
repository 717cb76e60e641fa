// Package sysmem detects total system memory so in-memory buffers can be
// sized relative to the machine.
package sysmem

// DefaultMemoryBytes (4 GiB) is assumed when detection fails or the
// platform is unsupported.
const DefaultMemoryBytes uint64 = 4 * 1024 * 1024 * 1024

// Result holds the result of memory detection.
type Result struct {
	TotalBytes uint64
	// Reliable is false when TotalBytes is DefaultMemoryBytes because
	// detection failed.
	Reliable bool
}

// Total returns the total system memory, falling back to DefaultMemoryBytes.
func Total() Result {
	bytes, ok := totalSystemMemory()
	if !ok || bytes == 0 {
		return Result{TotalBytes: DefaultMemoryBytes}
	}
	return Result{TotalBytes: bytes, Reliable: true}
}

// TotalBytes returns just the detected (or default) memory size.
func TotalBytes() uint64 {
	return Total().TotalBytes
}
