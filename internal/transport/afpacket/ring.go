// Package afpacket attaches switch ports to existing network interfaces
// through TPACKET_V3 memory-mapped sockets.
package afpacket

import (
	"fmt"

	"github.com/c2h5oh/datasize"
)

const (
	tpacketAlignment = 16 // TPACKET_ALIGNMENT
	tpacketHdrLen    = 52 // TPACKET3_HDRLEN, rounded up
	maxBlockSize     = 4 * datasize.MB
)

// ringLayout sizes a PACKET_MMAP ring for snapLen byte frames within a
// budget of bufferSize bytes.
//
// The kernel requires frameSize to be a multiple of TPACKET_ALIGNMENT and
// blockSize to be a multiple of the page size holding at least one frame.
// Blocks are made a multiple of frameSize too when that fits under 4MB, so
// no block space is wasted.
func ringLayout(bufferSize datasize.ByteSize, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if bufferSize == 0 {
		return 0, 0, 0, fmt.Errorf("buffer size must be positive")
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snap length must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("page size must be positive and a multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = alignUp(tpacketHdrLen+snapLen, tpacketAlignment)

	blockSize = lcm(pageSize, frameSize)
	if blockSize > int(maxBlockSize.Bytes()) {
		blockSize = alignUp(frameSize, pageSize)
	}

	numBlocks = int(bufferSize.Bytes()) / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
