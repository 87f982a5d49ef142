package chain

// slab is a fixed-size class of recyclable segment buffers.
type slab struct {
	size int
	ch   chan []byte
}

var slabs = []slab{
	{size: 64, ch: make(chan []byte, 512)},
	{size: 256, ch: make(chan []byte, 256)},
	{size: 1024, ch: make(chan []byte, 64)},
	{size: 4096, ch: make(chan []byte, 16)},
}

// getBuf returns a zero-length buffer with capacity >= n, recycled when one of
// the slab classes fits. Oversized requests are plain allocations.
func getBuf(n int) (buf []byte, slabSize int) {
	for _, s := range slabs {
		if n <= s.size {
			select {
			case b := <-s.ch:
				return b[:0], s.size
			default:
				return make([]byte, 0, s.size), s.size
			}
		}
	}
	return make([]byte, 0, n), 0
}

func putBuf(b []byte, slabSize int) {
	if slabSize == 0 {
		return
	}
	for _, s := range slabs {
		if s.size == slabSize {
			select {
			case s.ch <- b[:0]:
			default:
				// pool full, let GC take it
			}
			return
		}
	}
}
