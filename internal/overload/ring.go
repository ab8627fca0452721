package overload

// chunkRing keeps at most max chunks, evicting the oldest.
type chunkRing struct {
	chunks [][]byte
	next   int
	size   int
	total  int64
}

func newChunkRing(max int) *chunkRing {
	return &chunkRing{chunks: make([][]byte, max)}
}

func (r *chunkRing) push(chunk []byte) {
	if old := r.chunks[r.next]; old != nil {
		r.total -= int64(len(old))
	} else {
		r.size++
	}
	r.chunks[r.next] = chunk
	r.total += int64(len(chunk))
	r.next = (r.next + 1) % len(r.chunks)
}

func (r *chunkRing) count() int {
	return r.size
}

func (r *chunkRing) bytes() int64 {
	return r.total
}

func (r *chunkRing) reset() {
	for i := range r.chunks {
		r.chunks[i] = nil
	}
	r.next = 0
	r.size = 0
	r.total = 0
}
