package debug

import "sync"

// ReserveSize is the amount of memory held back for failure handling after
// the program has run out.
const ReserveSize = 32768

// Reserve is memory set aside while a Debug is registered. It is released
// when shutdown handling begins, and its absence tells shutdown handling
// that there is nothing it can do.
type Reserve struct {
	mu  sync.Mutex
	buf []byte
}

// NewReserve returns an empty reserve.
func NewReserve() *Reserve {
	return &Reserve{}
}

// processReserve is shared by every Debug without its own reserve.
var processReserve = NewReserve()

func (r *Reserve) allocate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buf == nil {
		r.buf = make([]byte, ReserveSize)
	}
}

// release frees the reserve and reports whether it was held.
func (r *Reserve) release() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buf == nil {
		return false
	}
	r.buf = nil
	return true
}

// Held reports whether the memory is currently set aside.
func (r *Reserve) Held() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf != nil
}
