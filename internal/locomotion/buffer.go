package locomotion

// MovementBuffer is a fixed-capacity ring of smoothed movement magnitudes.
// It starts zero-filled, the way the pattern window looks before any motion.
type MovementBuffer struct {
	data   []float64
	cursor int
}

// NewMovementBuffer creates a buffer holding capacity samples.
func NewMovementBuffer(capacity int) *MovementBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &MovementBuffer{data: make([]float64, capacity)}
}

// Push overwrites the slot under the cursor and advances it modulo capacity.
func (b *MovementBuffer) Push(v float64) {
	if len(b.data) == 0 {
		return
	}
	b.data[b.cursor] = v
	b.cursor = (b.cursor + 1) % len(b.data)
}

// Len returns the buffer capacity.
func (b *MovementBuffer) Len() int {
	return len(b.data)
}

// Cursor returns the index of the next slot to be written.
func (b *MovementBuffer) Cursor() int {
	return b.cursor
}

// At returns the raw slot i, ignoring write order.
func (b *MovementBuffer) At(i int) float64 {
	return b.data[i]
}

// Values returns a copy of the buffer in chronological order, oldest first.
func (b *MovementBuffer) Values() []float64 {
	out := make([]float64, len(b.data))
	n := copy(out, b.data[b.cursor:])
	copy(out[n:], b.data[:b.cursor])
	return out
}

// Sum returns the total of all slots.
func (b *MovementBuffer) Sum() float64 {
	var total float64
	for _, v := range b.data {
		total += v
	}
	return total
}

// Mean returns the average slot value, or 0 for an empty buffer.
func (b *MovementBuffer) Mean() float64 {
	if len(b.data) == 0 {
		return 0
	}
	return b.Sum() / float64(len(b.data))
}

// Reset zeroes every slot and rewinds the cursor.
func (b *MovementBuffer) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.cursor = 0
}
