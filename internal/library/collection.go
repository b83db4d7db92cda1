package library

// chunkSize is the number of records per copy-on-write chunk.
const chunkSize = 256

// Snapshot is an immutable, ordered view of one root's records. Snapshots
// share unchanged chunks with each other; holding one never blocks writers.
type Snapshot struct {
	chunks [][]FileRecord
	n      int
}

// Len returns the number of records.
func (s Snapshot) Len() int { return s.n }

// At returns the record at position i. It panics if i is out of range.
func (s Snapshot) At(i int) FileRecord {
	if i < 0 || i >= s.n {
		panic("library: snapshot index out of range")
	}
	return s.chunks[i/chunkSize][i%chunkSize]
}

// Range copies records [lo, hi) into a new slice, clamping the bounds.
func (s Snapshot) Range(lo, hi int) []FileRecord {
	lo = max(lo, 0)
	hi = min(hi, s.n)
	if lo >= hi {
		return []FileRecord{}
	}
	out := make([]FileRecord, 0, hi-lo)
	for i := lo; i < hi; {
		off := i % chunkSize
		end := min(chunkSize, off+hi-i)
		out = append(out, s.chunks[i/chunkSize][off:end]...)
		i += end - off
	}
	return out
}

// All copies every record in order.
func (s Snapshot) All() []FileRecord {
	return s.Range(0, s.n)
}

// builder derives the next snapshot from a published one. Chunks are copied
// on first write; a builder must not be used after snapshot is called.
type builder struct {
	chunks [][]FileRecord
	owned  []bool
	n      int
}

func newBuilder(s Snapshot) *builder {
	chunks := make([][]FileRecord, len(s.chunks), len(s.chunks)+1)
	copy(chunks, s.chunks)
	return &builder{chunks: chunks, owned: make([]bool, len(chunks)), n: s.n}
}

func (b *builder) own(c int) {
	if b.owned[c] {
		return
	}
	fresh := make([]FileRecord, len(b.chunks[c]), chunkSize)
	copy(fresh, b.chunks[c])
	b.chunks[c] = fresh
	b.owned[c] = true
}

func (b *builder) at(i int) FileRecord {
	return b.chunks[i/chunkSize][i%chunkSize]
}

func (b *builder) set(i int, rec FileRecord) {
	c := i / chunkSize
	b.own(c)
	b.chunks[c][i%chunkSize] = rec
}

// add appends rec and returns its position.
func (b *builder) add(rec FileRecord) int {
	i := b.n
	c := i / chunkSize
	if c == len(b.chunks) {
		b.chunks = append(b.chunks, make([]FileRecord, 0, chunkSize))
		b.owned = append(b.owned, true)
	} else {
		b.own(c)
	}
	b.chunks[c] = append(b.chunks[c], rec)
	b.n++
	return i
}

func (b *builder) snapshot() Snapshot {
	return Snapshot{chunks: b.chunks, n: b.n}
}

// without returns a copy of s with the positions in drop removed, keeping
// the relative order of the rest.
func without(s Snapshot, drop map[int]bool) Snapshot {
	b := &builder{}
	for i := 0; i < s.n; i++ {
		if !drop[i] {
			b.add(s.At(i))
		}
	}
	return b.snapshot()
}
