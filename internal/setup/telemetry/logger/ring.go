package logger

// ring keeps the most recent lines written to a log file.
type ring struct {
	lines []string
	next  int // index of the next write
	size  int
	seen  int // lines added since the last compaction
}

func newRing(capacity int) *ring {
	return &ring{lines: make([]string, capacity)}
}

func (r *ring) push(line string) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.size < len(r.lines) {
		r.size++
	}
	r.seen++
}

// ordered returns the kept lines oldest first.
func (r *ring) ordered() []string {
	out := make([]string, 0, r.size)
	start := (r.next - r.size + len(r.lines)) % len(r.lines)
	for i := range r.size {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}
