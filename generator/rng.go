package generator

// rng is a splitmix64 stream seeded from the stable hash. Pure integer
// arithmetic keeps the sequence identical on every platform.
type rng struct {
	state uint64
}

func (r *rng) next() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (r *rng) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

func (r *rng) pick(pool []string) string {
	return pool[r.intn(len(pool))]
}

func (r *rng) digit() byte {
	return byte('0' + r.intn(10))
}

func (r *rng) digits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = r.digit()
	}
	return string(b)
}

func (r *rng) letters(n int, alphabet string) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.intn(len(alphabet))]
	}
	return string(b)
}
