package random

import (
	"crypto/rand"
	"math/big"
)

// Random is the source of every random choice the game makes: lobby codes,
// the faker and topics. Tests swap in mocks.MockRandom.
type Random interface {
	// Intn returns a value in [0, n), or 0 when n <= 0
	Intn(n int) int

	// String builds a string of length characters drawn from alphabet
	String(length int, alphabet string) string
}

// Secure draws from crypto/rand so lobby codes cannot be predicted
type Secure struct{}

// New returns the production source
func New() *Secure {
	return &Secure{}
}

func (Secure) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return int(v.Int64())
}

func (s Secure) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[s.Intn(len(alphabet))]
	}
	return string(b)
}

// Choice returns a uniformly chosen element of items.
// ok is false for an empty slice.
func Choice[T any](r Random, items []T) (item T, ok bool) {
	if len(items) == 0 {
		return item, false
	}
	return items[r.Intn(len(items))], true
}

// Sample returns up to n distinct elements of items in random order,
// leaving items untouched
func Sample[T any](r Random, items []T, n int) []T {
	pool := append([]T(nil), items...)
	n = min(n, len(pool))
	out := make([]T, 0, max(n, 0))
	for len(out) < n {
		i := r.Intn(len(pool))
		out = append(out, pool[i])
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return out
}
