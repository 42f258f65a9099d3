package loadcheck

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// generatePairs builds n keys with values of mixed JSON shapes.
func generatePairs(prefix string, n int) []Pair {
	pairs := make([]Pair, n)
	for i := range pairs {
		key := fmt.Sprintf("%s.%s", prefix, uuid.NewString())
		pairs[i] = Pair{Key: key, Value: randomValue(i)}
	}
	return pairs
}

// randomValue cycles through the shapes a page typically stores. Numbers
// are float64 so they compare equal after a JSON round trip.
func randomValue(i int) any {
	switch i % 5 {
	case 0:
		return fmt.Sprintf("value %d & <%d>", i, rand.IntN(1000))
	case 1:
		return float64(rand.IntN(1_000_000))
	case 2:
		return i%2 == 0
	case 3:
		return []any{float64(i), "x", nil}
	default:
		return map[string]any{"ssid": uuid.NewString()[:8], "rssi": float64(-rand.IntN(90))}
	}
}
