package pure_test

import (
	"fmt"
	"testing"

	"github.com/on-the-ground/purity/pure"
	"github.com/on-the-ground/purity/pure/store"
	"go.uber.org/zap"
)

func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if a[0] == b[0] {
		return levenshtein(a[1:], b[1:])
	}
	return 1 + min(
		levenshtein(a[1:], b),
		levenshtein(a, b[1:]),
		levenshtein(a[1:], b[1:]),
	)
}

func histogram(words []string) map[string]int {
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	return counts
}

var corpus = []string{"kitten", "sitting", "kitten", "mitten", "sitting", "kitten"}

func BenchmarkPlainLevenshtein(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = levenshtein("kitten", "sitting")
	}
}

func BenchmarkDeterministicLevenshtein(b *testing.B) {
	stores := map[string]func() store.Store{
		"memory":   store.NewInMemoryStore,
		"rotating": func() store.Store { return store.NewRotatingStore(32) },
	}
	for name, newStore := range stores {
		b.Run(name, func(b *testing.B) {
			lev := pure.EnforceDeterministicI2O1(levenshtein,
				pure.WithStore(newStore()), pure.WithLogger(zap.NewNop()))
			for i := 0; i < b.N; i++ {
				_, _ = lev("kitten", "sitting")
			}
		})
	}
}

func BenchmarkPlainHistogram(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = histogram(corpus)
	}
}

func BenchmarkGuardedHistogram(b *testing.B) {
	guards := map[string]func(func([]string) map[string]int, ...pure.Option) func([]string) (map[string]int, error){
		"DetectMutation":       pure.DetectMutationI1O1[[]string, map[string]int],
		"EnforceImmutable":     pure.EnforceImmutableI1O1[[]string, map[string]int],
		"EnforceDeterministic": pure.EnforceDeterministicI1O1[[]string, map[string]int],
	}
	for name, guard := range guards {
		for _, n := range []int{1, 16} {
			words := make([]string, 0, len(corpus)*n)
			for range n {
				words = append(words, corpus...)
			}
			b.Run(fmt.Sprintf("%s/Words_%d", name, len(words)), func(b *testing.B) {
				h := guard(histogram, pure.WithLogger(zap.NewNop()))
				for i := 0; i < b.N; i++ {
					_, _ = h(words)
				}
			})
		}
	}
}
