package opt

import (
	"testing"

	"github.com/FlavioCFOliveira/digitnet/internal/params"
)

// BenchmarkAdamUpdate benchmarks one Adam step over the default network shape.
func BenchmarkAdamUpdate(b *testing.B) {
	p, err := params.New("relu", 784, 100, 100, 100, 100, 100, 100, 10)
	if err != nil {
		b.Fatal(err)
	}
	g := p.ZerosLike()
	for _, ts := range g.Tensors() {
		for i := range ts {
			ts[i] = 0.01
		}
	}
	a := NewAdam(0.001)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := a.Update(p, g); err != nil {
			b.Fatal(err)
		}
	}
}
