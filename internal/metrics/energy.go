package metrics

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// MeanKinetic returns the mean per-particle kinetic energy (unit mass) of a
// frame, with velocity recovered from the last sub-step displacement.
func MeanKinetic(f dynamo.Frame) float64 {
	n := len(f.Current)
	if n == 0 || !(f.SubDt > 0) || len(f.Previous) != n {
		return 0
	}
	inv := 1 / f.SubDt
	e := make([]float64, n)
	for i := range f.Current {
		v := r2.Scale(inv, r2.Sub(f.Current[i], f.Previous[i]))
		e[i] = 0.5 * r2.Norm2(v)
	}
	return stat.Mean(e, nil)
}

// KineticEnergy averages MeanKinetic over observed frames.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
	last    float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(f dynamo.Frame) {
	k.last = MeanKinetic(f)
	k.total += k.last
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

// Last returns the most recent frame's value.
func (k *KineticEnergy) Last() float64 { return k.last }

func (k *KineticEnergy) Reset() {
	k.samples = 0
	k.total = 0
	k.last = 0
}
