package model

import (
	"math"
	"math/rand"
)

// Faixas do coeficiente de aposta sorteado na criação da etapa
const (
	MinCoefficient  = 1.0
	HighCoefficient = 3.0
	MaxCoefficient  = 12.0

	highChance = 0.3
)

// Rand é o subconjunto de *rand.Rand usado no sorteio
type Rand interface{ Float64() float64 }

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// RandomCoefficient: 30% de chance de cair em [3, 12), senão [1, 3); duas casas decimais
func RandomCoefficient(r Rand) float64 {
	if r == nil {
		r = globalRand{}
	}
	lo, hi := MinCoefficient, HighCoefficient
	if r.Float64() < highChance {
		lo, hi = HighCoefficient, MaxCoefficient
	}
	v := lo + r.Float64()*(hi-lo)
	return math.Round(v*100) / 100
}
