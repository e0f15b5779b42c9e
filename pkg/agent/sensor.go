package agent

import (
	"math"
	"math/rand"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

// sensor is one simulated reading source. Numeric sensors drift randomly
// within [min, max]; discrete sensors occasionally jump to another option.
type sensor struct {
	id         string
	value      event.Value
	def        event.Value
	calibrated event.Value

	numeric bool
	min     float64
	max     float64
	drift   float64

	options           []string
	changeProbability float64
}

func (s *sensor) step(rng *rand.Rand) event.Value {
	if !s.numeric {
		if rng.Float64() < s.changeProbability {
			s.value = event.String(s.options[rng.Intn(len(s.options))])
		}
		return s.value
	}

	current, _ := s.value.AsFloat()
	next := current + (rng.Float64()*2-1)*s.drift
	next = math.Max(s.min, math.Min(s.max, next))
	s.value = event.Float(math.Round(next*100) / 100)
	return s.value
}

func (s *sensor) hasOption(v string) bool {
	for _, o := range s.options {
		if o == v {
			return true
		}
	}
	return false
}
