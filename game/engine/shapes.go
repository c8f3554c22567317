package engine

import (
	"math/rand/v2"
)

var shapes = [...]Shape{
	KindEmpty: {{0, 0}, {0, 0}, {0, 0}, {0, 0}},
	KindI:     {{0, -1}, {0, 0}, {0, 1}, {0, 2}},
	KindO:     {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	KindT:     {{-1, 0}, {0, 0}, {1, 0}, {0, -1}},
	KindJ:     {{-1, -1}, {0, -1}, {0, 0}, {0, 1}},
	KindL:     {{1, -1}, {0, -1}, {0, 0}, {0, 1}},
	KindS:     {{0, -1}, {0, 0}, {-1, 0}, {-1, 1}},
	KindZ:     {{0, -1}, {0, 0}, {1, 0}, {1, 1}},
}

// Offsets returns the spawn-rotation offsets of a kind. Unknown kinds and
// the sentinel map to four copies of (0,0).
func Offsets(k Kind) Shape {
	if int(k) >= len(shapes) {
		return shapes[KindEmpty]
	}
	return shapes[k]
}

// Kinds returns the seven solid kinds.
func Kinds() []Kind {
	return []Kind{KindI, KindO, KindT, KindJ, KindL, KindS, KindZ}
}

// KindSource yields the kind of each newly spawned piece.
type KindSource interface {
	Next() Kind
}

// Rewinder is implemented by sources that can restart their sequence from
// the beginning. Engine.Reset rewinds such sources so a reset game deals
// the same pieces as a new one.
type Rewinder interface {
	Rewind()
}

// seedStream is mixed into the second PCG word so a single seed is enough.
const seedStream = 0x9e3779b97f4a7c15

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedStream))
}

// UniformSource picks each kind independently with probability 1/7.
type UniformSource struct {
	seed uint64
	rng  *rand.Rand
}

// NewUniformSource creates a uniform source from a seed.
func NewUniformSource(seed uint64) *UniformSource {
	return &UniformSource{seed: seed, rng: newRand(seed)}
}

func (s *UniformSource) Next() Kind {
	return Kind(s.rng.IntN(7) + 1)
}

func (s *UniformSource) Rewind() {
	s.rng = newRand(s.seed)
}

// BagSource deals the seven kinds in shuffled bags, so every run of seven
// consecutive spawns aligned to a bag boundary contains each kind once.
type BagSource struct {
	seed uint64
	rng  *rand.Rand
	bag  []Kind
}

// NewBagSource creates a 7-bag source from a seed.
func NewBagSource(seed uint64) *BagSource {
	return &BagSource{seed: seed, rng: newRand(seed)}
}

func (s *BagSource) Rewind() {
	s.rng = newRand(s.seed)
	s.bag = nil
}

func (s *BagSource) Next() Kind {
	if len(s.bag) == 0 {
		s.bag = Kinds()
		s.rng.Shuffle(len(s.bag), func(i, j int) {
			s.bag[i], s.bag[j] = s.bag[j], s.bag[i]
		})
	}
	k := s.bag[0]
	s.bag = s.bag[1:]
	return k
}

// SequenceSource replays a fixed list of kinds, wrapping around.
type SequenceSource struct {
	kinds []Kind
	next  int
}

// NewSequenceSource returns a source cycling through kinds. With no kinds
// it always yields KindO.
func NewSequenceSource(kinds ...Kind) *SequenceSource {
	if len(kinds) == 0 {
		kinds = []Kind{KindO}
	}
	return &SequenceSource{kinds: kinds}
}

func (s *SequenceSource) Next() Kind {
	k := s.kinds[s.next%len(s.kinds)]
	s.next++
	return k
}

func (s *SequenceSource) Rewind() {
	s.next = 0
}
