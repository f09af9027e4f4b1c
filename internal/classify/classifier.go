package classify

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/joseph-ayodele/docuextract/constants"
)

// Classifier assigns the coarse document-type hint used for model selection.
// It never influences the extracted content.
type Classifier interface {
	Classify(ctx context.Context, data []byte) (constants.DocumentType, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, data []byte) (constants.DocumentType, error)

func (f Func) Classify(ctx context.Context, data []byte) (constants.DocumentType, error) {
	return f(ctx, data)
}

// Fixed always returns the same hint.
type Fixed constants.DocumentType

func (f Fixed) Classify(context.Context, []byte) (constants.DocumentType, error) {
	return constants.DocumentType(f), nil
}

// Weight pairs a hint with its relative probability.
type Weight struct {
	Type   constants.DocumentType
	Weight float64
}

// DefaultWeights is the placeholder distribution: 30% handwritten, 40% typed, 30% mixed.
var DefaultWeights = []Weight{
	{constants.DocumentTypeHandwritten, 0.3},
	{constants.DocumentTypeTyped, 0.4},
	{constants.DocumentTypeMixed, 0.3},
}

// WeightedRandom is the placeholder classifier. It ignores the document bytes.
type WeightedRandom struct {
	mu      sync.Mutex
	rng     *rand.Rand
	weights []Weight
	total   float64
}

// NewWeightedRandom uses DefaultWeights when weights is empty. A nil rng uses a random seed.
func NewWeightedRandom(rng *rand.Rand, weights ...Weight) *WeightedRandom {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	var total float64
	for _, w := range weights {
		if w.Weight > 0 {
			total += w.Weight
		}
	}
	return &WeightedRandom{rng: rng, weights: weights, total: total}
}

func (c *WeightedRandom) Classify(ctx context.Context, _ []byte) (constants.DocumentType, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	r := c.rng.Float64() * c.total
	c.mu.Unlock()

	for _, w := range c.weights {
		if w.Weight <= 0 {
			continue
		}
		if r < w.Weight {
			return w.Type, nil
		}
		r -= w.Weight
	}
	return constants.DocumentTypeTyped, nil
}
