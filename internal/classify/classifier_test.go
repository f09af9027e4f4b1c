package classify

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/joseph-ayodele/docuextract/constants"
)

func TestWeightedRandomProducesValidHints(t *testing.T) {
	c := NewWeightedRandom(rand.New(rand.NewPCG(1, 2)))
	seen := map[constants.DocumentType]int{}
	for i := 0; i < 3000; i++ {
		typ, err := c.Classify(context.Background(), nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if _, ok := constants.ParseDocumentType(string(typ)); !ok {
			t.Fatalf("invalid hint %q", typ)
		}
		seen[typ]++
	}
	for _, typ := range []constants.DocumentType{
		constants.DocumentTypeTyped, constants.DocumentTypeHandwritten, constants.DocumentTypeMixed,
	} {
		if seen[typ] < 600 {
			t.Errorf("%s seen %d times, distribution looks wrong: %v", typ, seen[typ], seen)
		}
	}
}

func TestWeightedRandomSingleWeight(t *testing.T) {
	c := NewWeightedRandom(nil, Weight{constants.DocumentTypeMixed, 1})
	for i := 0; i < 20; i++ {
		if typ, _ := c.Classify(context.Background(), nil); typ != constants.DocumentTypeMixed {
			t.Fatalf("got %q", typ)
		}
	}
}

func TestFixedAndFunc(t *testing.T) {
	if typ, _ := Fixed(constants.DocumentTypeHandwritten).Classify(context.Background(), nil); typ != constants.DocumentTypeHandwritten {
		t.Errorf("Fixed = %q", typ)
	}
	f := Func(func(context.Context, []byte) (constants.DocumentType, error) {
		return constants.DocumentTypeTyped, nil
	})
	if typ, _ := f.Classify(context.Background(), nil); typ != constants.DocumentTypeTyped {
		t.Errorf("Func = %q", typ)
	}
}

func TestWeightedRandomHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewWeightedRandom(nil).Classify(ctx, nil); err == nil {
		t.Errorf("expected context error")
	}
}
