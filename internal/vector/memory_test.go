package vector

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Position != 0 {
		t.Errorf("top result should be position 0, got %d", results[0].Position)
	}
	if results[1].Position != 1 {
		t.Errorf("second result should be position 1, got %d", results[1].Position)
	}
	if results[0].Score < results[1].Score {
		t.Error("results should be sorted by score descending")
	}
}

func TestMemoryIndex_PositionsFollowInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{1, 0}})
	_ = idx.Add(ctx, [][]float32{{0, 1}})

	results, err := idx.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Position != 1 {
		t.Fatalf("got %+v, want position 1", results)
	}
}

func TestMemoryIndex_TiesKeepLowerPosition(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{0, 1}, {1, 0}, {1, 0}})
	results, _ := idx.Search(ctx, []float32{1, 0}, 2)
	if results[0].Position != 1 || results[1].Position != 2 {
		t.Errorf("tie order = %d,%d, want 1,2", results[0].Position, results[1].Position)
	}
}

func TestMemoryIndex_NegativeScoresNotClamped(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{-1, 0}})
	results, _ := idx.Search(ctx, []float32{1, 0}, 1)
	if results[0].Score != -1 {
		t.Errorf("score = %v, want -1", results[0].Score)
	}
}

func TestMemoryIndex_SearchEmpty(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	results, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()

	err := idx.Add(ctx, [][]float32{{1, 0, 0}, {1, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Add: want ErrDimensionMismatch, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("failed Add must not insert, size=%d", idx.Size())
	}
	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search: want ErrDimensionMismatch, got %v", err)
	}
}

func TestMemoryIndex_CopiesInput(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	v := []float32{1, 0}
	_ = idx.Add(context.Background(), [][]float32{v})
	v[0] = 0
	results, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Score != 1 {
		t.Errorf("index must keep its own copy of added vectors, got %+v", results)
	}
}
