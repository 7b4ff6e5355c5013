package vector

import (
	"errors"
	"math"
	"testing"
)

func TestInnerProduct(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical unit", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InnerProduct(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("InnerProduct = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	in := []float32{3, 4}
	out, err := Normalize(in)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(out[0])-0.6) > 1e-6 || math.Abs(float64(out[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3 4]) = %v", out)
	}
	if in[0] != 3 {
		t.Error("Normalize must not modify its input")
	}
	if !IsUnit(out, 1e-5) {
		t.Errorf("norm = %v", L2Norm(out))
	}
}

func TestNormalize_Rejects(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for name, v := range map[string][]float32{
		"zero":  {0, 0, 0},
		"empty": {},
		"nan":   {nan, 1},
		"inf":   {inf, 1},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Normalize(v); !errors.Is(err, ErrZeroVector) {
				t.Errorf("Normalize(%v) err = %v, want ErrZeroVector", v, err)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	b := Encode(v)
	if len(b) != 12 {
		t.Fatalf("encoded length = %d, want 12", len(b))
	}
	// little-endian 0.25 = 0x3e800000
	if b[0] != 0x00 || b[3] != 0x3e {
		t.Errorf("unexpected byte order: % x", b[:4])
	}
	got, err := Decode(b, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("Decode[%d] = %v, want %v", i, got[i], v[i])
		}
	}
	if _, err := Decode(b, 4); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Decode with wrong dimension: %v", err)
	}
}
