package utils

import (
	"reflect"
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("ação rápida", 4); got != "ação..." {
		t.Errorf("multi-byte truncate: got %q", got)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"blank lines dropped", "a\n\n  \nb", []string{"a", "b"}},
		{"trimmed", "  Aspirin treats headache.  \n\tIbuprofen\t", []string{"Aspirin treats headache.", "Ibuprofen"}},
		{"crlf", "one\r\ntwo\r\n", []string{"one", "two"}},
		{"lone cr", "Aspirin treats headache.\rIbuprofen reduces inflammation.\n", []string{"Aspirin treats headache.", "Ibuprofen reduces inflammation."}},
		{"mixed endings", "a\r\n\rb\rc\n", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLines(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLines(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
