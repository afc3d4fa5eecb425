package gitdiff

import (
	"reflect"
	"testing"

	"filediff/internal/edits"
)

func TestComputeEdits(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		ws   Whitespace
		want []edits.Edit
	}{
		{
			name: "replace one line",
			old:  "a\nb\nc\n",
			new:  "a\nB\nc\n",
			want: []edits.Edit{{BeginA: 1, EndA: 2, BeginB: 1, EndB: 2}},
		},
		{
			name: "insert at end",
			old:  "a\nb\n",
			new:  "a\nb\nc\nd\n",
			want: []edits.Edit{{BeginA: 2, EndA: 2, BeginB: 2, EndB: 4}},
		},
		{
			name: "delete at start",
			old:  "x\na\nb\n",
			new:  "a\nb\n",
			want: []edits.Edit{{BeginA: 0, EndA: 1, BeginB: 0, EndB: 0}},
		},
		{
			name: "two separate edits",
			old:  "1\n2\n3\n4\n5\n6\n",
			new:  "1\nX\n3\n4\nY\n6\n",
			want: []edits.Edit{
				{BeginA: 1, EndA: 2, BeginB: 1, EndB: 2},
				{BeginA: 4, EndA: 5, BeginB: 4, EndB: 5},
			},
		},
		{
			name: "trailing whitespace ignored",
			old:  "a\nb  \n",
			new:  "a\nb\n",
			ws:   IgnoreTrailing,
			want: nil,
		},
		{
			name: "whitespace amount ignored",
			old:  "  if  x {\n",
			new:  "if x {\n",
			ws:   IgnoreLeadingAndTrailing,
			want: nil,
		},
		{
			name: "all whitespace ignored",
			old:  "a b c\n",
			new:  "abc\n",
			ws:   IgnoreAll,
			want: nil,
		},
		{
			name: "whitespace counts by default",
			old:  "a\nb  \n",
			new:  "a\nb\n",
			want: []edits.Edit{{BeginA: 1, EndA: 2, BeginB: 1, EndB: 2}},
		},
	}

	for _, algorithm := range []Algorithm{Histogram, Myers} {
		for _, tt := range tests {
			t.Run(algorithm.String()+"/"+tt.name, func(t *testing.T) {
				got := ComputeEdits(algorithm, tt.ws, splitLines(tt.old), splitLines(tt.new))
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("ComputeEdits() = %v, want %v", got, tt.want)
				}
			})
		}
	}
}

func TestComputeContentEditsFinalNewline(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		ws   Whitespace
		want []edits.Edit
	}{
		{
			name: "newline removed",
			old:  "a\nb\n",
			new:  "a\nb",
			want: []edits.Edit{{BeginA: 1, EndA: 2, BeginB: 1, EndB: 2}},
		},
		{
			name: "newline added",
			old:  "a",
			new:  "a\n",
			want: []edits.Edit{{BeginA: 0, EndA: 1, BeginB: 0, EndB: 1}},
		},
		{
			name: "both without newline",
			old:  "a\nb",
			new:  "a\nb",
			want: nil,
		},
		{
			name: "ignored with trailing whitespace",
			old:  "a\nb\n",
			new:  "a\nb",
			ws:   IgnoreTrailing,
			want: nil,
		},
	}

	for _, algorithm := range []Algorithm{Histogram, Myers} {
		for _, tt := range tests {
			t.Run(algorithm.String()+"/"+tt.name, func(t *testing.T) {
				got := ComputeContentEdits(algorithm, tt.ws, tt.old, tt.new)
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("ComputeContentEdits() = %v, want %v", got, tt.want)
				}
			})
		}
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "", want: []string{}},
		{input: "a", want: []string{"a"}},
		{input: "a\nb\n", want: []string{"a", "b"}},
		{input: "a\n\n", want: []string{"a", ""}},
	}
	for _, tt := range tests {
		if got := SplitLines(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitLines(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseNames(t *testing.T) {
	a, err := ParseAlgorithm("Myers")
	if err != nil || a != Myers {
		t.Errorf("ParseAlgorithm(Myers) = %v, %v", a, err)
	}
	if _, err := ParseAlgorithm("patience"); err == nil {
		t.Error("ParseAlgorithm(patience) returned no error")
	}

	w, err := ParseWhitespace("IGNORE_LEADING_AND_TRAILING")
	if err != nil || w != IgnoreLeadingAndTrailing {
		t.Errorf("ParseWhitespace() = %v, %v", w, err)
	}
	if _, err := ParseWhitespace("ignore-some"); err == nil {
		t.Error("ParseWhitespace(ignore-some) returned no error")
	}
}
