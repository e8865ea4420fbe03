package textutil

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	got := SplitSentences(`Cats nap a lot. Do they dream?! "Yes," says science. Version 1.5 is out`)
	want := []string{"Cats nap a lot.", "Do they dream?!", `"Yes," says science.`, "Version 1.5 is out"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitSentences = %#v", got)
	}
	if got := SplitSentences("   "); len(got) != 0 {
		t.Fatalf("expected no sentences, got %#v", got)
	}
}

func TestDistribute(t *testing.T) {
	cases := []struct {
		items []string
		n     int
		want  [][]string
	}{
		{[]string{"a", "b", "c", "d", "e"}, 3, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}},
		{[]string{"a", "b", "c"}, 3, [][]string{{"a"}, {"b"}, {"c"}}},
		{[]string{"a"}, 3, [][]string{{"a"}, nil, nil}},
		{[]string{"a", "b", "c", "d"}, 3, [][]string{{"a", "b"}, {"c", "d"}, nil}},
		{[]string{"1", "2", "3", "4", "5", "6", "7"}, 3, [][]string{{"1", "2", "3"}, {"4", "5", "6"}, {"7"}}},
	}
	for _, tc := range cases {
		if got := Distribute(tc.items, tc.n); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Distribute(%v, %d) = %#v", tc.items, tc.n, got)
		}
	}
	if Distribute([]string{"a"}, 0) != nil {
		t.Fatal("expected nil for zero buckets")
	}
}

func TestEstimateSpeechSeconds(t *testing.T) {
	if got := EstimateSpeechSeconds("one two three four five"); got != 2 {
		t.Fatalf("EstimateSpeechSeconds = %v", got)
	}
}

func TestOverlap(t *testing.T) {
	if got := Overlap("cats nap often", "cats nap often and purr"); got != 1 {
		t.Fatalf("Overlap identical = %v", got)
	}
	if got := Overlap("dogs bark loudly", "cats nap"); got != 0 {
		t.Fatalf("Overlap disjoint = %v", got)
	}
	if got := Overlap("a b", "cats"); got != 0 {
		t.Fatalf("Overlap short tokens = %v", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` Cats: the "truth"? `); got != "Cats- the truth" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	if got := SanitizeFileName(".."); got != "untitled" {
		t.Fatalf("SanitizeFileName dots = %q", got)
	}
}
