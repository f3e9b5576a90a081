package scenes

import (
	"math/rand"
	"testing"

	"github.com/forPelevin/reelgen/internal/types"
)

func withDurations(ds ...int) []types.Scene {
	out := make([]types.Scene, len(ds))
	for i, d := range ds {
		out[i] = types.Scene{ID: string(rune('a' + i)), Duration: d}
	}
	return out
}

func durations(s []types.Scene) []int {
	out := make([]int, len(s))
	for i := range s {
		out[i] = s[i].Duration
	}
	return out
}

func sum(ds []int) int {
	n := 0
	for _, d := range ds {
		n += d
	}
	return n
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNormalize_Table(t *testing.T) {
	tests := []struct {
		name  string
		in    []int
		total int
		want  []int
	}{
		{"already exact", []int{10, 20, 30}, 60, []int{10, 20, 30}},
		{"remainder goes to first eligible", []int{10, 10}, 21, []int{10, 11}},
		{"all zero", []int{0, 0, 0}, 30, []int{10, 10, 10}},
		{"scale up", []int{5, 5}, 30, []int{15, 15}},
		{"scale down to floor", []int{100, 1, 1}, 12, []int{6, 3, 3}},
		{"negative input floored", []int{-4, 6}, 12, []int{4, 8}},
		{"single scene", []int{7}, 45, []int{45}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := durations(Normalize(withDurations(tt.in...), tt.total))
			if !equalInts(got, tt.want) {
				t.Fatalf("Normalize(%v, %d) = %v, want %v", tt.in, tt.total, got, tt.want)
			}
		})
	}
}

func TestNormalize_SumsToTotalWithFloor(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 1 + rnd.Intn(10)
		in := make([]int, n)
		for j := range in {
			in[j] = rnd.Intn(120) - 10
		}
		total := MinSceneSec*n + rnd.Intn(200)

		got := durations(Normalize(withDurations(in...), total))
		if sum(got) != total {
			t.Fatalf("case %d: Normalize(%v, %d) = %v, sum %d", i, in, total, got, sum(got))
		}
		for _, d := range got {
			if d < MinSceneSec {
				t.Fatalf("case %d: Normalize(%v, %d) = %v has scene below floor", i, in, total, got)
			}
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		n := 1 + rnd.Intn(8)
		in := make([]int, n)
		for j := range in {
			in[j] = rnd.Intn(60)
		}
		total := MinSceneSec*n + rnd.Intn(120)

		once := Normalize(withDurations(in...), total)
		twice := Normalize(once, total)
		if !equalInts(durations(once), durations(twice)) {
			t.Fatalf("case %d: not idempotent: %v -> %v", i, durations(once), durations(twice))
		}
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := withDurations(1, 2, 3)
	_ = Normalize(in, 30)
	if !equalInts(durations(in), []int{1, 2, 3}) {
		t.Fatalf("input mutated: %v", durations(in))
	}
}

func TestNormalize_PreservesOrderAndFields(t *testing.T) {
	in := []types.Scene{
		{ID: "x", Title: "one", Text: "t1", Visual: "v1", Duration: 4},
		{ID: "y", Title: "two", Text: "t2", Visual: "v2", Duration: 8},
	}
	got := Normalize(in, 24)
	if got[0].ID != "x" || got[1].ID != "y" {
		t.Fatalf("order changed: %+v", got)
	}
	if got[1].Title != "two" || got[1].Visual != "v2" {
		t.Fatalf("fields lost: %+v", got[1])
	}
}

func TestNormalize_FloorConflictKeepsFloor(t *testing.T) {
	got := durations(Normalize(withDurations(1, 1, 1, 1), 8))
	for _, d := range got {
		if d < MinSceneSec {
			t.Fatalf("scene below floor: %v", got)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(6, 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(4, 11); err == nil {
		t.Fatalf("expected floor conflict error")
	}
	if err := Validate(0, 60); err == nil {
		t.Fatalf("expected error for zero scenes")
	}
	if err := Validate(2, 0); err == nil {
		t.Fatalf("expected error for zero duration")
	}
}
