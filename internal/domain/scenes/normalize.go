package scenes

import (
	"fmt"
	"math"

	"github.com/forPelevin/reelgen/internal/types"
)

// MinSceneSec is the shortest duration a scene may have after normalization.
const MinSceneSec = 3

// Normalize rescales scene durations so they sum to totalSec, keeping every
// scene at MinSceneSec or longer. The input slice is not modified.
//
// The total is exact whenever MinSceneSec*len(in) <= totalSec. Otherwise the
// floor wins and the sum ends up above the target.
func Normalize(in []types.Scene, totalSec int) []types.Scene {
	out := make([]types.Scene, len(in))
	copy(out, in)
	if len(out) == 0 {
		return out
	}

	sum := 0
	for i := range out {
		out[i].Duration = floorSec(out[i].Duration)
		sum += out[i].Duration
	}

	if sum == 0 {
		per := floorSec(round(float64(totalSec) / float64(len(out))))
		for i := range out {
			out[i].Duration = per
		}
		return out
	}

	scaled := 0
	for i := range out {
		d := floorSec(round(float64(out[i].Duration) / float64(sum) * float64(totalSec)))
		out[i].Duration = d
		scaled += d
	}

	distribute(out, totalSec-scaled)
	return out
}

// Validate reports scene counts that cannot fit into totalSec without
// breaking the per-scene floor.
func Validate(count, totalSec int) error {
	if count <= 0 {
		return fmt.Errorf("scene count must be > 0")
	}
	if totalSec <= 0 {
		return fmt.Errorf("total duration must be > 0")
	}
	if count*MinSceneSec > totalSec {
		return fmt.Errorf("%d scenes need at least %ds, total duration is %ds", count, count*MinSceneSec, totalSec)
	}
	return nil
}

// distribute spreads diff one second at a time over scenes in order,
// skipping scenes that would drop below the floor, until diff is spent or no
// scene can take another step.
func distribute(out []types.Scene, diff int) {
	for diff != 0 {
		step := 1
		if diff < 0 {
			step = -1
		}
		moved := false
		for i := range out {
			if diff == 0 {
				break
			}
			if out[i].Duration+step < MinSceneSec {
				continue
			}
			out[i].Duration += step
			diff -= step
			moved = true
		}
		if !moved {
			return
		}
	}
}

func floorSec(d int) int {
	if d < MinSceneSec {
		return MinSceneSec
	}
	return d
}

func round(x float64) int {
	return int(math.Round(x))
}
