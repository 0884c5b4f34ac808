// Package equipment ranks critical equipment for load-shedding mitigation
// and computes how long each item survives on its own backup.
package equipment

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/outagewatch/core/model"
)

// Rank returns a copy of list ordered by priority tier (life support first),
// then power draw descending, then name. The alternative power flag does not
// influence the order.
func Rank(list []model.CriticalEquipment) []model.CriticalEquipment {
	out := append([]model.CriticalEquipment(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.PowerDrawW != b.PowerDrawW {
			return a.PowerDrawW > b.PowerDrawW
		}
		return a.Name < b.Name
	})
	return out
}

// ItemSurvival is the survivability of one item for a given outage length.
type ItemSurvival struct {
	Equipment     model.CriticalEquipment `json:"equipment"`
	MarginMinutes float64                 `json:"margin_minutes"`
	Survives      bool                    `json:"survives"`
}

// Survivability ranks list and reports, per item, its runtime minus the
// outage duration.
func Survivability(list []model.CriticalEquipment, outage time.Duration) []ItemSurvival {
	ranked := Rank(list)
	out := make([]ItemSurvival, len(ranked))
	for i, e := range ranked {
		margin := float64(e.RuntimeMinutes) - outage.Minutes()
		out[i] = ItemSurvival{Equipment: e, MarginMinutes: margin, Survives: margin >= 0}
	}
	return out
}

// MinRuntime returns the shortest runtime among items of the given tier.
func MinRuntime(list []model.CriticalEquipment, tier model.PriorityTier) (float64, bool) {
	var runtimes []float64
	for _, e := range list {
		if e.Tier == tier {
			runtimes = append(runtimes, float64(e.RuntimeMinutes))
		}
	}
	if len(runtimes) == 0 {
		return 0, false
	}
	return floats.Min(runtimes), true
}

// CriticalRuntime is the runtime that bounds survivability: the shortest
// life-support runtime, or the shortest critical-care runtime when the
// facility has no life-support equipment.
func CriticalRuntime(list []model.CriticalEquipment) (float64, bool) {
	if rt, ok := MinRuntime(list, model.TierLifeSupport); ok {
		return rt, true
	}
	return MinRuntime(list, model.TierCriticalCare)
}

// TotalDraw sums the power draw of the items in watts.
func TotalDraw(list []model.CriticalEquipment) float64 {
	if len(list) == 0 {
		return 0
	}
	draws := make([]float64, len(list))
	for i, e := range list {
		draws[i] = e.PowerDrawW
	}
	return floats.Sum(draws)
}
