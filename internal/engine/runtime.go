package engine

import (
	"strings"

	"github.com/apollion69/nordhold-calculator/internal/model"
)

// runtimeTower is one placed tower instance during evaluation.
type runtimeTower struct {
	towerID         string
	level           int
	focusPriorities []string
	focusUntilDeath bool
}

// runtimeState is the build's tower roster and active global modifiers at a
// given point in the action timeline.
type runtimeState struct {
	towers              []*runtimeTower
	activeModifierIDs   []string
}

func initialRuntimeState(towers []model.TowerPlan, activeGlobalModifiers []string) *runtimeState {
	state := &runtimeState{activeModifierIDs: append([]string(nil), activeGlobalModifiers...)}
	for _, plan := range towers {
		for i := 0; i < maxInt(0, plan.Count); i++ {
			state.towers = append(state.towers, &runtimeTower{
				towerID:         plan.TowerID,
				level:           maxInt(0, plan.Level),
				focusPriorities: append([]string(nil), plan.FocusPriorities...),
				focusUntilDeath: plan.FocusUntilDeath,
			})
		}
	}
	return state
}

func applyActionToState(state *runtimeState, action model.BuildAction) {
	switch strings.ToLower(strings.TrimSpace(action.Type)) {
	case "build":
		towerID := strings.TrimSpace(asString(action.Payload["tower_id"], action.TargetID))
		if towerID == "" {
			return
		}
		count := asIntDefault(action.Payload["count"], maxInt(1, int(action.Value)))
		level := asIntDefault(action.Payload["level"], 0)
		priorities := asStringSliceDefault(action.Payload["focus_priorities"], []string{"progress", "lowest_hp"})
		focusUntilDeath := asBoolDefault(action.Payload["focus_until_death"], false)
		for i := 0; i < maxInt(0, count); i++ {
			state.towers = append(state.towers, &runtimeTower{
				towerID:         towerID,
				level:           maxInt(0, level),
				focusPriorities: append([]string(nil), priorities...),
				focusUntilDeath: focusUntilDeath,
			})
		}

	case "sell":
		for i, t := range state.towers {
			if t.towerID == action.TargetID {
				state.towers = append(state.towers[:i], state.towers[i+1:]...)
				break
			}
		}

	case "upgrade":
		delta := asIntDefault(action.Payload["levels"], maxInt(1, int(action.Value)))
		for _, t := range state.towers {
			if t.towerID == action.TargetID {
				t.level = maxInt(0, t.level+delta)
				break
			}
		}

	case "modifier":
		modifierID := strings.TrimSpace(asString(action.Payload["modifier_id"], action.TargetID))
		if modifierID == "" {
			return
		}
		enable := asBoolDefault(action.Payload["enabled"], action.Value >= 0.0)
		if enable && !containsString(state.activeModifierIDs, modifierID) {
			state.activeModifierIDs = append(state.activeModifierIDs, modifierID)
		}
		if !enable {
			state.activeModifierIDs = removeString(state.activeModifierIDs, modifierID)
		}

	case "targeting":
		priorities := asStringSliceDefault(action.Payload["focus_priorities"], []string{"progress", "lowest_hp"})
		sticky := asBoolDefault(action.Payload["focus_until_death"], false)
		for _, t := range state.towers {
			if t.towerID == action.TargetID {
				t.focusPriorities = append([]string(nil), priorities...)
				t.focusUntilDeath = sticky
			}
		}
	}
}

func runtimeForWave(build model.BuildPlan, waveIndex int) *runtimeState {
	state := initialRuntimeState(build.Towers, build.ActiveGlobalModifiers)
	for _, action := range build.Actions {
		if action.Wave > waveIndex {
			break
		}
		applyActionToState(state, action)
	}
	return state
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func removeString(items []string, target string) []string {
	out := items[:0]
	for _, item := range items {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func asString(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func asIntDefault(v any, def int) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return def
	}
}

func asBoolDefault(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func asStringSliceDefault(v any, def []string) []string {
	items, ok := v.([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
