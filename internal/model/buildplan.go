package model

import "sort"

// TowerPlan is one tower placement within a build plan: which tower, how
// many copies, at what upgrade level, and how it should prioritize targets.
type TowerPlan struct {
	TowerID         string
	Count           int
	Level           int
	FocusPriorities []string
	FocusUntilDeath bool
}

var defaultFocusPriorities = []string{"progress", "lowest_hp"}

// TowerPlanFromPayload validates and constructs a TowerPlan.
func TowerPlanFromPayload(payload Payload) (TowerPlan, error) {
	towerID, err := requireString(payload, "tower_id")
	if err != nil {
		return TowerPlan{}, err
	}
	focusPriorities := asStringSlice(payload["focus_priorities"])
	if focusPriorities == nil {
		focusPriorities = append([]string(nil), defaultFocusPriorities...)
	}
	return TowerPlan{
		TowerID:         towerID,
		Count:           asInt(payload["count"], 1),
		Level:           asInt(payload["level"], 0),
		FocusPriorities: focusPriorities,
		FocusUntilDeath: asBool(payload["focus_until_death"], false),
	}, nil
}

// BuildAction is a scripted change to the build mid-run: placing a tower,
// upgrading it, switching economy policy, or toggling a global modifier, at
// a given wave and in-wave timestamp.
type BuildAction struct {
	Wave     int
	AtS      float64
	Type     string
	TargetID string
	Value    float64
	Payload  map[string]any
}

// BuildActionFromPayload validates and constructs a BuildAction.
func BuildActionFromPayload(payload Payload) (BuildAction, error) {
	wave, err := requireInt(payload, "wave")
	if err != nil {
		return BuildAction{}, err
	}
	actionType, err := requireString(payload, "type")
	if err != nil {
		return BuildAction{}, err
	}
	return BuildAction{
		Wave:     wave,
		AtS:      asFloat(payload["at_s"], 0.0),
		Type:     actionType,
		TargetID: asString(payload["target_id"], ""),
		Value:    asFloat(payload["value"], 0.0),
		Payload:  asPayloadMap(payload["payload"]),
	}, nil
}

// BuildPlan is the complete set of tower placements, action script, and
// active global modifiers submitted for evaluation against a scenario.
type BuildPlan struct {
	ScenarioID            string
	Towers                []TowerPlan
	ActiveGlobalModifiers []string
	Actions               []BuildAction
}

// BuildPlanFromPayload validates and constructs a BuildPlan. Actions are
// sorted by (wave, at_s) so downstream consumers never need to re-sort the
// action script themselves.
func BuildPlanFromPayload(payload Payload) (BuildPlan, error) {
	scenarioID, err := requireString(payload, "scenario_id")
	if err != nil {
		return BuildPlan{}, err
	}

	towerItems := asPayloadSlice(payload["towers"])
	towers := make([]TowerPlan, 0, len(towerItems))
	for _, item := range towerItems {
		t, err := TowerPlanFromPayload(item)
		if err != nil {
			return BuildPlan{}, err
		}
		towers = append(towers, t)
	}

	actionItems := asPayloadSlice(payload["actions"])
	actions := make([]BuildAction, 0, len(actionItems))
	for _, item := range actionItems {
		a, err := BuildActionFromPayload(item)
		if err != nil {
			return BuildPlan{}, err
		}
		actions = append(actions, a)
	}
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Wave != actions[j].Wave {
			return actions[i].Wave < actions[j].Wave
		}
		return actions[i].AtS < actions[j].AtS
	})

	return BuildPlan{
		ScenarioID:            scenarioID,
		Towers:                towers,
		ActiveGlobalModifiers: asStringSlice(payload["active_global_modifiers"]),
		Actions:               actions,
	}, nil
}
