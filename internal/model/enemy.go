package model

// EnemyDefinition is a spawnable enemy archetype.
type EnemyDefinition struct {
	ID         string
	Name       string
	HP         float64
	Armor      float64
	Block      float64
	Barrier    float64
	RegenPerS  float64
	Speed      float64
	Tags       []string
	Provenance string
}

// EnemyDefinitionFromPayload validates and constructs an EnemyDefinition.
func EnemyDefinitionFromPayload(payload Payload) (EnemyDefinition, error) {
	id, err := requireString(payload, "id")
	if err != nil {
		return EnemyDefinition{}, err
	}
	name, err := requireString(payload, "name")
	if err != nil {
		return EnemyDefinition{}, err
	}
	hp, err := requireFloat(payload, "hp")
	if err != nil {
		return EnemyDefinition{}, err
	}
	return EnemyDefinition{
		ID:         id,
		Name:       name,
		HP:         hp,
		Armor:      asFloat(payload["armor"], 0.0),
		Block:      asFloat(payload["block"], 0.0),
		Barrier:    asFloat(payload["barrier"], 0.0),
		RegenPerS:  asFloat(payload["regen_per_s"], 0.0),
		Speed:      asFloat(payload["speed"], 0.0),
		Tags:       asStringSlice(payload["tags"]),
		Provenance: asString(payload["provenance"], "manual"),
	}, nil
}
