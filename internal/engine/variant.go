package engine

// Variant is an x01 rule set.
type Variant struct {
	Name          string `json:"name"`
	StartingScore int    `json:"starting_score"`
	DoubleOut     bool   `json:"double_out"`
	DartsPerTurn  int    `json:"darts_per_turn"`
	MinPlayers    int    `json:"min_players"`
	MaxPlayers    int    `json:"max_players"`
}

var variants = map[string]Variant{
	"301":            {Name: "301", StartingScore: 301},
	"501":            {Name: "501", StartingScore: 501},
	"301-double-out": {Name: "301-double-out", StartingScore: 301, DoubleOut: true},
	"501-double-out": {Name: "501-double-out", StartingScore: 501, DoubleOut: true},
}

// LookupVariant resolves a variant name to its rule set with the shared
// player/turn limits filled in. The capture layer reports one resolved dart
// at a time and the turn advances per slot, so the default is one dart per
// turn; games wanting full three-dart visits override it at creation.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, ErrUnknownVariant
	}
	v.DartsPerTurn = 1
	v.MinPlayers = 2
	v.MaxPlayers = 4 // same cap the physical setup supports
	return v, nil
}
