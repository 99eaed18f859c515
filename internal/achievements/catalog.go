package achievements

import "bubblepop/internal/content"

type ID string

const (
	FirstPop      ID = "first_pop"
	ComboMaster   ID = "combo_master"
	Sharpshooter  ID = "sharpshooter"
	Centurion     ID = "centurion"
	StageClimber  ID = "stage_climber"
	ChainReaction ID = "chain_reaction"
	PerfectRound  ID = "perfect_round"
)

type Achievement struct {
	ID          ID
	Name        string
	Description string
	Icon        string
	Rarity      content.Rarity
}

var All = map[ID]Achievement{
	FirstPop:      {ID: FirstPop, Name: "First Pop", Description: "Pop your first bubble", Icon: "🫧", Rarity: content.RarityCommon},
	ComboMaster:   {ID: ComboMaster, Name: "Combo Master", Description: "Reach a 20x combo", Icon: "🔥", Rarity: content.RarityRare},
	Sharpshooter:  {ID: Sharpshooter, Name: "Sharpshooter", Description: "Finish a game with 90%+ accuracy", Icon: "🎯", Rarity: content.RarityRare},
	Centurion:     {ID: Centurion, Name: "Centurion", Description: "Score 100,000 points in a single game", Icon: "💯", Rarity: content.RarityEpic},
	StageClimber:  {ID: StageClimber, Name: "Stage Climber", Description: "Reach stage 10", Icon: "🧗", Rarity: content.RarityEpic},
	ChainReaction: {ID: ChainReaction, Name: "Chain Reaction", Description: "Reach a 50x combo", Icon: "⚡", Rarity: content.RarityLegendary},
	PerfectRound:  {ID: PerfectRound, Name: "Perfect Round", Description: "Finish a game with 100% accuracy", Icon: "✨", Rarity: content.RarityLegendary},
}

// GameStats is what the game reports when a round ends.
type GameStats struct {
	Score    int
	Popped   int
	MaxCombo int
	Accuracy float64 // percent
	Stage    int
}

func Lookup(id string) (Achievement, bool) {
	a, ok := All[ID(id)]
	return a, ok
}

// Evaluate returns the achievements a finished game earned, in catalog
// order.
func Evaluate(stats GameStats) []Achievement {
	var earned []Achievement

	if stats.Popped > 0 {
		earned = append(earned, All[FirstPop])
	}

	if stats.MaxCombo >= 20 {
		earned = append(earned, All[ComboMaster])
	}

	if stats.Popped > 0 && stats.Accuracy >= 90 {
		earned = append(earned, All[Sharpshooter])
	}

	if stats.Score >= 100000 {
		earned = append(earned, All[Centurion])
	}

	if stats.Stage >= 10 {
		earned = append(earned, All[StageClimber])
	}

	if stats.MaxCombo >= 50 {
		earned = append(earned, All[ChainReaction])
	}

	// Perfect Round needs a real game, not one stray click
	if stats.Popped >= 10 && stats.Accuracy >= 100 {
		earned = append(earned, All[PerfectRound])
	}

	return earned
}
