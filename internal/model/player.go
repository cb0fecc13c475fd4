package model

// Counter names accepted by update-counters.
const (
	CounterPoison       = "poison"
	CounterEnergy       = "energy"
	CounterExperience   = "experience"
	CounterCommanderTax = "commanderTax"
)

// DefaultLife is the starting life total for every player
const DefaultLife = 40

// Counters is the fixed set of per-player counters
type Counters struct {
	Poison       int `json:"poison" bson:"poison"`
	Energy       int `json:"energy" bson:"energy"`
	Experience   int `json:"experience" bson:"experience"`
	CommanderTax int `json:"commanderTax" bson:"commanderTax"`
}

// Add applies change to the named counter. ok is false for unknown names.
func (c *Counters) Add(name string, change int) (newValue int, ok bool) {
	var field *int
	switch name {
	case CounterPoison:
		field = &c.Poison
	case CounterEnergy:
		field = &c.Energy
	case CounterExperience:
		field = &c.Experience
	case CounterCommanderTax:
		field = &c.CommanderTax
	default:
		return 0, false
	}
	*field += change
	return *field, true
}

// Player is one participant at the table, keyed by connection id
type Player struct {
	ID     string  `json:"id" bson:"id"`
	UserID *string `json:"userId" bson:"userId,omitempty"`
	Name   string  `json:"name" bson:"name"`
	DeckID *string `json:"deckId" bson:"deckId,omitempty"`
	Life   int     `json:"life" bson:"life"`
	// CommanderDamage maps the opposing player dealing damage to the total received
	CommanderDamage map[string]int `json:"commanderDamage" bson:"commanderDamage"`
	Counters        Counters       `json:"counters" bson:"counters"`
	IsHost          bool           `json:"isHost" bson:"isHost"`
}

// Clone returns a deep copy safe to hand to other goroutines
func (p *Player) Clone() Player {
	c := *p
	c.CommanderDamage = make(map[string]int, len(p.CommanderDamage))
	for k, v := range p.CommanderDamage {
		c.CommanderDamage[k] = v
	}
	if p.UserID != nil {
		u := *p.UserID
		c.UserID = &u
	}
	if p.DeckID != nil {
		d := *p.DeckID
		c.DeckID = &d
	}
	return c
}

// JoinResult is returned after a connection joins a room
type JoinResult struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Rejoined bool   `json:"rejoined,omitempty"`
}
