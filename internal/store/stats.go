package store

// Sport-specific stat shapes. Adapters normalize provider payloads into
// these; the persisted representation stays an open map only at the storage
// edge (jsonb column), via ToMap.

// FootballStats is a per-match football stat line.
type FootballStats struct {
	Goals       int
	Assists     int
	ShotsTotal  int
	ShotsOn     int
	PassesTotal int
	KeyPasses   int
	Tackles     int
	Yellow      int
	Red         int

	// Goalkeeper-specific
	Saves         int
	GoalsConceded int
	CleanSheet    bool
}

// ToMap flattens to the open map written to storage.
func (s FootballStats) ToMap() map[string]float64 {
	m := map[string]float64{
		"goals":        float64(s.Goals),
		"assists":      float64(s.Assists),
		"shots_total":  float64(s.ShotsTotal),
		"shots_on":     float64(s.ShotsOn),
		"passes_total": float64(s.PassesTotal),
		"key_passes":   float64(s.KeyPasses),
		"tackles":      float64(s.Tackles),
		"yellow_cards": float64(s.Yellow),
		"red_cards":    float64(s.Red),
	}
	if s.Saves > 0 || s.GoalsConceded > 0 || s.CleanSheet {
		m["saves"] = float64(s.Saves)
		m["goals_conceded"] = float64(s.GoalsConceded)
		if s.CleanSheet {
			m["clean_sheets"] = 1
		} else {
			m["clean_sheets"] = 0
		}
	}
	return m
}

// BasketballStats is a per-game or per-season-average basketball stat line.
type BasketballStats struct {
	Points   float64
	Rebounds float64
	Assists  float64
	Steals   float64
	Blocks   float64
	Turnover float64
	FGPct    float64
	FG3Pct   float64
	FTPct    float64
}

// ToMap flattens to the open map written to storage.
func (s BasketballStats) ToMap() map[string]float64 {
	return map[string]float64{
		"pts":      s.Points,
		"reb":      s.Rebounds,
		"ast":      s.Assists,
		"stl":      s.Steals,
		"blk":      s.Blocks,
		"turnover": s.Turnover,
		"fg_pct":   s.FGPct,
		"fg3_pct":  s.FG3Pct,
		"ft_pct":   s.FTPct,
	}
}
