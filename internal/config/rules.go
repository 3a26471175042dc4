package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

const DefaultGameType = "blackjack"

// TableRules are the per-table constants of the house pool.
type TableRules struct {
	GameType         string  `hcl:"game_type,label"`
	Decks            int     `hcl:"decks,optional"`
	MinBet           int64   `hcl:"min_bet,optional"`
	AbsoluteMaxBet   int64   `hcl:"absolute_max_bet,optional"`
	RiskFraction     float64 `hcl:"risk_fraction,optional"`
	HouseEdge        float64 `hcl:"house_edge,optional"`
	DealerHitsSoft17 bool    `hcl:"dealer_hits_soft_17,optional"`
}

type rulesFile struct {
	Tables []TableRules `hcl:"table,block"`
}

func DefaultTableRules() TableRules {
	return TableRules{
		GameType:       DefaultGameType,
		Decks:          6,
		MinBet:         10,
		AbsoluteMaxBet: 100_000,
		RiskFraction:   0.01,
		HouseEdge:      0.005,
	}
}

// LoadTableRules reads the named table block from an HCL rules file. A
// missing path or file yields the defaults.
func LoadTableRules(filename, gameType string) (TableRules, error) {
	if filename == "" {
		return DefaultTableRules(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultTableRules(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return TableRules{}, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var parsed rulesFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return TableRules{}, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	for _, table := range parsed.Tables {
		if table.GameType != gameType {
			continue
		}
		table.applyDefaults()
		if err := table.Validate(); err != nil {
			return TableRules{}, fmt.Errorf("table %q: %w", gameType, err)
		}
		return table, nil
	}

	return TableRules{}, fmt.Errorf("no table %q in %s", gameType, filename)
}

func (t *TableRules) applyDefaults() {
	defaults := DefaultTableRules()
	if t.Decks == 0 {
		t.Decks = defaults.Decks
	}
	if t.MinBet == 0 {
		t.MinBet = defaults.MinBet
	}
	if t.AbsoluteMaxBet == 0 {
		t.AbsoluteMaxBet = defaults.AbsoluteMaxBet
	}
	if t.RiskFraction == 0 {
		t.RiskFraction = defaults.RiskFraction
	}
}

func (t TableRules) Validate() error {
	switch {
	case t.Decks < 1 || t.Decks > 8:
		return fmt.Errorf("decks must be between 1 and 8")
	case t.MinBet < 1:
		return fmt.Errorf("min_bet must be positive")
	case t.AbsoluteMaxBet < t.MinBet:
		return fmt.Errorf("absolute_max_bet must be at least min_bet")
	case t.RiskFraction <= 0 || t.RiskFraction > 0.1:
		return fmt.Errorf("risk_fraction must be in (0, 0.1]")
	case t.HouseEdge < 0 || t.HouseEdge >= 1:
		return fmt.Errorf("house_edge must be in [0, 1)")
	}
	return nil
}
