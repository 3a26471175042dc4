package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"blackjack-pool-backend/internal/blackjack"
	"blackjack-pool-backend/internal/fairness"
	"blackjack-pool-backend/internal/models"
)

// RevealCmd replays a reveal, either the bare object or the API response
// that wraps it under "reveal".
type RevealCmd struct {
	File string `arg:"" optional:"" name:"file" help:"Reveal JSON file (default stdin)" default:"-"`
}

func (cmd RevealCmd) Run(out *Output) error {
	reveal, err := loadReveal(cmd.File)
	if err != nil {
		return err
	}

	if err := fairness.Verify(reveal); err != nil {
		return fmt.Errorf("session %s failed verification: %w", reveal.SessionID, err)
	}

	fmt.Fprintf(out, "session %s verified\n", reveal.SessionID)
	fmt.Fprintf(out, "  player %s (%d)\n", hand(reveal.PlayerCards), blackjack.HandValue(reveal.PlayerCards))
	fmt.Fprintf(out, "  dealer %s (%d)\n", hand(reveal.DealerCards), blackjack.HandValue(reveal.DealerCards))
	if reveal.Result != "" {
		fmt.Fprintf(out, "  result %s, bet %d, payout %d\n", reveal.Result, reveal.BetAmount, reveal.Payout)
	}
	return nil
}

func loadReveal(path string) (models.Reveal, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return models.Reveal{}, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return models.Reveal{}, err
	}

	var wrapped struct {
		Reveal *models.Reveal `json:"reveal"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return models.Reveal{}, fmt.Errorf("decoding reveal: %w", err)
	}
	if wrapped.Reveal != nil {
		return *wrapped.Reveal, nil
	}

	var reveal models.Reveal
	if err := json.Unmarshal(data, &reveal); err != nil {
		return models.Reveal{}, fmt.Errorf("decoding reveal: %w", err)
	}
	if reveal.ServerSeed == "" {
		return models.Reveal{}, fmt.Errorf("reveal has no server seed")
	}
	return reveal, nil
}

type ShoeCmd struct {
	ServerSeed string `required:"" help:"Revealed server seed"`
	ClientSeed string `required:"" help:"Client seed of the session"`
	SessionID  string `required:"" name:"session-id" help:"Session ID"`
	Decks      int    `default:"6" help:"Number of decks in the shoe"`
	Count      int    `default:"12" help:"Number of cards to print"`
}

func (cmd ShoeCmd) Run(out *Output) error {
	shoe, err := fairness.NewShoe(cmd.ServerSeed, cmd.ClientSeed, cmd.SessionID, cmd.Decks)
	if err != nil {
		return err
	}
	for i, card := range shoe.Peek(cmd.Count) {
		fmt.Fprintf(out, "%3d  %s\n", i, card)
	}
	return nil
}

type HashCmd struct {
	ServerSeed string `arg:"" name:"server-seed" help:"Server seed to hash"`
}

func (cmd HashCmd) Run(out *Output) error {
	fmt.Fprintln(out, fairness.HashSeed(cmd.ServerSeed))
	return nil
}

func hand(cards []models.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
