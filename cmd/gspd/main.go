// Command gspd is a thin, single-block driver for the hexrealm engine
// (SPEC_FULL.md §2.3): it reads one block's JSON from stdin, runs it
// through core.Pipeline against a fresh in-memory RowStore, and writes the
// resulting full_state() JSON to stdout. It exists for local testing and
// scripting, not as the production chain node — that role belongs to a
// full GSP framework driver wired against this module's core package and
// a persistent RowStore implementation.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hexrealm/core"
	"hexrealm/pkg/config"
)

// blockInput is the JSON this command expects on stdin.
type blockInput struct {
	Height    core.Height      `json:"height"`
	BlockHash string           `json:"blockhash"`
	Moves     []core.MoveBundle `json:"moves"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var chain string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "gspd",
		Short: "Process one hexrealm block from stdin and print its resulting state",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(logLevel)

			raw, err := config.Load(chain)
			if err != nil {
				return err
			}
			params := core.ParamsFromRaw(raw)

			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var block blockInput
			if err := json.Unmarshal(input, &block); err != nil {
				return &core.ErrInvalidBlock{Detail: err.Error()}
			}
			hash, err := hex.DecodeString(block.BlockHash)
			if err != nil {
				return &core.ErrInvalidBlock{Detail: "blockhash: " + err.Error()}
			}

			store := core.NewMemStore(core.OpenMap())
			pipeline := core.NewPipeline(log.WithField("component", "pipeline"))
			meta := core.BlockMeta{Height: block.Height, BlockHash: hash}
			if err := pipeline.ProcessBlock(store, params, meta, block.Moves); err != nil {
				return err
			}

			out, err := core.FullState(store, block.Height)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&chain, "chain", "", "chain to load parameters for (main, test, regtest)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logrus level (debug, info, warn, error)")
	return cmd
}

func newLogger(level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return logrus.NewEntry(log)
}
