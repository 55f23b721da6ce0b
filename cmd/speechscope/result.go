package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/snarg/speechscope/internal/storage"
	"github.com/spf13/cobra"
)

var resultCmd = &cobra.Command{
	Use:   "result <id>",
	Short: "Print a stored run record",
	Args:  cobra.ExactArgs(1),
	RunE:  runResult,
}

func init() {
	rootCmd.AddCommand(resultCmd)
}

func runResult(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.orch.GetRun(ctx, args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("result %s not found", args[0])
	}
	if err != nil {
		return err
	}
	return printRecord(rec)
}
