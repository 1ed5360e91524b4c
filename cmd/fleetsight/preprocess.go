package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fleetsight/fleetsight-go/internal/config"
	"github.com/fleetsight/fleetsight-go/internal/domain"
	"github.com/fleetsight/fleetsight-go/internal/infra/observability"
	"github.com/fleetsight/fleetsight-go/internal/processing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// processedLine is one line of preprocess output.
type processedLine struct {
	Processed      processing.ProcessedTransaction `json:"processed"`
	NormalizedText map[string]any                  `json:"normalized_text,omitempty"`
}

func preprocessCmd() *cobra.Command {
	var inputPath, historyPath string

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Derive features for a JSON file of transactions",
		Long: `Reads a JSON array of transactions, validates each one and writes one
JSON object per line to stdout with the processed record and the
normalized free-text fields. History-relative features are computed
against the optional --history file, read once for the whole input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.NewLogger(config.Load().LogLevel)
			defer logger.Sync()

			return runPreprocess(inputPath, historyPath, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a JSON array of transactions")
	cmd.Flags().StringVar(&historyPath, "history", "", "Path to a JSON array of prior transactions")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runPreprocess(inputPath, historyPath string, out io.Writer, logger *zap.Logger) error {
	txs, err := readTransactions(inputPath)
	if err != nil {
		return err
	}

	var history []domain.Transaction
	if historyPath != "" {
		if history, err = readTransactions(historyPath); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	for i := range txs {
		line := processedLine{
			Processed:      processing.Preprocess(txs[i], history),
			NormalizedText: processing.CleanTextFields(&txs[i]),
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	logger.Info("preprocess: done",
		zap.Int("transactions", len(txs)),
		zap.Int("history", len(history)),
	)
	return nil
}

// readTransactions decodes and validates a JSON array of transactions.
func readTransactions(path string) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var inputs []domain.TransactionInput
	if err := json.NewDecoder(f).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	txs := make([]domain.Transaction, 0, len(inputs))
	for i := range inputs {
		tx, err := inputs[i].ToTransaction()
		if err != nil {
			return nil, fmt.Errorf("%s: transaction %d: %w", path, i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
