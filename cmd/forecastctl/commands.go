package main

import (
	"errors"
	"fmt"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/forecast"

	"github.com/spf13/cobra"
)

func newMergeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merge FILE",
		Short: "Merge actual, AI and user series into one timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := readSeries(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			tl, err := sf.timeline()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tl, opts.color)
		},
	}
}

type scoreOutput struct {
	models.AccuracyReport
	Winner string `json:"winner,omitempty"`
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score FILE",
		Short: "Report mean absolute error of the user and AI forecasts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := readSeries(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			tl, err := sf.timeline()
			if err != nil {
				return err
			}
			rep := forecast.Score(tl)
			return writeJSON(cmd.OutOrStdout(), scoreOutput{AccuracyReport: rep, Winner: rep.Winner()}, opts.color)
		},
	}
}

type validateOutput struct {
	Valid  bool   `json:"valid"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var open, high, low, closePrice float64
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a candle's high and low bound its open and close",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := forecast.Draft{}
			for _, f := range []struct {
				name  string
				field forecast.Field
				v     float64
			}{
				{"open", forecast.FieldOpen, open},
				{"high", forecast.FieldHigh, high},
				{"low", forecast.FieldLow, low},
				{"close", forecast.FieldClose, closePrice},
			} {
				if cmd.Flags().Changed(f.name) {
					d = d.With(f.field, models.Float(f.v))
				}
			}

			out := validateOutput{Valid: true}
			err := forecast.Validate(d)
			var ve *forecast.ValidationError
			if errors.As(err, &ve) {
				out = validateOutput{Field: string(ve.Field), Reason: ve.Err.Error()}
			} else if err != nil {
				return err
			}
			if werr := writeJSON(cmd.OutOrStdout(), out, opts.color); werr != nil {
				return werr
			}
			if !out.Valid {
				return fmt.Errorf("invalid candle: %s", out.Reason)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&open, "open", 0, "open price")
	cmd.Flags().Float64Var(&high, "high", 0, "high price")
	cmd.Flags().Float64Var(&low, "low", 0, "low price")
	cmd.Flags().Float64Var(&closePrice, "close", 0, "close price")
	return cmd
}
