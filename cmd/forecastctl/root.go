package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/forecast"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

type rootOptions struct {
	color bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "forecastctl",
		Short:         "Inspect forecast timelines offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.color, "color", false, "colorize JSON output")

	cmd.AddCommand(
		newMergeCmd(opts),
		newScoreCmd(opts),
		newValidateCmd(opts),
	)
	return cmd
}

// seriesFile is the input document. Any source may be omitted.
type seriesFile struct {
	Actual *models.ActualSeries `json:"actual"`
	AI     *models.AISeries     `json:"ai"`
	User   *userInput           `json:"user"`
}

type userInput struct {
	Symbol string                     `json:"symbol"`
	Anchor time.Time                  `json:"anchor"`
	Step   string                     `json:"step"`
	Points []models.UserForecastPoint `json:"points"`
}

func (u *userInput) series() (*models.UserSeries, error) {
	if u == nil {
		return nil, nil
	}
	s := &models.UserSeries{Symbol: u.Symbol, Anchor: u.Anchor, Points: u.Points}
	if u.Step != "" {
		d, err := time.ParseDuration(u.Step)
		if err != nil {
			return nil, fmt.Errorf("user.step: %w", err)
		}
		s.Step = d
	}
	if len(s.Points) > 0 && s.Anchor.IsZero() {
		return nil, errors.New("user.anchor is required with user points")
	}
	return s, nil
}

func readSeries(path string, stdin io.Reader) (*seriesFile, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var sf seriesFile
	if err := json.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &sf, nil
}

func (sf *seriesFile) timeline() ([]models.TimelineEntry, error) {
	user, err := sf.User.series()
	if err != nil {
		return nil, err
	}
	return forecast.Merge(sf.Actual, sf.AI, user), nil
}

func writeJSON(w io.Writer, v interface{}, color bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = pretty.Pretty(b)
	if color {
		b = pretty.Color(b, nil)
	}
	_, err = w.Write(b)
	return err
}
