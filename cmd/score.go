package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

var (
	scoreSector string
	scoreFormat string
	scoreOutput string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute composite pain scores for a sector",
	Long: `Scores every company in a sector against its peers.

The composite blends three dimensions: operational pain (the sector's
diagnostic ratios, min-max normalized against the peer range), ability to
pay (revenue base), and urgency (multi-year trend of the pain metrics).
Companies with fewer than two resolvable dimensions get no total score and
sort last.

Examples:
  # Rank property & casualty carriers
  score --sector pc

  # Export health insurer scores as JSON
  score --sector health --format json --output health.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sector, err := model.ParseSector(scoreSector)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Pipeline.ScoreSector(cmd.Context(), sector)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return eris.Errorf("no companies seeded for sector %s", sector)
		}

		out := os.Stdout
		if scoreOutput != "" {
			f, err := os.Create(scoreOutput)
			if err != nil {
				return eris.Wrapf(err, "create %s", scoreOutput)
			}
			defer f.Close()
			out = f
		}

		switch scoreFormat {
		case "table":
			return writeScoreTable(out, results)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		case "csv":
			return writeScoreCSV(out, results)
		default:
			return eris.Errorf("unknown format %q (want table, json, or csv)", scoreFormat)
		}
	},
}

func writeScoreTable(out *os.File, results []model.ScoreResult) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tTOTAL\tPAIN\tABILITY\tURGENCY\tPAIN METRIC\tTREND")
	for _, r := range results {
		trend := ""
		if r.TrendDirection != nil {
			trend = string(*r.TrendDirection)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Ticker,
			fmtScore(r.TotalScore), fmtScore(r.PainScore),
			fmtScore(r.AbilityToPay), fmtScore(r.UrgencyScore),
			r.PainMetric, trend)
	}
	return w.Flush()
}

func writeScoreCSV(out *os.File, results []model.ScoreResult) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"ticker", "total", "pain", "ability", "urgency", "pain_metric", "trend"}); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	for _, r := range results {
		trend := ""
		if r.TrendDirection != nil {
			trend = string(*r.TrendDirection)
		}
		row := []string{
			r.Ticker,
			fmtScore(r.TotalScore), fmtScore(r.PainScore),
			fmtScore(r.AbilityToPay), fmtScore(r.UrgencyScore),
			r.PainMetric, trend,
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	return w.Error()
}

func fmtScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreSector, "sector", "", "sector to score (pc, life, health, reinsurance, brokers, title, mortgage)")
	f.StringVar(&scoreFormat, "format", "table", "output format: table, json, or csv")
	f.StringVar(&scoreOutput, "output", "", "output file path (default: stdout)")
	_ = scoreCmd.MarkFlagRequired("sector")

	rootCmd.AddCommand(scoreCmd)
}
