package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/storefront-estimator/internal/config"
	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/estimator"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

func runCmd(root *rootOptions) *cobra.Command {
	var (
		seed      uint64
		noWeather bool
		junctions string
	)

	cmd := &cobra.Command{
		Use:   "run [request-file]",
		Short: "Compute an estimate for a YAML or JSON request file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(args[0])
			if err != nil {
				return err
			}
			if junctions != "" {
				req.Junctions = domain.ParseJunctionSequence(junctions)
			}

			logger := newLogger(cmd.ErrOrStderr(), root.verbose)
			engine, err := newEngine(root, weatherStage(seed, noWeather, logger), logger)
			if err != nil {
				return err
			}
			svc := estimator.NewService(engine, estimator.Collaborators{}, observability.NewUnregisteredMetrics(), logger)

			est, err := svc.Estimate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), est)
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "Weather sampler seed (0 seeds from the clock)")
	cmd.Flags().BoolVar(&noWeather, "no-weather", false, "Skip weather attenuation")
	cmd.Flags().StringVar(&junctions, "junctions", "", "Junction sequence overriding the request, e.g. B,P,B")
	return cmd
}

func normalizeCmd(root *rootOptions) *cobra.Command {
	var raw domain.AreaDistribution

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize an area distribution to sum to 100",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := newEngine(root, nil, newLogger(cmd.ErrOrStderr(), root.verbose))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), engine.NormalizeArea(raw))
		},
	}

	cmd.Flags().Float64Var(&raw.Residential, "residential", 0, "Residential percentage")
	cmd.Flags().Float64Var(&raw.Road, "road", 0, "Road percentage")
	cmd.Flags().Float64Var(&raw.OpenSpace, "open-space", 0, "Open space percentage")
	return cmd
}

type junctionReport struct {
	Junctions   string  `json:"junctions"`
	Probability float64 `json:"probability"`
}

func junctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "junctions [sequence]",
		Short: "Print the combined pass-through probability of a junction sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateJunctions(args[0]); err != nil {
				return err
			}
			seq := domain.ParseJunctionSequence(args[0])
			return writeJSON(cmd.OutOrStdout(), junctionReport{
				Junctions:   seq.String(),
				Probability: seq.CombinedProbability(),
			})
		},
	}
}

// loadRequest decodes a request file. JSON input is accepted as YAML.
func loadRequest(path string) (domain.EstimateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.EstimateRequest{}, fmt.Errorf("read request: %w", err)
	}
	var req domain.EstimateRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return domain.EstimateRequest{}, fmt.Errorf("parse request %s: %w", path, err)
	}
	return req, nil
}

func newEngine(root *rootOptions, weather *domain.WeatherAttenuator, logger *slog.Logger) (*domain.Engine, error) {
	scoring, err := config.LoadScoringConfig(root.scoringConfig)
	if err != nil {
		return nil, err
	}
	return domain.NewEngine(weather, logger,
		domain.WithScoringConfig(scoring),
		domain.WithStrictNormalization(root.strict),
	), nil
}

func weatherStage(seed uint64, disabled bool, logger *slog.Logger) *domain.WeatherAttenuator {
	if disabled {
		return nil
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return domain.NewWeatherAttenuator(nil, domain.NewWeatherSampler(seed), 0, logger)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
