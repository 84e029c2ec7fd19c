package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gurubamal/iimcat-sub002/internal/di"
	"github.com/gurubamal/iimcat-sub002/internal/domain/service"
	"github.com/gurubamal/iimcat-sub002/internal/services/rebound"
	"github.com/gurubamal/iimcat-sub002/internal/usecase"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
	xhttp "github.com/gurubamal/iimcat-sub002/pkg/http"
	"github.com/gurubamal/iimcat-sub002/pkg/logger"
	"github.com/gurubamal/iimcat-sub002/pkg/metrics"
)

const defaultConfigPath = "config/config.yaml"

func rootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "rebound",
		Short:         "Correction-to-rebound confidence engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "config file path")
	root.AddCommand(serveCmd(&configPath), evaluateCmd(&configPath), checkConfigCmd(&configPath))
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the requests consumer and the scheduled watchlist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}

// evaluateCmd scores a request file offline: no stores, no collaborators, no sinks.
func evaluateCmd(configPath *string) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate an inline request file and print the decisions as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			req, err := readRequest(cmd, input)
			if err != nil {
				return err
			}

			l := logger.NewWriter(cmd.ErrOrStderr(), zerolog.WarnLevel)
			engine := rebound.NewEngine(cfg.Engine)
			var sup service.DecisionValidator
			if cfg.Collaborators.Supervisor == "rules" {
				sup = rebound.NewRuleSupervisor()
			}
			evaluator := usecase.NewBatchEvaluator(engine, sup, metrics.Nop{}, l, cfg.Run.Workers)
			uc := usecase.NewRunUseCase(engine, evaluator, nil, metrics.Nop{}, usecase.RunConfig{
				Workers:  cfg.Run.Workers,
				Location: cfg.Location(),
			}, usecase.WithRunLogger(l))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(uc.EvaluateInline(cmd.Context(), *req))
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "request JSON file, - for stdin")
	return cmd
}

func readRequest(cmd *cobra.Command, path string) (*usecase.EvaluateRequest, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	req := &usecase.EvaluateRequest{}
	if err := json.Unmarshal(b, req); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	if verrs := xhttp.ValidateStruct(cmd.Context(), req); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid input: %s: %s", verrs[0].Field, verrs[0].Message)
	}
	return req, nil
}

func checkConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print the effective engine section",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(struct {
				Engine config.Engine `yaml:"engine"`
			}{cfg.Engine})
		},
	}
}
