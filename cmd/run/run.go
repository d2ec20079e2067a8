package run

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wenzapen/scout/cmd/setup"
	"github.com/wenzapen/scout/engine"
	"github.com/wenzapen/scout/metrics"
	"github.com/wenzapen/scout/recipe"
	"github.com/wenzapen/scout/storage"
	"github.com/wenzapen/scout/storage/jsonstorage"
	"github.com/wenzapen/scout/storage/sqlstorage"
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "run a recipe",
	Long:  "run a recipe against a page and print the extraction record, or store it as JSON lines or SQLite rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd)
	},
}

var (
	cfgFile     string
	recipeFile  string
	pageURL     string
	mode        string
	outputFile  string
	sqlURL      string
	metricsFile string
)

func init() {
	RunCmd.Flags().StringVar(&cfgFile, "config", "", "set config file")
	RunCmd.Flags().StringVarP(&recipeFile, "recipe", "r", "", "recipe file (.json, .yaml)")
	RunCmd.Flags().StringVar(&pageURL, "url", "", "override the recipe url")
	RunCmd.Flags().StringVar(&mode, "mode", setup.ModeStatic, "page mode: static or browser")
	RunCmd.Flags().StringVarP(&outputFile, "output", "o", "", "append records to this JSON-lines file (default storage.path)")
	RunCmd.Flags().StringVar(&sqlURL, "sqlite", "", "insert records into this SQLite database (default storage.sqlURL)")
	RunCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this file")
	RunCmd.MarkFlagRequired("recipe")
}

func Run(cmd *cobra.Command) error {
	env, err := setup.Load(cfgFile)
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.Logger.Named("run")

	rec, err := recipe.Load(recipeFile)
	if err != nil {
		return err
	}
	if pageURL != "" {
		rec.URL = pageURL
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := env.Client()
	page, err := env.Page(ctx, mode, client)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	runner := engine.NewRunner(
		engine.WithLogger(logger),
		engine.WithPage(page),
		engine.WithRequester(client),
		engine.WithMetrics(metrics.New(reg)),
		engine.WithSampleSize(env.Config.Runner.SampleSize),
		engine.WithNavigationTimeout(env.Config.Browser.NavigationTimeout()),
	)
	res, err := runner.Run(ctx, rec)
	if metricsFile != "" {
		if werr := prometheus.WriteToTextfile(metricsFile, reg); werr != nil {
			logger.Error("write metrics", zap.Error(werr))
		}
	}
	if verr := res.Validate(); verr != nil {
		logger.Warn("extraction record is suspect", zap.Error(verr), zap.Strings("leaks", res.Leaks))
	}

	if serr := output(cmd, env, res, rec.URL); serr != nil {
		return serr
	}
	if err != nil {
		return fmt.Errorf("run %s: %s: %w", rec.Name, res.Status, err)
	}
	return nil
}

func output(cmd *cobra.Command, env *setup.Env, res *engine.Result, url string) error {
	sink, err := openStorage(env)
	if err != nil {
		return err
	}
	if sink == nil {
		return setup.PrintJSON(cmd.OutOrStdout(), res)
	}
	err = sink.Save(storage.CellsFrom(res, url, time.Now())...)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	return err
}

// openStorage returns the configured sink, or nil to print to stdout.
func openStorage(env *setup.Env) (storage.Storage, error) {
	sc := env.Config.Storage
	if sqlURL != "" {
		sc.SQLURL = sqlURL
	}
	if outputFile != "" {
		sc.Path, sc.SQLURL = outputFile, ""
	}
	switch {
	case sc.SQLURL != "":
		return sqlstorage.New(
			sqlstorage.WithSQLURL(sc.SQLURL),
			sqlstorage.WithBatchCount(sc.BatchCount),
			sqlstorage.WithLogger(env.Logger.Named("storage")),
		)
	case sc.Path != "":
		return jsonstorage.New(
			jsonstorage.WithPath(sc.Path),
			jsonstorage.WithBatchCount(sc.BatchCount),
			jsonstorage.WithLogger(env.Logger.Named("storage")),
		)
	}
	return nil, nil
}
