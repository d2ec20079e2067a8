package infer

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wenzapen/scout/apishape"
	"github.com/wenzapen/scout/cmd/setup"
	"github.com/wenzapen/scout/collect"
	"github.com/wenzapen/scout/dom"
	"github.com/wenzapen/scout/infer"
	"github.com/wenzapen/scout/prober"
	"github.com/wenzapen/scout/recipe"
)

var InferCmd = &cobra.Command{
	Use:   "infer",
	Short: "infer selectors or API shapes",
	Long:  "analyze a page or a JSON payload and suggest how to extract its results",
}

var selectorsCmd = &cobra.Command{
	Use:   "selectors",
	Short: "find the result list on a page",
	Long:  "score candidate selectors, find the repeated result containers and draft a recipe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelectors(cmd)
	},
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "find the results in a JSON search response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPI(cmd)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe URL...",
	Short: "analyze several candidate pages concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd, args)
	},
}

var (
	cfgFile    string
	mode       string
	pageURL    string
	inputFile  string
	name       string
	knownHrefs []string
	candidates []string
	query      string
	intercept  string
	workers    int
)

func init() {
	InferCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "set config file")
	InferCmd.PersistentFlags().StringVar(&mode, "mode", setup.ModeStatic, "page mode: static or browser")

	selectorsCmd.Flags().StringVar(&pageURL, "url", "", "page to analyze")
	selectorsCmd.Flags().StringVarP(&inputFile, "file", "f", "", "saved HTML to analyze instead of a url")
	selectorsCmd.Flags().StringVar(&name, "name", "inferred", "name of the drafted recipe")
	selectorsCmd.Flags().StringSliceVar(&knownHrefs, "known-href", nil, "result link known to be on the page")
	selectorsCmd.Flags().StringSliceVar(&candidates, "candidate", nil, "candidate selector (default: built-in list)")

	apiCmd.Flags().StringVar(&pageURL, "url", "", "JSON endpoint, or with --intercept the page that calls it")
	apiCmd.Flags().StringVarP(&inputFile, "file", "f", "", "saved JSON payload")
	apiCmd.Flags().StringVarP(&query, "query", "q", "", "the search term the payload answers")
	apiCmd.Flags().StringVar(&intercept, "intercept", "", "load --url in the browser and analyze responses whose URL contains this")

	probeCmd.Flags().IntVar(&workers, "workers", 0, "pages probed at once (default prober.workers)")
	probeCmd.Flags().StringSliceVar(&knownHrefs, "known-href", nil, "result link known to be on the pages")

	InferCmd.AddCommand(selectorsCmd, apiCmd, probeCmd)
}

type selectorsOutput struct {
	Selectors infer.ScoreReport       `json:"selectors"`
	Ancestor  infer.SelectorCandidate `json:"ancestor"`
	Recipe    *recipe.Recipe          `json:"recipe,omitempty"`
}

func runSelectors(cmd *cobra.Command) error {
	env, err := setup.Load(cfgFile)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var doc *dom.Static
	switch {
	case inputFile != "":
		f, err := os.Open(inputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if doc, err = dom.NewStaticFromReader(f, pageURL); err != nil {
			return err
		}
	case pageURL != "":
		page, err := env.Page(ctx, mode, env.Client())
		if err != nil {
			return err
		}
		if err := page.Navigate(ctx, pageURL, dom.WaitNetworkIdle, env.Config.Browser.NavigationTimeout()); err != nil {
			return err
		}
		if doc, err = dom.Snapshot(ctx, page); err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of --url or --file is required")
	}

	out := selectorsOutput{
		Selectors: infer.ScoreSelectors(doc, candidates),
		Ancestor:  infer.FindConsecutiveAncestor(doc, infer.Options{KnownHrefs: knownHrefs}),
	}
	out.Recipe = out.Ancestor.Recipe(name, pageURL)
	env.Logger.Info("selectors inferred",
		zap.Bool("scorer", out.Selectors.Found), zap.Bool("ancestor", out.Ancestor.Found))
	return setup.PrintJSON(cmd.OutOrStdout(), out)
}

func runAPI(cmd *cobra.Command) error {
	env, err := setup.Load(cfgFile)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var d apishape.Descriptor
	switch {
	case inputFile != "":
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return err
		}
		if d, err = apishape.AnalyzeJSON(data, query); err != nil {
			return err
		}
	case pageURL != "" && intercept != "":
		if d, err = interceptAPI(ctx, env); err != nil {
			return err
		}
	case pageURL != "":
		resp, err := env.Client().Do(ctx, &collect.Request{URL: pageURL, Method: "GET"})
		if err != nil {
			return err
		}
		if !resp.OK() {
			return fmt.Errorf("GET %s: status %d", pageURL, resp.Status)
		}
		if d, err = apishape.AnalyzeJSON(resp.Body, query); err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of --url or --file is required")
	}
	return setup.PrintJSON(cmd.OutOrStdout(), d)
}

// interceptAPI loads the page in the browser and analyzes every JSON
// response it fetches until one looks like search results.
func interceptAPI(ctx context.Context, env *setup.Env) (apishape.Descriptor, error) {
	page, err := env.Page(ctx, setup.ModeBrowser, nil)
	if err != nil {
		return apishape.Descriptor{}, err
	}
	icpt, ok := page.(collect.Interceptor)
	if !ok {
		return apishape.Descriptor{}, fmt.Errorf("page cannot intercept responses")
	}

	timeout := env.Config.Browser.NavigationTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	responses, err := icpt.OnResponse(ctx, collect.URLContains(intercept))
	if err != nil {
		return apishape.Descriptor{}, err
	}
	if err := page.Navigate(ctx, pageURL, dom.WaitNetworkIdle, timeout); err != nil {
		return apishape.Descriptor{}, err
	}

	// late autocomplete calls get a short grace period after the load
	grace := time.NewTimer(2 * time.Second)
	defer grace.Stop()
	last := apishape.Descriptor{Reason: fmt.Sprintf("no response matching %q", intercept)}
	for {
		select {
		case it, ok := <-responses:
			if !ok {
				return last, nil
			}
			d, err := apishape.AnalyzeJSON(it.Body, query)
			if err != nil {
				env.Logger.Debug("skip non-JSON response", zap.String("url", it.URL), zap.Error(err))
				continue
			}
			if d.Found {
				env.Logger.Info("api shape found", zap.String("url", it.URL), zap.String("items", d.ItemsPath))
				return d, nil
			}
			last = d
		case <-grace.C:
			return last, nil
		}
	}
}

type probeOutput struct {
	Reports []prober.Report `json:"reports"`
	Best    *prober.Report  `json:"best,omitempty"`
	Recipe  *recipe.Recipe  `json:"recipe,omitempty"`
}

func runProbe(cmd *cobra.Command, urls []string) error {
	env, err := setup.Load(cfgFile)
	if err != nil {
		return err
	}
	defer env.Close()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sessions, err := env.Sessions(ctx, mode, env.Client())
	if err != nil {
		return err
	}
	n := workers
	if n <= 0 {
		n = env.Config.Prober.Workers
	}
	p := prober.New(sessions,
		prober.WithLogger(env.Logger),
		prober.WithWorkCount(n),
		prober.WithKnownHrefs(knownHrefs...),
		prober.WithNavigationTimeout(env.Config.Browser.NavigationTimeout()),
	)
	reports, err := p.Probe(ctx, urls)
	out := probeOutput{Reports: reports}
	if best, ok := prober.Best(reports); ok {
		out.Best = &best
		out.Recipe = best.Ancestor.Recipe("probed", best.URL)
	}
	if perr := setup.PrintJSON(cmd.OutOrStdout(), out); perr != nil {
		return perr
	}
	return err
}
