package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pagedrill/internal/application/browser"
	"pagedrill/internal/application/service"
	"pagedrill/internal/di"
	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/config"
	"pagedrill/internal/infrastructure/console"
	"pagedrill/internal/infrastructure/driver"
	"pagedrill/internal/pageobjects/demo"
)

type rootOptions struct {
	settingsFile string
	engine       string
	timeout      time.Duration
	screenshot   string
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	report := console.NewReporter(out)

	root := &cobra.Command{
		Use:           "probe",
		Short:         "Smoke-check page objects and locators against a browser engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.settingsFile, "config", "c", config.DefaultFile, "settings file")
	root.PersistentFlags().StringVarP(&opts.engine, "engine", "e", "", "engine name, overrides webDriver.browserDriver")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall time limit")
	root.PersistentFlags().StringVar(&opts.screenshot, "screenshot", "", "save a screenshot with this name when done")

	root.AddCommand(
		newEnginesCommand(report),
		newPagesCommand(report),
		newOpenCommand(opts, report),
		newPeekCommand(opts, report),
	)
	return root
}

// reportedError has already been printed by the command that returned it.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// execute runs the CLI and prints any error the commands did not report,
// such as bad flags, wrong argument counts or invalid locators.
func execute(out io.Writer, args []string) error {
	root := newRootCommand(out)
	root.SetArgs(args)
	err := root.Execute()
	var reported reportedError
	if err != nil && !errors.As(err, &reported) {
		console.NewReporter(out).Failure(err)
	}
	return err
}

func pageRegistry() *service.PageRegistry {
	r := service.NewPageRegistry()
	demo.Register(r)
	return r
}

func newEnginesCommand(report *console.Reporter) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the engine names the driver factory accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report.List("Engines", driver.NewFactory(config.Default(), nil).Engines())
			return nil
		},
	}
}

func newPagesCommand(report *console.Reporter) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List the registered page objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report.List("Pages", pageRegistry().Names())
			return nil
		},
	}
}

func newOpenCommand(opts *rootOptions, report *console.Reporter) *cobra.Command {
	return &cobra.Command{
		Use:   "open PAGE",
		Short: "Open a registered page object at its home page and wait until it is loaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, report, func(ctx context.Context, c *di.Container) error {
				report.Step("open", args[0])
				if _, err := c.Pages.Open(ctx, c.Browser, args[0]); err != nil {
					return err
				}
				title, _ := c.Browser.PageTitle(ctx)
				current, _ := c.Browser.CurrentURL(ctx)
				report.Success("%s loaded: %q at %s", args[0], title, current)
				return nil
			})
		},
	}
}

type peekOptions struct {
	url      string
	by       string
	index    int
	parentBy string
	parent   string
}

func newPeekCommand(opts *rootOptions, report *console.Reporter) *cobra.Command {
	peek := &peekOptions{}
	cmd := &cobra.Command{
		Use:   "peek VALUE",
		Short: "Look for an element without waiting the full implicit wait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locator, err := buildLocator(peek.by, args[0], peek.index)
			if err != nil {
				return err
			}
			var parentLocator *entity.Locator
			if peek.parent != "" {
				l, err := buildLocator(peek.parentBy, peek.parent, -1)
				if err != nil {
					return err
				}
				parentLocator = &l
			}

			return withContainer(cmd.Context(), opts, report, func(ctx context.Context, c *di.Container) error {
				if peek.url != "" {
					report.Step("navigate", peek.url)
					if err := c.Browser.GoToURL(ctx, peek.url); err != nil {
						return err
					}
				}

				var parent *browser.Element
				if parentLocator != nil {
					parent = browser.NewElement(c.Browser, nil, *parentLocator)
				}
				target := browser.NewElement(c.Browser, parent, locator)

				report.Step("peek", target.String())
				found, err := c.Browser.PeekElement(ctx, target)
				if err != nil {
					return err
				}
				report.Element(describe(ctx, c.Browser, target, found))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&peek.url, "url", "", "navigate here first")
	cmd.Flags().StringVar(&peek.by, "by", "css", "locator strategy")
	cmd.Flags().IntVar(&peek.index, "index", -1, "select the n-th match (zero based)")
	cmd.Flags().StringVar(&peek.parent, "parent", "", "look inside this element")
	cmd.Flags().StringVar(&peek.parentBy, "parent-by", "css", "strategy of --parent")
	return cmd
}

func buildLocator(by, value string, index int) (entity.Locator, error) {
	strategy, err := entity.ParseStrategy(by)
	if err != nil {
		return entity.Locator{}, err
	}
	l, err := entity.NewLocator(strategy, value)
	if err != nil {
		return entity.Locator{}, err
	}
	if index >= 0 {
		return l.At(index)
	}
	return l, nil
}

func describe(ctx context.Context, b *browser.Browser, target, found *browser.Element) console.ElementReport {
	report := console.ElementReport{Locator: target.String()}
	if found == nil {
		return report
	}
	report.Found = true
	var err error
	if report.Total, err = found.Count(ctx); err != nil {
		report.Total = 1
	}
	report.Text, _ = found.Text(ctx)
	report.Displayed, _ = found.IsDisplayed(ctx)
	report.Enabled, _ = found.IsEnabled(ctx)
	return report
}

func withContainer(parent context.Context, opts *rootOptions, report *console.Reporter, fn func(ctx context.Context, c *di.Container) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.timeout)
	defer cancel()

	report.Step("launch", opts.engine)
	c, err := di.NewContainer(ctx, di.Config{
		SettingsFile: opts.settingsFile,
		Engine:       opts.engine,
		LogName:      "probe",
		Pages:        pageRegistry(),
	})
	if err != nil {
		report.Failure(err)
		return reportedError{err}
	}
	defer c.Close()

	if err := fn(ctx, c); err != nil {
		c.Logger.Error("probe failed", "error", err)
		report.Failure(err)
		return reportedError{err}
	}

	if opts.screenshot != "" {
		report.Step("screenshot", opts.screenshot)
		path, err := c.Browser.TakeScreenshot(ctx, opts.screenshot)
		if err != nil {
			err = fmt.Errorf("screenshot: %w", err)
			report.Failure(err)
			return reportedError{err}
		}
		report.Success("saved %s", path)
	}
	return nil
}
