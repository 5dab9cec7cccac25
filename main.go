// catalogtx: multilingual product catalog tooling. Resolves localized product
// views and stages machine translations of catalog content for review.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/minios-linux/catalogtx/catalog"
	"github.com/minios-linux/catalogtx/config"
	"github.com/minios-linux/catalogtx/draft"
	"github.com/minios-linux/catalogtx/engine"
	"github.com/minios-linux/catalogtx/i18n"
	"github.com/minios-linux/catalogtx/langmeta"
	"github.com/minios-linux/catalogtx/lockfile"
	"github.com/minios-linux/catalogtx/logging"
	"github.com/minios-linux/catalogtx/store"
	"github.com/minios-linux/catalogtx/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

// logOut receives the colored progress lines.
var logOut io.Writer = os.Stderr

func logInfo(format string, args ...any) {
	fmt.Fprintf(logOut, colorBlue+"[INFO]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(logOut, colorGreen+"[OK]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(logOut, colorYellow+"[WARN]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(logOut, colorRed+"[ERROR]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
	verbose    bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalogtx",
		Short: i18n.T("Multilingual product catalog: localized views and draft translations"),
		Long: `catalogtx manages the localized content of a product catalog.

Products are stored with their content in several languages. One language is
the source of truth; the others are filled by an external translation engine
and staged as drafts for human review before anything reaches the catalog.

Commands:
  import      Load product documents into the store
  resolve     Print the localized view of a product
  translate   Translate products and write the draft artifact
  status      Show configuration, store and draft statistics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/"+config.FileName+")")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newStatusCmd(),
		newImportCmd(),
		newResolveCmd(),
		newTranslateCmd(),
		newVersionCmd(),
		newEngineStubCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Shared setup
// ---------------------------------------------------------------------------

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootDir, configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogProvider builds the structured logger. Without an explicit level only
// warnings and errors are shown, the colored helpers cover normal progress.
func newLogProvider(cfg *config.Config) (logging.Provider, error) {
	lc := cfg.Log
	if lc.Level == "" {
		lc.Level = "warn"
	}
	return logging.NewGoLogger(lc)
}

func openStore(ctx context.Context, cfg *config.Config, provider logging.Provider) (*store.Store, error) {
	dsn := cfg.Database.DSN
	if !strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" && !filepath.IsAbs(dsn) {
		dsn = filepath.Join(rootDir, dsn)
	}
	st, err := store.Open(dsn, store.WithLogger(logging.ModuleLogger(provider, logging.ModuleStore)))
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalogtx version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// engine-stub (hidden: in-process engine speaking the stdin/stdout protocol)
// ---------------------------------------------------------------------------

func newEngineStubCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "engine-stub",
		Short:  "Run the uppercasing stub translation engine on stdin/stdout",
		Hidden: true,
		Run: func(cmd *cobra.Command, args []string) {
			code := engine.ServeStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), engine.Uppercase)
			if code != 0 {
				os.Exit(code)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// status (read-only: config, store, lock and artifact)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, store and draft statistics",
		Long: `Show the effective configuration, the number of stored products, the
incremental translation lock file and statistics of the last draft artifact.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	section := func(title string) {
		fmt.Fprintf(out, "\n%s%s%s\n", colorBlue, i18n.T(title), colorReset)
		fmt.Fprintln(out, strings.Repeat("─", 60))
	}

	section("Project")
	absRoot, _ := filepath.Abs(rootDir)
	fmt.Fprintf(out, "  Root:       %s\n", absRoot)
	if cfg.Found() {
		fmt.Fprintf(out, "  Config:     %s\n", cfg.Path())
	} else {
		fmt.Fprintf(out, "  Config:     %s (%s)\n", cfg.Path(), i18n.T("not found, using defaults"))
	}
	fmt.Fprintf(out, "  Database:   %s\n", store.Redact(cfg.Database.DSN))
	fmt.Fprintf(out, "  Engine:     %s\n", strings.Join(append([]string{cfg.Engine.Command}, cfg.Engine.Args...), " "))
	fmt.Fprintf(out, "  Source:     %s\n", langmeta.Resolve(cfg.SourceLang).Label())
	fmt.Fprintf(out, "  Default:    %s\n", langmeta.Resolve(cfg.DefaultLang).Label())
	fmt.Fprintf(out, "  Targets:    %s\n", strings.Join(cfg.Targets(), ", "))
	fmt.Fprintf(out, "  Messages:   %s\n", strings.Join(append([]string{"en"}, i18n.Available()...), ", "))

	section("Store")
	provider, err := newLogProvider(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg, provider)
	if err != nil {
		fmt.Fprintf(out, "  %s: %v\n", i18n.T("unavailable"), err)
	} else {
		defer st.Close()
		n, err := st.Count(ctx)
		if err != nil {
			fmt.Fprintf(out, "  %s: %v\n", i18n.T("unavailable"), err)
		} else {
			fmt.Fprintf(out, "  Products:   %d\n", n)
		}
	}

	section("Lock file")
	lf, err := lockfile.Load(rootDir)
	if err != nil {
		fmt.Fprintf(out, "  %s: %v\n", i18n.T("unreadable"), err)
	} else {
		fmt.Fprintf(out, "  %s\n", lf.Summary())
	}

	section("Drafts")
	outPath := cfg.OutputPath(rootDir)
	fmt.Fprintf(out, "  File:       %s\n", outPath)
	drafts, err := draft.Load(outPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(out, "  %s\n", i18n.T("no draft artifact yet"))
		return nil
	case err != nil:
		fmt.Fprintf(out, "  %s: %v\n", i18n.T("unreadable"), err)
		return nil
	}

	sum := draft.Summarize(drafts)
	fmt.Fprintf(out, "  Products:   %d\n", sum.Products)
	fmt.Fprintf(out, "  Fields:     %d\n", sum.Fields)
	fmt.Fprintf(out, "  Errors:     %d\n", sum.ErrorFields)
	if len(sum.FailedSKUs) > 0 {
		fmt.Fprintf(out, "  Failed:     %s\n", strings.Join(sum.FailedSKUs, ", "))
	}
	fmt.Fprintln(out)
	for _, lang := range sum.LanguageCodes() {
		percent := 0
		if sum.Products > 0 {
			percent = sum.Languages[lang] * 100 / sum.Products
		}
		fmt.Fprintf(out, "  %-28s %s\n", langmeta.Resolve(lang).Label(), progressBar(percent, 20))
	}
	return nil
}

// progressBar renders a colored bar for percent (clamped to 0..100).
func progressBar(percent, width int) string {
	percent = max(0, min(100, percent))
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset + fmt.Sprintf(" %3d%%", percent)
}

// ---------------------------------------------------------------------------
// import
// ---------------------------------------------------------------------------

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <products.json>",
		Short: "Load product documents into the store",
		Long: `Import a JSON array of product documents in the flat catalog layout
(title_it, categories_de, ...). Products are matched by SKU: existing ones are
replaced and keep their ID, new ones are inserted. Every product is validated
first and nothing is written if one of them is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0])
		},
	}
}

func runImport(ctx context.Context, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var products []*catalog.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	invalid := 0
	for i, p := range products {
		if p == nil {
			continue
		}
		if err := p.Validate(cat); err != nil {
			logError("product #%d (%s): %v", i+1, p.SKU, err)
			invalid++
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d invalid products in %s", invalid, path)
	}

	provider, err := newLogProvider(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer st.Close()

	inserted, updated, err := st.Upsert(ctx, products...)
	if err != nil {
		return err
	}
	logSuccess(i18n.N("Imported %d product (%d new, %d updated)", "Imported %d products (%d new, %d updated)", inserted+updated),
		inserted+updated, inserted, updated)
	return nil
}

// ---------------------------------------------------------------------------
// resolve
// ---------------------------------------------------------------------------

func newResolveCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "resolve <sku>",
		Short: "Print the localized view of a product",
		Long: `Print the single-language view of a product as JSON. Missing or empty
values fall back to the default language; an unsupported language is replaced
by the default one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), cmd.OutOrStdout(), args[0], lang)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Language of the view (default: configured default language)")
	return cmd
}

func runResolve(ctx context.Context, out io.Writer, sku, lang string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	provider, err := newLogProvider(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := st.Get(ctx, sku)
	if err != nil {
		return err
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != "" && !cat.Supports(lang) {
		logWarning("Language %q is not supported, using %q", lang, cat.Default())
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(cat.Resolve(p, lang))
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate products and write the draft artifact",
		Long: `Load products from the store, translate their source-language content
into every target language through the translation engine, and write the
drafts to the output artifact for review.

Each (product, language) pair sends one batch for the text fields and one per
list field. A failed batch never stops the run: text fields get an error
placeholder and list fields keep the untranslated values.

Examples:
  # Translate the first 10 products into every configured language
  catalogtx translate

  # Only German and French, 4 workers
  catalogtx translate --targets de,fr --workers 4

  # Only products changed since the last clean run
  catalogtx translate --only-changed

  # Show what would be translated
  catalogtx translate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			a.onlyChangedSet = cmd.Flags().Changed("only-changed")
			return runTranslate(ctx, cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().IntVar(&a.limit, "limit", 0, "Maximum number of products to load (default from config)")
	cmd.Flags().StringSliceVar(&a.skus, "sku", nil, "Translate only these SKUs")
	cmd.Flags().BoolVar(&a.activeOnly, "active-only", false, "Skip inactive products")
	cmd.Flags().StringVar(&a.source, "source", "", "Source language (default from config)")
	cmd.Flags().StringVar(&a.targets, "targets", "", "Target languages (comma-separated, default: all except source)")
	cmd.Flags().StringVar(&a.output, "output", "", "Draft artifact path (default from config)")
	cmd.Flags().IntVar(&a.workers, "workers", 0, "Concurrent (product, language) items (default from config)")
	cmd.Flags().BoolVar(&a.onlyChanged, "only-changed", false, "Skip products whose source is unchanged since the last clean run")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would be translated without calling the engine")
	cmd.Flags().BoolVar(&a.stubEngine, "stub-engine", false, "Use the built-in uppercasing engine")
	_ = cmd.Flags().MarkHidden("stub-engine")

	_ = cmd.RegisterFlagCompletionFunc("targets", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return catalog.DefaultCatalog.Languages(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type translateArgs struct {
	limit                       int
	skus                        []string
	activeOnly                  bool
	source, targets, output     string
	workers                     int
	onlyChanged, onlyChangedSet bool
	dryRun, stubEngine          bool
}

func (a translateArgs) apply(cfg *config.Config) {
	if a.limit > 0 {
		cfg.Limit = a.limit
	}
	if a.source != "" {
		cfg.SourceLang = strings.ToLower(strings.TrimSpace(a.source))
	}
	if a.output != "" {
		cfg.Output = a.output
	}
	if a.workers > 0 {
		cfg.Workers = a.workers
	}
	if a.onlyChangedSet {
		cfg.OnlyChanged = a.onlyChanged
	}
}

func (a translateArgs) targetList(cfg *config.Config) []string {
	if a.targets == "" {
		return cfg.Targets()
	}
	var out []string
	for _, t := range strings.Split(a.targets, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func runTranslate(ctx context.Context, out io.Writer, a translateArgs) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a.apply(cfg)
	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}

	targets := a.targetList(cfg)
	for _, t := range targets {
		if !cat.Supports(t) {
			logWarning("Target %q is not a configured catalog language", t)
		}
	}

	provider, err := newLogProvider(cfg)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger := logging.WithFields(logging.ModuleLogger(provider, logging.ModuleTranslate), map[string]any{"run_id": runID})

	st, err := openStore(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer st.Close()

	products, err := st.Find(ctx, store.Query{Limit: cfg.Limit, SKUs: a.skus, ActiveOnly: a.activeOnly})
	if err != nil {
		return err
	}
	if len(products) == 0 {
		logWarning("No products to translate")
		return nil
	}
	logInfo("Loaded %d products (source: %s, targets: %s)", len(products), cfg.SourceLang, strings.Join(targets, ", "))

	if a.dryRun {
		printPlan(out, products, cfg.SourceLang, targets)
		return nil
	}

	lf, err := lockfile.Load(rootDir)
	if err != nil {
		return err
	}

	engineLogger := logging.WithFields(logging.ModuleLogger(provider, logging.ModuleEngine), map[string]any{"run_id": runID})
	var backend engine.Backend
	if a.stubEngine {
		backend = engine.FuncBackend(engine.Uppercase)
	} else {
		dir := cfg.Engine.Dir
		if dir != "" && !filepath.IsAbs(dir) {
			dir = filepath.Join(rootDir, dir)
		}
		backend = &engine.ProcessBackend{
			Command: cfg.Engine.Command,
			Args:    cfg.Engine.Args,
			Dir:     dir,
			Env:     cfg.EngineEnv(),
			Logger:  engineLogger,
		}
	}

	res, err := translate.Run(ctx, products, translate.Options{
		Translator:    engine.NewClient(backend, engine.WithLogger(engineLogger)),
		SourceLang:    cfg.SourceLang,
		Targets:       targets,
		Catalog:       cat,
		URLPrefix:     cfg.URLPrefix,
		Workers:       cfg.Workers,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		BatchTimeout:  cfg.Engine.Timeout,
		Lock:          lf,
		OnlyChanged:   cfg.OnlyChanged,
		Logger:        logger,
		OnLog:         logInfo,
		OnError:       logError,
	})
	if err != nil {
		return err
	}

	for _, f := range res.Failures {
		logWarning("%s", f.Error())
	}

	outPath := cfg.OutputPath(rootDir)
	drafts := res.Drafts
	if cfg.OnlyChanged {
		existing, err := draft.Load(outPath)
		switch {
		case err == nil:
			drafts = draft.Overlay(existing, drafts)
		case !errors.Is(err, os.ErrNotExist):
			logWarning("Existing drafts not merged: %v", err)
		}
	}
	draftLogger := logging.WithFields(logging.ModuleLogger(provider, logging.ModuleDraft), map[string]any{"run_id": runID})
	if err := draft.Write(outPath, drafts); err != nil {
		draftLogger.Error("draft artifact not written", "path", outPath, "error", err)
		return err
	}
	draftLogger.Info("draft artifact written", "path", outPath, "drafts", len(drafts))
	if err := lf.Save(); err != nil {
		logWarning("Lock file not saved: %v", err)
	}

	logSuccess("Translated %d items (%d skipped, %d failed batches), drafts written to %s",
		res.Items, res.Skipped, len(res.Failures), outPath)
	if failed := res.FailedProducts(); len(failed) > 0 {
		logWarning("Products with errors: %s", strings.Join(failed, ", "))
	}
	return nil
}

func printPlan(out io.Writer, products []*catalog.Product, source string, targets []string) {
	fmt.Fprintf(out, "\n%s%s%s\n", colorBlue, i18n.T("Dry run"), colorReset)
	fmt.Fprintln(out, strings.Repeat("─", 60))
	for _, p := range products {
		title, _ := p.Text(catalog.FieldTitle, source)
		fmt.Fprintf(out, "  %-16s %s\n", p.SKU, title)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s\n", i18n.F("%d products x %d languages", len(products), len(targets)))
}
