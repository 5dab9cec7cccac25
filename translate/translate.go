// Package translate runs batch draft translation of catalog products: for
// every product and target language it sends the source-language text fields
// to the translation engine as one batch, each list field as its own batch,
// and derives slug and url from the translated title. Failed batches are
// downgraded to visible placeholders so one bad product or language never
// stops the run.
package translate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/minios-linux/catalogtx/catalog"
	"github.com/minios-linux/catalogtx/draft"
	"github.com/minios-linux/catalogtx/engine"
	"github.com/minios-linux/catalogtx/lockfile"
	"github.com/minios-linux/catalogtx/logging"
)

// DefaultSourceLang is the language products are authored in.
const DefaultSourceLang = "it"

// DefaultURLPrefix is prepended to derived slugs.
const DefaultURLPrefix = "/products/"

// BatchScalar names the text-field batch in failures. List-field batches are
// named after their field.
const BatchScalar = "scalar"

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls a translation run.
type Options struct {
	// Translator performs the batch calls.
	Translator engine.Translator
	// SourceLang is the language read from products (default "it").
	SourceLang string
	// Targets are the languages to translate into. The source language is
	// always skipped. Empty means every catalog language except the source.
	Targets []string
	// Catalog supplies the default targets (zero value = DefaultCatalog).
	Catalog catalog.Catalog
	// URLPrefix is prepended to derived slugs (default "/products/").
	URLPrefix string
	// Workers is the number of (product, language) items processed at once.
	// Default 1: products and languages strictly in order.
	Workers int
	// RatePerSecond paces item starts when > 0.
	RatePerSecond float64
	// RateBurst is the limiter burst (default 1).
	RateBurst int
	// BatchTimeout bounds every engine call when > 0. A timeout is an
	// ordinary batch failure.
	BatchTimeout time.Duration
	// Lock records source checksums of cleanly translated items.
	Lock *lockfile.LockFile
	// OnlyChanged skips items whose source is unchanged according to Lock.
	OnlyChanged bool
	// Logger receives structured events.
	Logger logging.Logger
	// OnProgress is called after each item completes.
	OnProgress func(done, total int)
	// OnLog emits human-readable progress lines.
	OnLog func(format string, args ...any)
	// OnError emits human-readable error lines.
	OnError func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveSourceLang() string {
	if s := strings.ToLower(strings.TrimSpace(o.SourceLang)); s != "" {
		return s
	}
	return DefaultSourceLang
}

func (o *Options) effectiveURLPrefix() string {
	if o.URLPrefix != "" {
		return o.URLPrefix
	}
	return DefaultURLPrefix
}

func (o *Options) effectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return 1
}

func (o *Options) effectiveLogger() logging.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.NoOp()
}

// effectiveTargets returns the target languages in order, without the source
// language and without duplicates.
func (o *Options) effectiveTargets(source string) []string {
	targets := o.Targets
	if len(targets) == 0 {
		cat := o.Catalog
		if len(cat.Languages()) == 0 {
			cat = catalog.DefaultCatalog
		}
		targets = cat.Targets(source)
	}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || t == source || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (o *Options) limiter() *rate.Limiter {
	if o.RatePerSecond <= 0 {
		return nil
	}
	burst := o.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(o.RatePerSecond), burst)
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Failure records one failed batch. The draft still carries a placeholder
// (scalar) or the untranslated source list (list field) for it.
type Failure struct {
	ProductID string
	SKU       string
	Lang      string
	Batch     string
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s [%s] %s: %v", f.SKU, f.Lang, f.Batch, f.Err)
}

// Result is the outcome of a run.
type Result struct {
	// Drafts are in input product order.
	Drafts []draft.Draft
	// Failures are in input product order, then target order.
	Failures []Failure
	// Items is the number of (product, language) pairs translated.
	Items int
	// Skipped is the number of pairs skipped as unchanged.
	Skipped int
}

// FailedProducts returns the SKUs with at least one failure, in order.
func (r *Result) FailedProducts() []string {
	var skus []string
	for _, f := range r.Failures {
		if !slices.Contains(skus, f.SKU) {
			skus = append(skus, f.SKU)
		}
	}
	return skus
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// workItem is one (product, target language) pair.
type workItem struct {
	index   int // position in the product list
	seq     int // position in the item list
	product *catalog.Product
	target  string
	content string // source checksum content
}

// Run translates products into every target language. Batch failures never
// abort the run; only cancellation of ctx does, in which case the drafts
// completed so far are returned together with the context error.
func Run(ctx context.Context, products []*catalog.Product, opts Options) (*Result, error) {
	if opts.Translator == nil {
		return nil, errors.New("translate: no translator configured")
	}

	source := opts.effectiveSourceLang()
	targets := opts.effectiveTargets(source)
	logger := opts.effectiveLogger()

	if opts.Lock != nil {
		opts.Lock.BindSource(source)
	}

	collection := draft.NewCollection()
	productMu := make(map[int]*sync.Mutex)
	var items []workItem
	skipped := 0

	for i, p := range products {
		if p == nil {
			continue
		}
		content := sourceContent(p, source)
		added := false
		for _, target := range targets {
			if opts.OnlyChanged && opts.Lock != nil && !opts.Lock.IsChanged(target, p.SKU, content) {
				skipped++
				continue
			}
			if !added {
				collection.Add(draftKey(p), p.SKU)
				productMu[i] = &sync.Mutex{}
				added = true
			}
			items = append(items, workItem{index: i, seq: len(items), product: p, target: target, content: content})
		}
	}

	result := &Result{Items: len(items), Skipped: skipped}

	logger.Info("translation run started",
		"products", len(products), "items", len(items), "skipped", skipped,
		"source", source, "targets", strings.Join(targets, ","), "workers", opts.effectiveWorkers())
	opts.log("Translating %d product(s) from %s into %s (%d item(s), %d skipped)",
		len(products), source, strings.Join(targets, ", "), len(items), skipped)

	if len(items) == 0 {
		result.Drafts = collection.Drafts()
		return result, nil
	}

	itemFailures := make([][]Failure, len(items))
	limiter := opts.limiter()
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.effectiveWorkers())

	for _, it := range items {
		if limiter != nil {
			if err := limiter.Wait(gctx); err != nil {
				break
			}
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			mu := productMu[it.index]
			mu.Lock()
			defer mu.Unlock()
			if err := gctx.Err(); err != nil {
				return err
			}

			itemLog := logger.WithFields(map[string]any{"sku": it.product.SKU, "lang": it.target})
			fields, failures := translateItem(gctx, it, source, opts)
			if err := gctx.Err(); err != nil {
				return err
			}

			if err := collection.Set(draftKey(it.product), it.target, fields); err != nil {
				return err
			}
			itemFailures[it.seq] = failures

			for _, f := range failures {
				itemLog.Warn("batch failed", "batch", f.Batch, "error", f.Err)
				opts.logError("Error translating %s", f.Error())
			}
			if opts.Lock != nil {
				if len(failures) == 0 {
					opts.Lock.Update(it.target, it.product.SKU, it.content)
				} else {
					opts.Lock.Forget(it.target, it.product.SKU)
				}
			}

			n := atomic.AddInt64(&done, 1)
			itemLog.Debug("item translated", "done", n, "total", len(items))
			if opts.OnProgress != nil {
				opts.OnProgress(int(n), len(items))
			}
			return nil
		})
	}

	err := g.Wait()

	result.Drafts = collection.Drafts()
	for _, fs := range itemFailures {
		result.Failures = append(result.Failures, fs...)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn("translation run cancelled", "done", atomic.LoadInt64(&done), "total", len(items))
		return result, ctxErr
	}
	if err != nil {
		return result, err
	}

	logger.Info("translation run finished",
		"drafts", collection.Len(), "failures", len(result.Failures))
	return result, nil
}

// draftKey identifies a product in the draft collection.
func draftKey(p *catalog.Product) string {
	if p.ID != "" {
		return p.ID
	}
	return p.SKU
}

// ---------------------------------------------------------------------------
// Per-item translation
// ---------------------------------------------------------------------------

// translateItem builds the draft fields of one product in one target language.
func translateItem(ctx context.Context, it workItem, source string, opts Options) (draft.Fields, []Failure) {
	p, target := it.product, it.target
	fields := draft.NewFields()
	var failures []Failure

	fail := func(batch string, err error) {
		failures = append(failures, Failure{
			ProductID: p.ID,
			SKU:       p.SKU,
			Lang:      target,
			Batch:     batch,
			Err:       err,
		})
	}

	// Text fields: one call, fixed order, empty where the source is absent.
	texts := make([]string, len(catalog.ScalarFields))
	keys := make([]string, len(catalog.ScalarFields))
	for i, field := range catalog.ScalarFields {
		texts[i], _ = p.Text(field, source)
		keys[i] = catalog.Key(field, target)
	}
	scalarOK := true
	translated, err := callEngine(ctx, opts, texts, source, target)
	if err != nil {
		scalarOK = false
		fail(BatchScalar, err)
		for _, key := range keys {
			fields.SetText(key, draft.ErrorMarker(key))
		}
	} else {
		for i, key := range keys {
			fields.SetText(key, translated[i])
		}
	}

	// List fields: one call each; an empty source list needs none.
	for _, field := range catalog.ArrayFields {
		key := catalog.Key(field, target)
		src, _ := p.List(field, source)
		if len(src) == 0 {
			fields.SetList(key, []string{})
			continue
		}
		out, err := callEngine(ctx, opts, src, source, target)
		if err != nil {
			fail(field, err)
			fields.SetList(key, slices.Clone(src))
			continue
		}
		fields.SetList(key, out)
	}

	if scalarOK {
		if title := fields.Text[catalog.Key(catalog.FieldTitle, target)]; title != "" {
			slug := DeriveSlug(title)
			fields.SetText(catalog.Key(catalog.FieldSlug, target), slug)
			fields.SetText(catalog.Key(catalog.FieldURL, target), opts.effectiveURLPrefix()+slug)
		}
	}

	return fields, failures
}

// callEngine performs one batch call under the per-batch timeout.
func callEngine(ctx context.Context, opts Options, texts []string, source, target string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.BatchTimeout)
		defer cancel()
	}
	out, err := opts.Translator.TranslateBatch(ctx, texts, source, target)
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("translator returned %d texts for %d inputs", len(out), len(texts))
	}
	return out, nil
}

// sourceContent is what the lock file hashes for a product: every source
// field that feeds a batch.
func sourceContent(p *catalog.Product, source string) string {
	var b strings.Builder
	for _, field := range catalog.ScalarFields {
		v, _ := p.Text(field, source)
		b.WriteString(lockfile.FieldContent(field, v))
		b.WriteByte('\n')
	}
	for _, field := range catalog.ArrayFields {
		v, _ := p.List(field, source)
		b.WriteString(lockfile.ListContent(field, v))
		b.WriteByte('\n')
	}
	return b.String()
}
