package xlquote

import "io"

// Options holds configuration for the Builder.
type Options struct {
	templatePath      string
	templateReader    io.Reader
	layout            *Layout
	pricing           *PricingConfig
	notationBegin     string
	notationEnd       string
	recalculateOnOpen bool
	keepUnusedSheets  bool
}

func defaultOptions() *Options {
	return &Options{
		layout:        DefaultLayout(),
		pricing:       DefaultPricing(),
		notationBegin: "${",
		notationEnd:   "}",
	}
}

// Option configures the Builder.
type Option func(*Options)

// WithTemplate sets the template file path.
func WithTemplate(path string) Option {
	return func(o *Options) { o.templatePath = path }
}

// WithTemplateReader sets the template as an io.Reader.
func WithTemplateReader(r io.Reader) Option {
	return func(o *Options) { o.templateReader = r }
}

// WithLayout overrides the default sheet layout.
func WithLayout(l *Layout) Option {
	return func(o *Options) {
		if l != nil {
			o.layout = l
		}
	}
}

// WithPricing overrides the default rate card.
func WithPricing(p *PricingConfig) Option {
	return func(o *Options) {
		if p != nil {
			o.pricing = p
		}
	}
}

// WithExpressionNotation sets the placeholder delimiters (default: "${", "}").
func WithExpressionNotation(begin, end string) Option {
	return func(o *Options) {
		o.notationBegin = begin
		o.notationEnd = end
	}
}

// WithRecalculateOnOpen tells Excel to recalculate all formulas when the file is opened.
func WithRecalculateOnOpen(recalc bool) Option {
	return func(o *Options) { o.recalculateOnOpen = recalc }
}

// WithKeepUnusedSheets keeps template sheets the request does not use
// instead of deleting them.
func WithKeepUnusedSheets(keep bool) Option {
	return func(o *Options) { o.keepUnusedSheets = keep }
}
