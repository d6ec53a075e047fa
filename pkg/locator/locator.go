// Package locator finds the embedded profile "user" object inside an
// Instagram profile page.
//
// Instagram has shipped page state in at least three shapes over the years:
// a Next.js __NEXT_DATA__ blob, the legacy window._sharedData assignment,
// and JSON-LD. Locate tries each in that order and stops at the first one
// that yields an object with the shape of a user record.
package locator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/instaprobe/pkg/htmlutil"
	"github.com/codeGROOVE-dev/instaprobe/pkg/jsontree"
	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// Strategy names one way of finding page state in a document.
type Strategy string

// Strategies in the order they are tried.
const (
	StrategyNextData   Strategy = "next_data"
	StrategySharedData Strategy = "shared_data"
	StrategyLDJSON     Strategy = "ld_json"
)

const (
	nextDataID       = "__NEXT_DATA__"
	sharedDataMarker = "window._sharedData"
	ldJSONType       = "application/ld+json"
)

// userSignature matches objects that look like a profile user record.
var userSignature = jsontree.HasKeys(
	[]string{"username"},
	[]string{"profile_pic_url", "profile_pic_url_hd", "edge_owner_to_timeline_media"},
)

// FindUser searches a tree depth-first for the first user record.
func FindUser(root *jsontree.Node) *jsontree.Node {
	return jsontree.Find(root, userSignature)
}

// Result is a located user record and the strategy that found it.
type Result struct {
	User     *jsontree.Node
	Strategy Strategy
}

type strategy struct {
	run  func(*htmlutil.Document, *slog.Logger) *jsontree.Node
	name Strategy
}

// Locator runs the strategy cascade. It is not safe for concurrent use.
type Locator struct {
	logger     *slog.Logger
	strategies []strategy
	// attempted records which strategies ran during the last Locate call.
	attempted []Strategy
}

// Option configures a Locator.
type Option func(*Locator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) { l.logger = logger }
}

// New creates a Locator with the default cascade.
func New(opts ...Option) *Locator {
	l := &Locator{
		logger: slog.Default(),
		strategies: []strategy{
			{name: StrategyNextData, run: fromNextData},
			{name: StrategySharedData, run: fromSharedData},
			{name: StrategyLDJSON, run: fromLDJSON},
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns the first user record found by the cascade, or
// profile.ErrExtractionFailed.
func (l *Locator) Locate(doc []byte) (*Result, error) {
	l.attempted = l.attempted[:0]

	page, err := htmlutil.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrExtractionFailed, err)
	}

	for _, s := range l.strategies {
		l.attempted = append(l.attempted, s.name)
		if user := s.run(page, l.logger); user != nil {
			l.logger.Debug("located user record", "strategy", s.name)
			return &Result{User: user, Strategy: s.name}, nil
		}
		l.logger.Debug("strategy found no user record", "strategy", s.name)
	}
	return nil, profile.ErrExtractionFailed
}

// Attempted returns the strategies the last Locate call ran, in order.
func (l *Locator) Attempted() []Strategy {
	return append([]Strategy(nil), l.attempted...)
}

// Locate runs the default cascade with the default logger.
func Locate(doc []byte) (*Result, error) {
	return New().Locate(doc)
}

func fromNextData(page *htmlutil.Document, logger *slog.Logger) *jsontree.Node {
	script, ok := page.ScriptByID(nextDataID)
	if !ok || strings.TrimSpace(script.Text) == "" {
		return nil
	}
	root, err := jsontree.ParseString(script.Text)
	if err != nil {
		logger.Debug("failed to parse __NEXT_DATA__", "error", err)
		return nil
	}
	return FindUser(root)
}

func fromSharedData(page *htmlutil.Document, logger *slog.Logger) *jsontree.Node {
	for _, script := range page.ScriptsContaining(sharedDataMarker) {
		literal := assignedLiteral(script.Text)
		if literal == "" {
			continue
		}
		root, err := jsontree.ParseString(literal)
		if err != nil {
			logger.Debug("failed to parse window._sharedData", "error", err)
			continue
		}
		if user := root.At("entry_data", "ProfilePage", 0, "graphql", "user"); user.IsObject() {
			return user
		}
		if user := FindUser(root); user != nil {
			return user
		}
	}
	return nil
}

func fromLDJSON(page *htmlutil.Document, logger *slog.Logger) *jsontree.Node {
	scripts := page.ScriptsByType(ldJSONType)
	if len(scripts) == 0 || strings.TrimSpace(scripts[0].Text) == "" {
		return nil
	}
	root, err := jsontree.ParseString(scripts[0].Text)
	if err != nil {
		logger.Debug("failed to parse ld+json", "error", err)
		return nil
	}
	return FindUser(root)
}

// assignedLiteral returns the text after the first '=' with surrounding
// whitespace and trailing semicolons removed.
func assignedLiteral(script string) string {
	_, rhs, found := strings.Cut(script, "=")
	if !found {
		return ""
	}
	return strings.Trim(rhs, " \t\r\n;")
}
