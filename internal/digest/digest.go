// Package digest ties plan analysis, history recording, and notification
// dispatch into a single pipeline shared by the CLI and the HTTP server.
package digest

import (
	"context"
	"log/slog"
	"time"

	"github.com/tfdigest/tfdigest/internal/history"
	"github.com/tfdigest/tfdigest/internal/notify"
	"github.com/tfdigest/tfdigest/internal/plan"
	"github.com/tfdigest/tfdigest/pkg/models"
)

// Analyze runs the full analysis over raw plan output: classification,
// summary extraction, and module grouping. The plan summary line only
// carries add/change/destroy counts, so Replace and Move are filled in
// from the classification.
func Analyze(source string, lines []string) *models.Digest {
	cls := plan.Classify(lines)
	sum, _ := plan.ParseSummary(lines)
	sum.Replace = len(cls.Replaced)
	sum.Move = len(cls.Moved)

	return &models.Digest{
		Source:     source,
		AnalyzedAt: time.Now().UTC(),
		Summary:    sum,
		Changes:    cls,
		Groups:     plan.GroupModules(cls),
	}
}

// Request describes one digest run.
type Request struct {
	// Source identifies where the plan text came from: a file path,
	// "stdin", or an API client identifier.
	Source string
	// Lines is the raw plan output, one entry per line.
	Lines []string
}

// Result carries the outcome of a digest run.
type Result struct {
	// RunID is the history row recorded for this run, or zero when
	// history is disabled or recording failed.
	RunID  int64
	Digest *models.Digest
}

// Digester analyzes plan text and fans the outcome out to storage and
// notification backends.
type Digester struct {
	store    *history.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// New creates a Digester. Store and notifier may each be nil, in which
// case the corresponding step is skipped.
func New(store *history.Store, notifier notify.Notifier, logger *slog.Logger) *Digester {
	return &Digester{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// RunSync analyzes the given plan text, records the run when history is
// enabled, and dispatches notifications. Storage and notification
// failures are logged at warn level so the digest itself still succeeds.
func (d *Digester) RunSync(ctx context.Context, req Request) *Result {
	dg := Analyze(req.Source, req.Lines)
	res := &Result{Digest: dg}

	if d.store != nil {
		id, err := d.store.RecordRun(ctx, history.RunFromDigest(dg))
		if err != nil {
			d.logger.Warn("failed to record run", "source", req.Source, "error", err)
		} else {
			res.RunID = id
		}
	}

	if d.notifier != nil {
		if err := d.notifier.Send(ctx, notify.EventFromDigest(dg)); err != nil {
			d.logger.Warn("failed to send notification",
				"notifier", d.notifier.Name(), "error", err)
		}
	}

	return res
}
