// ABOUTME: ExperimentOrchestrator runs the manual pipeline and the official agent side by side for one symbol.
// ABOUTME: Each path writes only to its own panel, fails locally, and is fenced off from later runs by a run id.
package console

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/agentdeck/backend"
	"github.com/2389-research/agentdeck/format"
)

// ResearchBackend runs the two deep-research paths.
type ResearchBackend interface {
	Manual(ctx context.Context, symbol string) (*backend.ManualReport, error)
	Official(ctx context.Context, symbol string) (*backend.OfficialResponse, error)
}

// minContentRunes is the shortest official answer accepted without a warning.
const minContentRunes = 5

// Run is one experiment: both paths launched for the same symbol.
type Run struct {
	ID     string
	Symbol string
	done   chan struct{}
}

// Done is closed when both paths have finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until both paths have finished.
func (r *Run) Wait() { <-r.done }

// Orchestrator owns the validation notice and both panels.
type Orchestrator struct {
	ctx       context.Context
	backend   ResearchBackend
	formatter *format.Formatter
	labels    Labels

	notice   *Notice
	manual   *Panel
	official *Panel

	wg *sync.WaitGroup
}

// Start launches both paths for raw. An empty symbol shows the validation
// notice, leaves both panels untouched, and returns a *backend.ValidationError.
// Both panels are reset before either request is issued.
func (o *Orchestrator) Start(raw string) (*Run, error) {
	symbol := strings.TrimSpace(raw)
	if symbol == "" {
		o.notice.Show(o.labels.SymbolRequired)
		return nil, backend.NewValidationError("symbol is empty")
	}

	run := &Run{ID: ulid.Make().String(), Symbol: symbol, done: make(chan struct{})}
	o.manual.Reset(run.ID, o.labels.ManualLoadingHTML, o.labels.ManualRunning)
	o.official.Reset(run.ID, o.labels.OfficialLoadingHTML, o.labels.OfficialRunning)
	log.Printf("component=console.experiment action=start run=%s symbol=%q", run.ID, symbol)

	// Paths report failures in their own panels, so neither returns an error
	// and one path never cancels the other.
	var paths errgroup.Group
	paths.Go(func() error {
		o.runManual(run)
		return nil
	})
	paths.Go(func() error {
		o.runOfficial(run)
		return nil
	})
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = paths.Wait()
		close(run.done)
		log.Printf("component=console.experiment action=finished run=%s", run.ID)
	}()
	return run, nil
}

func (o *Orchestrator) runManual(run *Run) {
	p, l := o.manual, o.labels
	p.AppendLog(run.ID, l.ManualStartLog)
	p.AppendLog(run.ID, l.ManualResearchLog)

	report, err := o.backend.Manual(o.ctx, run.Symbol)
	if err != nil {
		log.Printf("component=console.experiment action=path_failed path=manual run=%s err=%v", run.ID, err)
		p.Fail(run.ID, l.ManualFailed, errorHTML(l.ManualErrorPrefix, l.describe(err)))
		return
	}

	p.AppendLog(run.ID, l.ManualRiskLog)
	p.AppendLog(run.ID, l.ManualEndLog)
	html := fmt.Sprintf(
		"<div class='bg-gray-900 p-4 rounded mb-4 text-xs font-mono text-blue-300 overflow-x-auto'>%s</div>"+
			"<div class='prose prose-invert max-w-none'>%s</div>",
		o.formatter.Sanitize(string(report.DataRaw)),
		format.LineBreaks(o.formatter.Sanitize(string(report.FinalResponse))),
	)
	p.Complete(run.ID, l.Completed, html)
}

func (o *Orchestrator) runOfficial(run *Run) {
	p, l := o.official, o.labels
	p.AppendLog(run.ID, l.OfficialPlanLog)

	resp, err := o.backend.Official(o.ctx, run.Symbol)
	if err != nil {
		log.Printf("component=console.experiment action=path_failed path=official run=%s err=%v", run.ID, err)
		p.Fail(run.ID, l.OfficialFailed, errorHTML(l.OfficialErrorPrefix, l.describe(err)))
		return
	}

	content, warned := officialContent(resp, l)
	p.AppendLog(run.ID, l.OfficialDoneLog)

	status := l.Completed
	if warned || strings.Contains(content, WarningGlyph) || strings.Contains(content, ErrorGlyph) {
		status = l.Abnormal
	}
	p.Complete(run.ID, status, format.Emphasize(format.LineBreaks(o.formatter.Sanitize(content))))
}

// officialContent picks the text to show for an official reply and reports
// whether it is a substituted warning or error rather than agent analysis.
func officialContent(resp *backend.OfficialResponse, l Labels) (string, bool) {
	if resp == nil {
		return l.NoAnalysis, true
	}
	if text := resp.FirstText(); text != "" {
		if utf8.RuneCountInString(strings.TrimSpace(text)) < minContentRunes {
			return l.ShortContent, true
		}
		return text, false
	}
	if resp.Error != "" {
		return fmt.Sprintf(l.AgentError, resp.Error), true
	}
	return l.NoAnalysis, true
}

func errorHTML(prefix, msg string) string {
	return `<span class="text-red-400">` + template.HTMLEscapeString(prefix+msg) + `</span>`
}
