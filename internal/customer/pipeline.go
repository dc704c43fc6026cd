package customer

import (
	"context"
	"io"
	"sync"

	"github.com/dukerupert/binbill/internal/domain"
)

// State is a step of the parse, preview and submit flow.
type State string

const (
	StateIdle             State = "idle"
	StateParsing          State = "parsing"
	StateParseFailed      State = "parse_failed"
	StateValidationFailed State = "validation_failed"
	StatePreviewReady     State = "preview_ready"
	StateSubmitting       State = "submitting"
	StateSubmitSucceeded  State = "submit_succeeded"
	StateSubmitFailed     State = "submit_failed"
)

// Terminal reports whether the state ends a run of the pipeline.
func (s State) Terminal() bool {
	switch s {
	case StateParseFailed, StateValidationFailed, StateSubmitSucceeded, StateSubmitFailed:
		return true
	}
	return false
}

// Submitter enrolls a batch of records into a collection in one request.
type Submitter interface {
	BulkEnroll(ctx context.Context, collectionID string, records []domain.CustomerRecord) (*domain.BatchResult, error)
}

// Snapshot is a read-only view of a pipeline.
type Snapshot struct {
	State        State                   `json:"state"`
	SourceName   string                  `json:"sourceName,omitempty"`
	CollectionID string                  `json:"collectionId,omitempty"`
	TotalRows    int                     `json:"totalRows"`
	Records      []domain.CustomerRecord `json:"records,omitempty"`
	RowErrors    []domain.RowError       `json:"rowErrors,omitempty"`
	Result       *domain.BatchResult     `json:"result,omitempty"`
	Failure      string                  `json:"failure,omitempty"`
}

// Pipeline drives one upload from source file to submission result.
// Only one unit of work runs at a time; calls made while the pipeline is
// parsing or submitting fail with ErrBusy.
type Pipeline struct {
	ref       Reference
	submitter Submitter

	mu           sync.Mutex
	state        State
	sourceName   string
	collectionID string
	totalRows    int
	records      []domain.CustomerRecord
	rowErrors    []domain.RowError
	result       *domain.BatchResult
	failure      string
	cancel       context.CancelFunc
	cancelled    bool
}

// NewPipeline returns an idle pipeline.
func NewPipeline(ref Reference, submitter Submitter) *Pipeline {
	return &Pipeline{
		ref:       ref,
		submitter: submitter,
		state:     StateIdle,
	}
}

// Restore rebuilds a pipeline from a snapshot taken elsewhere. A snapshot
// caught mid-parse or mid-submit cannot be resumed and restores as failed.
func Restore(ref Reference, submitter Submitter, snap Snapshot) *Pipeline {
	p := NewPipeline(ref, submitter)
	p.state = snap.State
	p.sourceName = snap.SourceName
	p.collectionID = snap.CollectionID
	p.totalRows = snap.TotalRows
	p.records = snap.Records
	p.rowErrors = snap.RowErrors
	p.result = snap.Result
	p.failure = snap.Failure

	switch snap.State {
	case StateParsing:
		p.state = StateParseFailed
		p.failure = "upload was interrupted while parsing"
	case StateSubmitting:
		p.state = StateSubmitFailed
		p.failure = "upload was interrupted while submitting; check the collection before retrying"
	case "":
		p.state = StateIdle
	}
	return p
}

// Load parses and validates a source file. It is only accepted while idle.
//
// A parse failure is returned as a *ParseError and leaves the pipeline in
// StateParseFailed. Row validation failures are not an error: the pipeline
// moves to StateValidationFailed and the snapshot carries every RowError.
func (p *Pipeline) Load(ctx context.Context, name string, r io.Reader) (Snapshot, error) {
	p.mu.Lock()
	if p.state != StateIdle {
		snap := p.snapshot()
		p.mu.Unlock()
		return snap, ErrBusy
	}
	p.state = StateParsing
	p.sourceName = name
	p.mu.Unlock()

	rows, err := ParseSource(name, r)

	p.mu.Lock()
	defer p.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		p.clear()
		return p.snapshot(), ctxErr
	}

	if err != nil {
		p.state = StateParseFailed
		p.failure = err.Error()
		return p.snapshot(), err
	}

	p.totalRows = len(rows)
	records, rowErrs := ValidateBatch(p.ref, rows)
	if len(rowErrs) > 0 {
		p.state = StateValidationFailed
		p.rowErrors = rowErrs
		return p.snapshot(), nil
	}

	p.state = StatePreviewReady
	p.records = records
	return p.snapshot(), nil
}

// Confirm submits the previewed records to collectionID in a single call.
//
// Rows the platform rejects are reported in the result and still count as a
// successful submission. Transport failures move the pipeline to
// StateSubmitFailed and are never retried.
func (p *Pipeline) Confirm(ctx context.Context, collectionID string) (Snapshot, error) {
	p.mu.Lock()
	if p.state != StatePreviewReady {
		snap := p.snapshot()
		p.mu.Unlock()
		if snap.State == StateSubmitting {
			return snap, ErrBusy
		}
		return snap, ErrNotReady
	}
	if collectionID == "" {
		snap := p.snapshot()
		p.mu.Unlock()
		return snap, domain.NewValidationError("pipeline.confirm", "collectionId", "collection is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	p.state = StateSubmitting
	p.collectionID = collectionID
	p.cancel = cancel
	p.cancelled = false
	records := p.records
	p.mu.Unlock()

	result, err := p.submitter.BulkEnroll(ctx, collectionID, records)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel = nil

	if p.cancelled {
		p.state = StateSubmitFailed
		p.failure = ErrCancelled.Message
		return p.snapshot(), ErrCancelled
	}

	if err != nil {
		p.state = StateSubmitFailed
		p.failure = domain.ErrorMessage(err)
		return p.snapshot(), err
	}

	p.state = StateSubmitSucceeded
	p.result = result
	return p.snapshot(), nil
}

// Cancel abandons the pipeline. An in-flight submission has its context
// cancelled and whatever it returns is discarded; any other state except
// parsing goes straight back to idle.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateSubmitting:
		p.cancelled = true
		if p.cancel != nil {
			p.cancel()
		}
	case StateParsing:
	default:
		p.clear()
	}
}

// Reset returns a finished or waiting pipeline to idle, dropping its rows,
// preview, errors and result.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateParsing || p.state == StateSubmitting {
		return ErrBusy
	}
	p.clear()
	return nil
}

// Snapshot returns the current view of the pipeline.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Pipeline) snapshot() Snapshot {
	s := Snapshot{
		State:        p.state,
		SourceName:   p.sourceName,
		CollectionID: p.collectionID,
		TotalRows:    p.totalRows,
		Failure:      p.failure,
	}
	if p.records != nil {
		s.Records = append([]domain.CustomerRecord(nil), p.records...)
	}
	if p.rowErrors != nil {
		s.RowErrors = append([]domain.RowError(nil), p.rowErrors...)
	}
	if p.result != nil {
		r := *p.result
		s.Result = &r
	}
	return s
}

func (p *Pipeline) clear() {
	p.state = StateIdle
	p.sourceName = ""
	p.collectionID = ""
	p.totalRows = 0
	p.records = nil
	p.rowErrors = nil
	p.result = nil
	p.failure = ""
	p.cancel = nil
	p.cancelled = false
}
