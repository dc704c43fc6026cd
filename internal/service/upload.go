package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dukerupert/binbill/internal/customer"
	"github.com/dukerupert/binbill/internal/domain"
	"github.com/dukerupert/binbill/internal/events"
	"github.com/dukerupert/binbill/internal/session"
	"github.com/dukerupert/binbill/internal/storage"
	"github.com/dukerupert/binbill/internal/telemetry"
)

const defaultHistoryLimit = 50

// stateCancelled is the history state of a preview the operator abandoned.
// It is never a pipeline state.
const stateCancelled = "cancelled"

// UploadService runs bulk customer uploads on behalf of operators.
type UploadService interface {
	// Create parses and validates a file and opens an upload session for it.
	// A file that cannot be parsed returns the session together with an
	// EINVALID error; rows that fail validation are not an error.
	Create(ctx context.Context, actor, name string, r io.Reader) (*session.Session, error)

	// Get returns an upload session.
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)

	// Confirm submits a previewed upload to a collection. The submission keeps
	// running if ctx is cancelled; only Cancel stops it.
	Confirm(ctx context.Context, id uuid.UUID, collectionID string) (*session.Session, error)

	// Cancel abandons an upload and deletes its session.
	Cancel(ctx context.Context, id uuid.UUID) error

	// Report opens the Excel error report of an upload that failed validation.
	Report(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)

	// History lists recent uploads, newest first. Previews still awaiting
	// confirmation are included.
	History(ctx context.Context, limit int) ([]domain.Upload, error)

	// Collections lists the collections customers can be enrolled into.
	Collections(ctx context.Context) ([]domain.Collection, error)
}

// CollectionLister lists enrollment targets on the platform.
type CollectionLister interface {
	ListCollections(ctx context.Context) ([]domain.Collection, error)
}

// UploadServiceConfig wires an UploadService.
type UploadServiceConfig struct {
	Reference    customer.Reference
	Submitter    customer.Submitter
	Collections  CollectionLister
	Sessions     session.Store
	Storage      storage.Storage
	History      domain.UploadLog
	Events       events.Publisher
	Metrics      *telemetry.UploadMetrics
	Logger       zerolog.Logger
	HistoryLimit int

	// LiveTTL bounds how long an unconfirmed pipeline is kept in memory.
	LiveTTL time.Duration
}

type livePipeline struct {
	pipeline *customer.Pipeline
	touched  time.Time
}

type uploadService struct {
	cfg    UploadServiceConfig
	logger zerolog.Logger
	now    func() time.Time

	mu   sync.Mutex
	live map[uuid.UUID]*livePipeline
}

// NewUploadService creates an UploadService. History, Events and Metrics may be nil.
func NewUploadService(cfg UploadServiceConfig) UploadService {
	if cfg.History == nil {
		cfg.History = domain.NopUploadLog{}
	}
	if cfg.Events == nil {
		cfg.Events = events.NopPublisher{}
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.LiveTTL <= 0 {
		cfg.LiveTTL = 2 * time.Hour
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NewUploadMetrics("", prometheus.NewRegistry())
	}

	return &uploadService{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "upload").Logger(),
		now:    time.Now,
		live:   make(map[uuid.UUID]*livePipeline),
	}
}

func (s *uploadService) Create(ctx context.Context, actor, name string, r io.Reader) (*session.Session, error) {
	const op = "upload.create"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNoFileName
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.Invalid(op, "The uploaded file could not be read")
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	now := s.now()
	sess := &session.Session{
		ID:        uuid.New(),
		Actor:     actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	logger := s.logger.With().Str("upload_id", sess.ID.String()).Str("file", name).Logger()

	if err := s.cfg.Storage.Put(ctx, storage.SourceKey(sess.ID, name), bytes.NewReader(data), contentType(name)); err != nil {
		// The source copy is for audit only; the upload goes on without it.
		logger.Warn().Err(err).Msg("failed to store source file")
		telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{"upload_id": sess.ID.String()})
	}

	p := customer.NewPipeline(s.cfg.Reference, s.cfg.Submitter)

	s.cfg.Metrics.ActiveUploads.Inc()
	snap, loadErr := p.Load(ctx, name, bytes.NewReader(data))
	s.cfg.Metrics.ActiveUploads.Dec()
	sess.Snapshot = snap

	switch snap.State {
	case customer.StateParseFailed:
		logger.Info().Err(loadErr).Msg("upload could not be parsed")
		s.finish(ctx, sess)
		if err := s.cfg.Sessions.Save(ctx, sess); err != nil {
			return nil, domain.Internal(err, op, "failed to save upload session")
		}
		return sess, domain.WrapError(loadErr, domain.EINVALID, op, loadErr.Error())

	case customer.StateValidationFailed:
		s.cfg.Metrics.RecordValidation(snap.TotalRows-len(snap.RowErrors), len(snap.RowErrors))
		if key, err := s.writeReport(ctx, sess.ID, name, snap.RowErrors); err != nil {
			logger.Warn().Err(err).Msg("failed to store error report")
			telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{"upload_id": sess.ID.String()})
		} else {
			sess.ReportKey = key
		}
		logger.Info().
			Int("rows", snap.TotalRows).
			Int("row_errors", len(snap.RowErrors)).
			Msg("upload failed validation")
		s.finish(ctx, sess)

	case customer.StatePreviewReady:
		s.cfg.Metrics.RecordValidation(snap.TotalRows, 0)
		s.track(sess.ID, p)
		// Recorded now so the stored source is swept even if the preview
		// is never confirmed.
		s.record(ctx, sess, string(snap.State))
		logger.Info().Int("rows", snap.TotalRows).Msg("upload ready for preview")

	default:
		// Load only fails otherwise when ctx ended mid-parse.
		if loadErr != nil {
			return nil, loadErr
		}
	}

	if err := s.cfg.Sessions.Save(ctx, sess); err != nil {
		s.untrack(sess.ID)
		return nil, domain.Internal(err, op, "failed to save upload session")
	}
	return sess, nil
}

func (s *uploadService) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	sess, err := s.cfg.Sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, domain.Internal(err, "upload.get", "failed to load upload session")
	}
	return sess, nil
}

func (s *uploadService) Confirm(ctx context.Context, id uuid.UUID, collectionID string) (*session.Session, error) {
	const op = "upload.confirm"

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := s.pipeline(sess)
	logger := s.logger.With().
		Str("upload_id", id.String()).
		Str("collection_id", collectionID).
		Logger()

	// Only one instance may send a preview. The claim is taken before the
	// pipeline is touched and released only if nothing was sent.
	claimed := false
	if current := p.Snapshot(); current.State == customer.StatePreviewReady && collectionID != "" {
		ok, err := s.cfg.Sessions.Claim(ctx, id)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to claim upload")
		}
		if !ok {
			return nil, ErrAlreadySubmitting
		}
		claimed = true

		// Other instances see the upload as submitting while the call is out.
		pending := *sess
		pending.Snapshot = current
		pending.Snapshot.State = customer.StateSubmitting
		pending.Snapshot.CollectionID = collectionID
		pending.UpdatedAt = s.now()
		if err := s.cfg.Sessions.Save(ctx, &pending); err != nil {
			s.release(ctx, id, logger)
			return nil, domain.Internal(err, op, "failed to save upload session")
		}
	}

	// The submission outlives the request; Cancel is the only way to stop it.
	subCtx := context.WithoutCancel(ctx)

	s.cfg.Metrics.ActiveUploads.Inc()
	start := s.now()
	snap, submitErr := p.Confirm(subCtx, collectionID)
	s.cfg.Metrics.ActiveUploads.Dec()

	if errors.Is(submitErr, customer.ErrBusy) || errors.Is(submitErr, customer.ErrNotReady) || domain.IsValidationError(submitErr) {
		// Rejected before anything was sent.
		if claimed {
			s.release(ctx, id, logger)
		}
		if snap.State == customer.StatePreviewReady {
			sess.Snapshot = snap
			if err := s.cfg.Sessions.Save(ctx, sess); err != nil {
				logger.Warn().Err(err).Msg("failed to restore session after rejected confirm")
			}
		} else if snap.State != customer.StateSubmitting {
			s.untrack(id)
		}
		return nil, submitErr
	}

	s.cfg.Metrics.ObservePlatformCall("bulk_enroll", submitErr, s.now().Sub(start))
	s.untrack(id)
	sess.Snapshot = snap
	sess.UpdatedAt = s.now()
	s.finish(subCtx, sess)

	if errors.Is(submitErr, customer.ErrCancelled) {
		logger.Info().Msg("upload cancelled during submission")
		if err := s.cfg.Sessions.Delete(subCtx, id); err != nil {
			logger.Warn().Err(err).Msg("failed to delete cancelled session")
		}
		return nil, submitErr
	}

	if submitErr != nil {
		logger.Error().Err(submitErr).Msg("bulk enrollment failed")
		telemetry.CaptureErrorFromContext(ctx, submitErr, map[string]interface{}{
			"upload_id":     id.String(),
			"collection_id": collectionID,
			"rows":          len(snap.Records),
		})
	} else {
		s.cfg.Metrics.RecordEnrollment(snap.Result.SuccessCount, snap.Result.FailedCount)
		s.publish(subCtx, sess, logger)
	}

	if err := s.cfg.Sessions.Save(subCtx, sess); err != nil {
		logger.Warn().Err(err).Msg("failed to save finished session")
	}
	return sess, submitErr
}

func (s *uploadService) Cancel(ctx context.Context, id uuid.UUID) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	lp, ok := s.live[id]
	s.mu.Unlock()

	if ok {
		state := lp.pipeline.Snapshot().State
		lp.pipeline.Cancel()
		if state == customer.StateSubmitting {
			// Confirm records the outcome and drops the session.
			return nil
		}
		s.untrack(id)
	}

	if sess.Snapshot.State == customer.StatePreviewReady {
		s.cfg.Metrics.RecordFinished(stateCancelled)
		s.record(ctx, sess, stateCancelled)
	}
	if sess.ReportKey != "" {
		if err := s.cfg.Storage.Delete(ctx, sess.ReportKey); err != nil {
			s.logger.Warn().Err(err).Str("upload_id", id.String()).Msg("failed to delete error report")
		}
	}
	if err := s.cfg.Sessions.Delete(ctx, id); err != nil {
		return domain.Internal(err, "upload.cancel", "failed to delete upload session")
	}
	return nil
}

func (s *uploadService) Report(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.ReportKey == "" {
		return nil, ErrReportNotFound
	}
	return s.cfg.Storage.Get(ctx, sess.ReportKey)
}

func (s *uploadService) History(ctx context.Context, limit int) ([]domain.Upload, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	uploads, err := s.cfg.History.ListRecent(ctx, limit)
	if err != nil {
		return nil, domain.Internal(err, "upload.history", "failed to list uploads")
	}
	return uploads, nil
}

func (s *uploadService) Collections(ctx context.Context) ([]domain.Collection, error) {
	start := s.now()
	collections, err := s.cfg.Collections.ListCollections(ctx)
	s.cfg.Metrics.ObservePlatformCall("list_collections", err, s.now().Sub(start))
	return collections, err
}

// pipeline returns the in-memory pipeline of a session, rebuilding it from
// the stored snapshot when the upload was created on another instance.
func (s *uploadService) pipeline(sess *session.Session) *customer.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lp, ok := s.live[sess.ID]; ok {
		lp.touched = s.now()
		return lp.pipeline
	}
	p := customer.Restore(s.cfg.Reference, s.cfg.Submitter, sess.Snapshot)
	s.live[sess.ID] = &livePipeline{pipeline: p, touched: s.now()}
	return p
}

func (s *uploadService) track(id uuid.UUID, p *customer.Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, lp := range s.live {
		if now.Sub(lp.touched) > s.cfg.LiveTTL && lp.pipeline.Snapshot().State != customer.StateSubmitting {
			delete(s.live, k)
		}
	}
	s.live[id] = &livePipeline{pipeline: p, touched: now}
}

func (s *uploadService) untrack(id uuid.UUID) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

// finish records a terminal upload in history and metrics.
func (s *uploadService) finish(ctx context.Context, sess *session.Session) {
	s.cfg.Metrics.RecordFinished(string(sess.Snapshot.State))
	s.record(ctx, sess, string(sess.Snapshot.State))
}

// record writes the upload's history row. Later calls for the same upload
// replace its outcome.
func (s *uploadService) record(ctx context.Context, sess *session.Session, state string) {
	snap := sess.Snapshot
	u := domain.Upload{
		ID:           sess.ID,
		SourceName:   snap.SourceName,
		Actor:        sess.Actor,
		CollectionID: snap.CollectionID,
		State:        state,
		TotalRows:    snap.TotalRows,
		ClientErrors: len(snap.RowErrors),
		Failure:      snap.Failure,
		CreatedAt:    sess.CreatedAt,
	}
	if snap.Result != nil {
		u.SuccessCount = snap.Result.SuccessCount
		u.FailedCount = snap.Result.FailedCount
	}

	if err := s.cfg.History.Record(ctx, u); err != nil {
		s.logger.Warn().Err(err).Str("upload_id", sess.ID.String()).Msg("failed to record upload history")
	}
}

func (s *uploadService) release(ctx context.Context, id uuid.UUID, logger zerolog.Logger) {
	if err := s.cfg.Sessions.Release(ctx, id); err != nil {
		logger.Warn().Err(err).Msg("failed to release upload claim")
	}
}

func (s *uploadService) publish(ctx context.Context, sess *session.Session, logger zerolog.Logger) {
	e := events.UploadSubmitted{
		UploadID:     sess.ID,
		CollectionID: sess.Snapshot.CollectionID,
		Actor:        sess.Actor,
		SuccessCount: sess.Snapshot.Result.SuccessCount,
		FailedCount:  sess.Snapshot.Result.FailedCount,
		SubmittedAt:  s.now(),
	}
	if err := s.cfg.Events.PublishUploadSubmitted(ctx, e); err != nil {
		logger.Warn().Err(err).Msg("failed to publish upload event")
	}
}

func (s *uploadService) writeReport(ctx context.Context, id uuid.UUID, name string, rowErrs []domain.RowError) (string, error) {
	var buf bytes.Buffer
	if err := customer.WriteErrorReport(&buf, name, rowErrs); err != nil {
		return "", err
	}
	key := storage.ReportKey(id)
	if err := s.cfg.Storage.Put(ctx, key, &buf, XLSXContentType); err != nil {
		return "", err
	}
	return key, nil
}

// XLSXContentType is the media type of Excel workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func contentType(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return XLSXContentType
	}
	return "text/csv"
}
