// Package enricher runs the background enrichment pipeline: each created
// mission is queued, researched, embedded and finished with exactly one
// terminal write.
package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/nexuslabs/nexus/ai"
	"github.com/nexuslabs/nexus/internal/metrics"
	"github.com/nexuslabs/nexus/internal/profile"
	"github.com/nexuslabs/nexus/store"
)

// ErrEmptyTitle is returned when a mission is created without a title.
var ErrEmptyTitle = errors.New("title cannot be empty")

// Enricher owns the mission status state machine. Missions are enqueued at
// create time and drained by a fixed worker pool; attempts for one mission
// are strictly sequential, missions are independent of each other.
type Enricher struct {
	store    *store.Store
	research ai.ResearchService
	embedder ai.EmbeddingService
	exporter *metrics.Exporter

	maxRetries     int
	backoff        time.Duration
	embedPrefixLen int
	workers        int

	// engineSem caps in-flight engine calls across all workers, so raising
	// the worker count never multiplies pressure on the research engine.
	engineSem *semaphore.Weighted

	queue  chan int32
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates an Enricher. research and embedder may be nil when no engine is
// configured; missions then stay in Initializing until corrected externally.
func New(st *store.Store, research ai.ResearchService, embedder ai.EmbeddingService, exporter *metrics.Exporter, p *profile.Profile) *Enricher {
	workers := p.EnricherWorkers
	if workers <= 0 {
		workers = 3
	}
	concurrency := p.EngineConcurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Enricher{
		store:          st,
		research:       research,
		embedder:       embedder,
		exporter:       exporter,
		maxRetries:     p.MaxRetries,
		backoff:        p.RetryBackoff,
		embedPrefixLen: p.EmbedPrefixLen,
		workers:        workers,
		engineSem:      semaphore.NewWeighted(int64(concurrency)),
		queue:          make(chan int32, 100),
		stopCh:         make(chan struct{}),
	}
}

// Start launches the worker pool.
func (e *Enricher) Start() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	slog.Info("enricher started", "workers", e.workers)
}

// Stop drains in-flight work and stops the workers. Queued missions that have
// not started yet are abandoned in Initializing state.
func (e *Enricher) Stop() {
	close(e.stopCh)
	e.wg.Wait()
	slog.Info("enricher stopped")
}

// CreateMission inserts a draft mission and schedules its enrichment. The
// caller gets the Initializing row back immediately and never waits on the
// pipeline; scheduling failures are logged only.
func (e *Enricher) CreateMission(ctx context.Context, creatorID int32, title string) (*store.Mission, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}

	mission, err := e.store.CreateMission(ctx, creatorID, title)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mission")
	}

	if e.research == nil || e.embedder == nil {
		slog.Warn("no research engine configured, mission stays initializing", "mission", mission.UID)
		return mission, nil
	}

	select {
	case e.queue <- mission.ID:
	case <-time.After(50 * time.Millisecond):
		// Queue is full. The mission stays Initializing; nothing re-enqueues
		// it automatically.
		slog.Error("enrichment queue full, mission not scheduled", "mission", mission.UID)
	case <-e.stopCh:
		slog.Warn("enricher stopped, mission not scheduled", "mission", mission.UID)
	}
	return mission, nil
}

func (e *Enricher) worker(id int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case missionID := <-e.queue:
			e.process(missionID, id)
		}
	}
}

// process runs the attempt loop for one mission: at most maxRetries attempts
// with linear backoff, then exactly one terminal write. Intermediate attempts
// leave no partial state.
func (e *Enricher) process(missionID int32, workerID int) {
	start := time.Now()
	ctx := context.Background()

	mission, err := e.store.GetMission(ctx, &store.FindMission{ID: &missionID})
	if err != nil {
		slog.Error("failed to load mission for enrichment", "mission_id", missionID, "error", err)
		return
	}
	if mission == nil || mission.Status != store.MissionInitializing {
		// Deleted or already finished; nothing to do.
		return
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		slog.Info("enrichment attempt", "mission", mission.UID, "attempt", attempt, "worker", workerID)

		report, vector, err := e.enrich(ctx, mission.Title)
		if err == nil {
			status := store.MissionCompleted
			if report.DemoMode {
				status = store.MissionDemoMode
			}
			if _, err := e.store.FinishMission(ctx, &store.FinishMission{
				ID:        mission.ID,
				Status:    status,
				Report:    report.Content,
				Embedding: vector,
			}); err != nil {
				// A failing local write is not retried blindly.
				slog.Error("failed to finish mission", "mission", mission.UID, "error", err)
				return
			}
			e.observeAttempt("success")
			e.observeMission(string(status), time.Since(start))
			slog.Info("enrichment finished", "mission", mission.UID, "status", status, "attempts", attempt)
			return
		}

		lastErr = err
		e.observeAttempt("failure")
		slog.Warn("enrichment attempt failed",
			"mission", mission.UID,
			"attempt", attempt,
			"transient", ai.IsTransient(err),
			"error", err)

		if attempt < e.maxRetries {
			// Linear backoff: backoff, 2*backoff, ... Only this worker's
			// mission is suspended.
			e.wait(time.Duration(attempt) * e.backoff)
		}
	}

	report := failureReport(lastErr)
	if _, err := e.store.FinishMission(ctx, &store.FinishMission{
		ID:     mission.ID,
		Status: store.MissionFailed,
		Report: report,
	}); err != nil {
		slog.Error("failed to mark mission failed", "mission", mission.UID, "error", err)
		return
	}
	e.observeMission(string(store.MissionFailed), time.Since(start))
	slog.Error("enrichment exhausted", "mission", mission.UID, "attempts", e.maxRetries, "error", lastErr)
}

// enrich performs one attempt: generate the report, then embed the title plus
// a bounded report prefix to keep embedding requests cheap and stable. The
// semaphore is held for the whole attempt.
func (e *Enricher) enrich(ctx context.Context, title string) (*ai.Report, []float32, error) {
	if err := e.engineSem.Acquire(ctx, 1); err != nil {
		return nil, nil, errors.Wrap(err, "failed to acquire engine slot")
	}
	defer e.engineSem.Release(1)

	report, err := e.research.Research(ctx, title)
	if err != nil {
		return nil, nil, err
	}

	embedText := title + ": " + prefix(report.Content, e.embedPrefixLen)
	vector, err := e.embedder.Embed(ctx, embedText)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to embed report")
	}
	return report, vector, nil
}

func (e *Enricher) wait(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-e.stopCh:
	}
}

func (e *Enricher) observeAttempt(result string) {
	if e.exporter != nil {
		e.exporter.ObserveAttempt(result)
	}
}

func (e *Enricher) observeMission(status string, elapsed time.Duration) {
	if e.exporter != nil {
		e.exporter.ObserveMission(status, elapsed)
	}
}

// prefix truncates s to at most n characters, never splitting a rune.
func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// failureReport is the user-facing explanation written on exhaustion. It
// embeds the last error so the user sees why the mission gave up.
func failureReport(lastErr error) string {
	detail := "unknown error"
	if lastErr != nil {
		detail = lastErr.Error()
	}
	return fmt.Sprintf("System is currently experiencing high traffic (Rate Limit). Please try again later.\n\nError details: %s", detail)
}
