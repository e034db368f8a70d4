package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"recitation/internal/job"
	"recitation/internal/pipeline"
	"recitation/internal/services"
	"recitation/internal/stage"
	"recitation/internal/testsupport"
)

type memoryCheckpointer struct {
	mu        sync.Mutex
	snapshots []*job.Record
	failAfter int
}

func (m *memoryCheckpointer) Set(_ context.Context, rec *job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter > 0 && len(m.snapshots) >= m.failAfter {
		return errors.New("disk full")
	}
	m.snapshots = append(m.snapshots, rec.Clone())
	return nil
}

func (m *memoryCheckpointer) last() *job.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil
	}
	return m.snapshots[len(m.snapshots)-1]
}

type tracker struct {
	mu    sync.Mutex
	calls []job.PhaseName
}

func (tr *tracker) handler(name job.PhaseName, fn func(*job.Record) error) stage.Handler {
	return stage.Func{Name: string(name), Run: func(_ context.Context, rec *job.Record) error {
		tr.mu.Lock()
		tr.calls = append(tr.calls, name)
		tr.mu.Unlock()
		if fn != nil {
			return fn(rec)
		}
		return nil
	}}
}

func phaseSet(tr *tracker, overrides map[job.PhaseName]func(*job.Record) error) pipeline.PhaseSet {
	h := func(name job.PhaseName) stage.Handler { return tr.handler(name, overrides[name]) }
	return pipeline.PhaseSet{
		ResolveID:                 h(job.PhaseResolveID),
		FetchArchive:              h(job.PhaseFetchArchive),
		ExtractArchive:            h(job.PhaseExtractArchive),
		LocateSourceDocument:      h(job.PhaseLocateSourceDocument),
		ExtractMetadata:           h(job.PhaseExtractMetadata),
		TransformToMarkup:         h(job.PhaseTransformToMarkup),
		ExtractDocumentText:       h(job.PhaseExtractDocumentText),
		UploadMedia:               h(job.PhaseUploadMedia),
		RewriteMediaReferences:    h(job.PhaseRewriteMediaReferences),
		RewriteSupplementaryLinks: h(job.PhaseRewriteSupplementaryLinks),
		PublishDocument:           h(job.PhasePublishDocument),
		PublishRedirect:           h(job.PhasePublishRedirect),
	}
}

func newRunner(t *testing.T, phases pipeline.PhaseSet, cp pipeline.Checkpointer, opts ...pipeline.Option) *pipeline.Runner {
	t.Helper()
	runner, err := pipeline.New(testsupport.NewConfig(t), phases, cp, opts...)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return runner
}

func TestNewRejectsMissingHandler(t *testing.T) {
	phases := phaseSet(&tracker{}, nil)
	phases.PublishRedirect = nil
	_, err := pipeline.New(testsupport.NewConfig(t), phases, &memoryCheckpointer{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunCompletesEveryPhaseInOrder(t *testing.T) {
	tr := &tracker{}
	cp := &memoryCheckpointer{}
	runner := newRunner(t, phaseSet(tr, nil), cp)

	rec := job.NewRecord("10.1/example", job.AllCategories(), time.Now())
	result, err := runner.Run(context.Background(), rec, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Halted || result.Completed != len(job.PhaseOrder) {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(tr.calls) != len(job.PhaseOrder) {
		t.Fatalf("expected %d handler calls, got %v", len(job.PhaseOrder), tr.calls)
	}
	for i, name := range job.PhaseOrder {
		if tr.calls[i] != name {
			t.Fatalf("call %d was %s, expected %s", i, tr.calls[i], name)
		}
	}
	if !rec.Complete() {
		t.Fatalf("expected every phase done, got %+v", rec.Phases)
	}
	if err := rec.CheckInvariants(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
	if len(cp.snapshots) != len(job.PhaseOrder) {
		t.Fatalf("expected one checkpoint per phase, got %d", len(cp.snapshots))
	}
	for i, snap := range cp.snapshots {
		if snap.CompletedCount() != i+1 {
			t.Fatalf("checkpoint %d has %d completed phases", i, snap.CompletedCount())
		}
	}
}

func TestRunClampsDecreasingClock(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		// Alternate forward and backward jumps.
		if tick%2 == 0 {
			return base.Add(-time.Duration(tick) * time.Second)
		}
		return base.Add(time.Duration(tick) * time.Second)
	}
	cp := &memoryCheckpointer{}
	runner := newRunner(t, phaseSet(&tracker{}, nil), cp, pipeline.WithClock(clock))

	rec := job.NewRecord("10.1/clock", job.AllCategories(), base)
	if _, err := runner.Run(context.Background(), rec, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var last time.Time
	for _, p := range rec.Phases {
		if p.CompletedAt.Before(last) {
			t.Fatalf("phase %s completed at %v before %v", p.Name, p.CompletedAt, last)
		}
		last = *p.CompletedAt
	}
}

func TestRunStopsAtStructuralFailure(t *testing.T) {
	tr := &tracker{}
	cp := &memoryCheckpointer{}
	phases := phaseSet(tr, map[job.PhaseName]func(*job.Record) error{
		job.PhaseLocateSourceDocument: func(*job.Record) error {
			return services.Wrap(services.ErrStructural, "", "locate source", "found 2 candidate source documents", nil)
		},
	})
	runner := newRunner(t, phases, cp)

	rec := job.NewRecord("10.1/two-sources", job.AllCategories(), time.Now())
	_, err := runner.Run(context.Background(), rec, nil)
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if got := services.Details(err).Phase; got != string(job.PhaseLocateSourceDocument) {
		t.Fatalf("expected phase context, got %q", got)
	}
	for _, name := range []job.PhaseName{job.PhaseResolveID, job.PhaseFetchArchive, job.PhaseExtractArchive} {
		if !rec.IsDone(name) {
			t.Fatalf("expected %s done", name)
		}
	}
	failed, ok := rec.FailedPhase()
	if !ok || failed.Name != job.PhaseLocateSourceDocument || failed.ErrorKind != services.KindStructural {
		t.Fatalf("unexpected failed phase %+v", failed)
	}
	if len(tr.calls) != 4 {
		t.Fatalf("later phases must not run, calls=%v", tr.calls)
	}
	persisted := cp.last()
	if persisted == nil {
		t.Fatal("expected failure to be checkpointed")
	}
	if p, _ := persisted.Phase(job.PhaseLocateSourceDocument); p.Status != job.PhaseFailed {
		t.Fatalf("expected persisted failure, got %+v", p)
	}
}

func TestRunHaltsCleanlyWhenIdentifierNotApplicable(t *testing.T) {
	tr := &tracker{}
	cp := &memoryCheckpointer{}
	phases := phaseSet(tr, map[job.PhaseName]func(*job.Record) error{
		job.PhaseResolveID: func(rec *job.Record) error {
			rec.NotApplicable = true
			return services.Wrap(services.ErrNotFound, "", "resolve", "no PMC record", nil)
		},
	})
	runner := newRunner(t, phases, cp)

	rec := job.NewRecord("10.1/not-in-pmc", job.AllCategories(), time.Now())
	result, err := runner.Run(context.Background(), rec, nil)
	if err != nil {
		t.Fatalf("expected clean halt, got %v", err)
	}
	if !result.Halted || result.Completed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !rec.IsDone(job.PhaseResolveID) || rec.IsDone(job.PhaseFetchArchive) {
		t.Fatalf("unexpected phases %+v", rec.Phases)
	}
	if !cp.last().NotApplicable {
		t.Fatal("expected NotApplicable to be persisted")
	}
	if len(tr.calls) != 1 {
		t.Fatalf("expected only resolve-id to run, calls=%v", tr.calls)
	}
}

func TestRunTreatsNotFoundAfterResolveAsFatal(t *testing.T) {
	phases := phaseSet(&tracker{}, map[job.PhaseName]func(*job.Record) error{
		job.PhaseFetchArchive: func(*job.Record) error {
			return services.Wrap(services.ErrNotFound, "", "oa lookup", "not open access", nil)
		},
	})
	runner := newRunner(t, phases, &memoryCheckpointer{})

	rec := job.NewRecord("10.1/closed", job.AllCategories(), time.Now())
	if _, err := runner.Run(context.Background(), rec, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found failure, got %v", err)
	}
	if failed, ok := rec.FailedPhase(); !ok || failed.Name != job.PhaseFetchArchive {
		t.Fatalf("expected fetch-archive failure, got %+v", failed)
	}
}

func TestRunRecoversHandlerPanic(t *testing.T) {
	phases := phaseSet(&tracker{}, map[job.PhaseName]func(*job.Record) error{
		job.PhaseExtractMetadata: func(*job.Record) error { panic("nil map") },
	})
	runner := newRunner(t, phases, &memoryCheckpointer{})

	rec := job.NewRecord("10.1/panic", job.AllCategories(), time.Now())
	_, err := runner.Run(context.Background(), rec, nil)
	if err == nil {
		t.Fatal("expected error from panicking handler")
	}
	if services.Kind(err) != services.KindUnknown {
		t.Fatalf("expected unknown kind, got %q", services.Kind(err))
	}
	if failed, ok := rec.FailedPhase(); !ok || failed.Name != job.PhaseExtractMetadata {
		t.Fatalf("expected extract-metadata failure, got %+v", failed)
	}
}

func TestRunAbortsWhenCheckpointFails(t *testing.T) {
	tr := &tracker{}
	cp := &memoryCheckpointer{failAfter: 2}
	runner := newRunner(t, phaseSet(tr, nil), cp)

	rec := job.NewRecord("10.1/checkpoint", job.AllCategories(), time.Now())
	if _, err := runner.Run(context.Background(), rec, nil); err == nil {
		t.Fatal("expected checkpoint failure")
	}
	if len(tr.calls) != 3 {
		t.Fatalf("expected the run to stop after the failed checkpoint, calls=%v", tr.calls)
	}
}

func TestRunSplicesDonorAfterUpload(t *testing.T) {
	donor := job.NewRecord("10.1/splice", job.AllCategories(), time.Now())
	for _, c := range job.Categories {
		donor.Assets[c] = job.AssetBundle{Assets: []job.Asset{{Name: string(c), UploadedName: "donor " + string(c)}}}
	}
	donor.Text = "old text"

	var seenAtRewrite map[job.Category]job.AssetBundle
	phases := phaseSet(&tracker{}, map[job.PhaseName]func(*job.Record) error{
		job.PhaseUploadMedia: func(rec *job.Record) error {
			for _, c := range rec.Regenerate.Categories {
				rec.Assets[c] = job.AssetBundle{Assets: []job.Asset{{Name: string(c), UploadedName: "fresh " + string(c)}}}
			}
			return nil
		},
		job.PhaseRewriteMediaReferences: func(rec *job.Record) error {
			seenAtRewrite = rec.Clone().Assets
			rec.Text = "new text"
			return nil
		},
	})
	runner := newRunner(t, phases, &memoryCheckpointer{})

	rec := job.NewRecord("10.1/splice", job.Selector{Categories: []job.Category{job.CategoryEquations}, Text: true}, time.Now())
	if _, err := runner.Run(context.Background(), rec, donor); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := seenAtRewrite[job.CategoryImages].Assets[0].UploadedName; got != "donor images" {
		t.Fatalf("splice must complete before rewrite, saw %q", got)
	}
	if got := rec.Assets[job.CategoryEquations].Assets[0].UploadedName; got != "fresh equations" {
		t.Fatalf("regenerated category replaced by donor: %q", got)
	}
	if got := rec.Assets[job.CategoryTables].Assets[0].UploadedName; got != "donor tables" {
		t.Fatalf("tables not spliced: %q", got)
	}
	if rec.Text != "new text" {
		t.Fatalf("text should regenerate, got %q", rec.Text)
	}
}

func TestRunFailsUploadWhenDonorMissing(t *testing.T) {
	runner := newRunner(t, phaseSet(&tracker{}, nil), &memoryCheckpointer{})
	rec := job.NewRecord("10.1/orphan", job.Selector{Categories: []job.Category{job.CategoryImages}}, time.Now())

	_, err := runner.Run(context.Background(), rec, nil)
	if !errors.Is(err, services.ErrDonorDataMissing) {
		t.Fatalf("expected donor data missing, got %v", err)
	}
	if failed, _ := rec.FailedPhase(); failed.Name != job.PhaseUploadMedia {
		t.Fatalf("expected upload-media failure, got %+v", failed)
	}
}

func TestRunResumesFromLastCheckpoint(t *testing.T) {
	tr := &tracker{}
	runner := newRunner(t, phaseSet(tr, nil), &memoryCheckpointer{})

	rec := job.NewRecord("10.1/resume", job.AllCategories(), time.Now())
	for _, name := range job.PhaseOrder[:5] {
		if err := rec.MarkDone(name, time.Now()); err != nil {
			t.Fatalf("MarkDone: %v", err)
		}
	}
	if _, err := runner.Run(context.Background(), rec, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(tr.calls) != len(job.PhaseOrder)-5 || tr.calls[0] != job.PhaseTransformToMarkup {
		t.Fatalf("expected to resume at transform, calls=%v", tr.calls)
	}
}

func TestHealthCheckReportsEveryPhase(t *testing.T) {
	runner := newRunner(t, phaseSet(&tracker{}, nil), &memoryCheckpointer{})
	health := runner.HealthCheck(context.Background())
	if len(health) != len(job.PhaseOrder) {
		t.Fatalf("expected %d entries, got %d", len(job.PhaseOrder), len(health))
	}
	for i, h := range health {
		if h.Name != string(job.PhaseOrder[i]) || !h.Ready {
			t.Fatalf("unexpected health %d: %+v", i, h)
		}
	}
}
