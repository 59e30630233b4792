package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"specgraph/internal/analysis"
	"specgraph/internal/config"
	"specgraph/internal/element"
	"specgraph/internal/git"
	"specgraph/internal/index"
	"specgraph/internal/storage"
)

type IncrementalSync struct {
	DBPath      string
	ProjectRoot string
	BaseRef     string
	Config      *config.Config
	Out         io.Writer

	// DetectChanges lists the files changed since BaseRef; git diff by default.
	DetectChanges func(ctx context.Context, dir, baseRef string) ([]git.ChangedFile, error)
}

type updatePlan struct {
	Changes    []git.ChangedFile
	FullResync bool
}

// SyncResult is what one run changed.
type SyncResult struct {
	Report *index.Report
	Impact *analysis.ImpactReport
}

func NewIncrementalSync(dbPath string, cfg *config.Config) *IncrementalSync {
	return &IncrementalSync{
		DBPath:        dbPath,
		ProjectRoot:   cfg.Project.Root,
		BaseRef:       "HEAD",
		Config:        cfg,
		Out:           os.Stdout,
		DetectChanges: git.GetChangedFiles,
	}
}

// Run rescans the project when a Go file changed since BaseRef, or unconditionally when
// forced, and persists the result. A nil result means nothing had to be done.
func (s *IncrementalSync) Run(ctx context.Context, force bool) (*SyncResult, error) {
	plan, err := s.detectChangesStage(ctx, force)
	if err != nil {
		return nil, err
	}
	if len(plan.Changes) == 0 && !plan.FullResync {
		s.printf("✅ No changes detected.\n")
		return nil, nil
	}

	store, err := storage.NewSQLiteStore(s.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	s.printf("🔄 Loading existing snapshot...\n")
	session, err := OpenSession(ctx, s.ProjectRoot, s.Config, store)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	report, err := s.passStage(ctx, session)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Report: report}
	if len(plan.Changes) > 0 {
		result.Impact = s.impactAnalysisStage(session, plan.Changes)
	}

	s.printf("💾 Saving snapshot...\n")
	if err := session.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return result, nil
}

func (s *IncrementalSync) detectChangesStage(ctx context.Context, force bool) (*updatePlan, error) {
	changes, err := s.DetectChanges(ctx, s.ProjectRoot, s.BaseRef)
	if err != nil {
		if !force {
			return nil, fmt.Errorf("failed to get git changes: %w", err)
		}
		log.FromContext(ctx).Warn("git changes unavailable", "err", err)
	}
	changes = git.GoFiles(changes)

	fullResync := force && len(changes) == 0
	if fullResync {
		s.printf("🧭 No git changes detected. Running full sync from current codebase (--force).\n")
	} else if len(changes) > 0 {
		s.printf("📝 Detected %d changed Go files.\n", len(changes))
	}

	return &updatePlan{
		Changes:    changes,
		FullResync: fullResync,
	}, nil
}

func (s *IncrementalSync) passStage(ctx context.Context, session *Session) (*index.Report, error) {
	start := time.Now()
	report, err := session.Scan(ctx, FromSource)
	if err != nil {
		return nil, fmt.Errorf("scan pass failed: %w", err)
	}
	s.printf("📊 Pass completed in %v: %s\n", time.Since(start), report)
	states := session.Registry().StateCounts(session.Project())
	s.printf("  -> %d valid, %d invalid elements in the snapshot\n", states[element.Valid], states[element.Invalid])
	return report, nil
}

func (s *IncrementalSync) impactAnalysisStage(session *Session, changes []git.ChangedFile) *analysis.ImpactReport {
	s.printf("🔍 Analyzing impact...\n")
	analyzer := analysis.NewAnalyzer(session.Registry(), session.Project())
	report, err := analyzer.AnalyzeImpact(changes)
	if err != nil {
		s.printf("⚠️  Analysis warning: %v\n", err)
		return nil
	}

	s.printf("  -> %d elements directly affected\n", len(report.DirectlyAffected))
	s.printf("  -> %d elements indirectly affected (descendants)\n", len(report.IndirectlyAffected))
	return report
}

func (s *IncrementalSync) printf(format string, args ...any) {
	if s.Out == nil {
		return
	}
	fmt.Fprintf(s.Out, format, args...)
}
