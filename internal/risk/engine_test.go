package risk

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeLedger struct {
	callees []string
	err     error
}

func (f *fakeLedger) OutboundCalls(_ context.Context, _ string, _, _ int) ([]string, error) {
	return f.callees, f.err
}

type fakeRegistry struct {
	sources map[string]*models.VerifiedSource
	err     error
}

func (f *fakeRegistry) VerifiedSource(_ context.Context, address string) (*models.VerifiedSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sources[address], nil
}

type fakeAnalyzer struct {
	issues []string
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ *models.VerifiedSource) ([]string, error) {
	return f.issues, f.err
}

const target = "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"

func verified(name string) *models.VerifiedSource {
	return &models.VerifiedSource{
		ContractName: name,
		Files:        map[string]string{name + ".sol": "contract " + name + " {}"},
	}
}

func TestInternalScore(t *testing.T) {
	cases := []struct {
		issues int
		want   float64
	}{
		{0, 1.0},
		{10, 0.5},
		{20, 0.0},
		{25, 0.0}, // floored
	}
	for _, tc := range cases {
		got := InternalScore(tc.issues)
		if abs(got-tc.want) > 1e-9 {
			t.Errorf("InternalScore(%d) = %v, want %v", tc.issues, got, tc.want)
		}
	}
}

func TestDependencyScore(t *testing.T) {
	cases := []struct {
		flagged int
		want    float64
	}{
		{0, 0.0},
		{1, 0.2},
		{5, 1.0},
		{7, 1.0}, // capped
	}
	for _, tc := range cases {
		got := DependencyScore(tc.flagged)
		if abs(got-tc.want) > 1e-9 {
			t.Errorf("DependencyScore(%d) = %v, want %v", tc.flagged, got, tc.want)
		}
	}
}

func TestFinalScore(t *testing.T) {
	t.Run("weighted combination", func(t *testing.T) {
		got := FinalScore(0.5, 1.0)
		want := 0.4*0.5 + 0.6*1.0
		if abs(got-want) > 1e-9 {
			t.Errorf("FinalScore(0.5, 1.0) = %v, want %v", got, want)
		}
	})

	t.Run("clamps out-of-range inputs", func(t *testing.T) {
		if got := FinalScore(-2.0, 5.0); abs(got-0.6) > 1e-9 {
			t.Errorf("FinalScore(-2, 5) = %v, want 0.6", got)
		}
		if got := FinalScore(2.0, 2.0); abs(got-1.0) > 1e-9 {
			t.Errorf("FinalScore(2, 2) = %v, want 1.0", got)
		}
	})

	t.Run("always in unit interval", func(t *testing.T) {
		for i := -10; i <= 20; i++ {
			for j := -10; j <= 20; j++ {
				got := FinalScore(float64(i)/10, float64(j)/10)
				if got < 0 || got > 1 {
					t.Fatalf("FinalScore(%v, %v) = %v out of [0,1]", float64(i)/10, float64(j)/10, got)
				}
			}
		}
	})
}

func TestAssessRisk(t *testing.T) {
	ctx := context.Background()

	t.Run("missing source and no flagged dependencies", func(t *testing.T) {
		// Neutral 0.5 internal, zero dependency risk: 0.4*0.5 + 0.6*0 = 0.20
		e := NewEngine(
			&fakeLedger{},
			&fakeRegistry{sources: map[string]*models.VerifiedSource{}},
			&fakeAnalyzer{},
			map[string]bool{},
			Config{},
		)

		got, err := e.AssessRisk(ctx, target)
		if err != nil {
			t.Fatalf("AssessRisk failed: %v", err)
		}

		if abs(got.FinalScore-0.20) > 1e-9 {
			t.Errorf("final score = %v, want 0.20", got.FinalScore)
		}
		if len(got.Degraded) == 0 {
			t.Error("expected degradation note for missing source")
		}
	})

	t.Run("ten analyzer issues yield internal 0.50", func(t *testing.T) {
		issues := make([]string, 10)
		for i := range issues {
			issues[i] = fmt.Sprintf("issue %d", i)
		}
		e := NewEngine(
			&fakeLedger{},
			&fakeRegistry{sources: map[string]*models.VerifiedSource{target: verified("Token")}},
			&fakeAnalyzer{issues: issues},
			map[string]bool{},
			Config{},
		)

		got, err := e.AssessRisk(ctx, target)
		if err != nil {
			t.Fatalf("AssessRisk failed: %v", err)
		}
		if abs(got.InternalScore-0.50) > 1e-9 {
			t.Errorf("internal score = %v, want 0.50", got.InternalScore)
		}
		if len(got.Issues) != 10 {
			t.Errorf("expected 10 issues, got %d", len(got.Issues))
		}
	})

	t.Run("unverified dependents are flagged, audited ones skipped", func(t *testing.T) {
		e := NewEngine(
			&fakeLedger{callees: []string{"0xaaa", "0xbbb", "0xccc"}},
			&fakeRegistry{sources: map[string]*models.VerifiedSource{
				target:  verified("Token"),
				"0xbbb": verified("Vault"),
			}},
			&fakeAnalyzer{},
			map[string]bool{"0xccc": true},
			Config{},
		)

		got, err := e.AssessRisk(ctx, target)
		if err != nil {
			t.Fatalf("AssessRisk failed: %v", err)
		}

		// 0xaaa unverified -> flagged; 0xbbb verified; 0xccc audited
		if len(got.FlaggedDependencies) != 1 {
			t.Fatalf("expected 1 flagged dependency, got %v", got.FlaggedDependencies)
		}
		if abs(got.DependencyScore-0.2) > 1e-9 {
			t.Errorf("dependency score = %v, want 0.2", got.DependencyScore)
		}
		if len(got.DependencyNodes) != 4 {
			t.Errorf("expected 4 graph nodes, got %d", len(got.DependencyNodes))
		}
	})

	t.Run("analyzer crash degrades to neutral", func(t *testing.T) {
		e := NewEngine(
			&fakeLedger{},
			&fakeRegistry{sources: map[string]*models.VerifiedSource{target: verified("Token")}},
			&fakeAnalyzer{err: fmt.Errorf("boom: %w", models.ErrExternalTool)},
			map[string]bool{},
			Config{},
		)

		got, err := e.AssessRisk(ctx, target)
		if err != nil {
			t.Fatalf("AssessRisk failed: %v", err)
		}
		if abs(got.InternalScore-models.NeutralInternalScore) > 1e-9 {
			t.Errorf("internal score = %v, want neutral 0.5", got.InternalScore)
		}
	})

	t.Run("cost limit aborts the pillar", func(t *testing.T) {
		e := NewEngine(
			&fakeLedger{err: fmt.Errorf("scan too large: %w", models.ErrCostLimit)},
			&fakeRegistry{sources: map[string]*models.VerifiedSource{target: verified("Token")}},
			&fakeAnalyzer{},
			map[string]bool{},
			Config{},
		)

		if _, err := e.AssessRisk(ctx, target); err == nil {
			t.Fatal("expected cost-limit error")
		}
	})

	t.Run("other ledger failures degrade to root-only graph", func(t *testing.T) {
		e := NewEngine(
			&fakeLedger{err: fmt.Errorf("connection refused: %w", models.ErrNetwork)},
			&fakeRegistry{sources: map[string]*models.VerifiedSource{target: verified("Token")}},
			&fakeAnalyzer{},
			map[string]bool{},
			Config{},
		)

		got, err := e.AssessRisk(ctx, target)
		if err != nil {
			t.Fatalf("AssessRisk failed: %v", err)
		}
		if len(got.DependencyNodes) != 1 || got.DependencyNodes[0] != target {
			t.Errorf("expected root-only graph, got %v", got.DependencyNodes)
		}
	})
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
