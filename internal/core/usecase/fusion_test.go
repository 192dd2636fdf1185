package usecase

import (
	"testing"

	"github.com/convolveai/yojana-drishti/internal/core/domain"
)

func schemeMatch(schemeID, pointID string) domain.SchemeMatch {
	return domain.SchemeMatch{
		PointID: pointID,
		Score:   0.5,
		Scheme: domain.Scheme{
			SchemeID:    schemeID,
			SchemeName:  "Scheme " + schemeID,
			Description: "description of " + schemeID,
		},
	}
}

func TestFuseMatchesRRFBoostsDualBranchCandidates(t *testing.T) {
	a := schemeMatch("a", "p-a")
	b := schemeMatch("b", "p-b")
	c := schemeMatch("c", "p-c")

	fused := fuseMatchesRRF(
		[]domain.SchemeMatch{a, b},
		[]domain.SchemeMatch{b, c},
		60,
	)

	if len(fused) != 3 {
		t.Fatalf("expected 3 fused matches, got %d", len(fused))
	}
	if fused[0].Scheme.SchemeID != "b" {
		t.Fatalf("expected dual-branch candidate b first, got %q", fused[0].Scheme.SchemeID)
	}
	wantTop := 1.0/61.0 + 1.0/62.0
	if fused[0].Score != wantTop {
		t.Fatalf("expected fused score %v, got %v", wantTop, fused[0].Score)
	}
	if fused[1].Scheme.SchemeID != "a" {
		t.Fatalf("expected a second, got %q", fused[1].Scheme.SchemeID)
	}
	if fused[2].Scheme.SchemeID != "c" {
		t.Fatalf("expected c last, got %q", fused[2].Scheme.SchemeID)
	}
}

func TestFuseMatchesRRFTieBreaksBySchemeID(t *testing.T) {
	fused := fuseMatchesRRF(
		[]domain.SchemeMatch{schemeMatch("zeta", "p-z")},
		[]domain.SchemeMatch{schemeMatch("alpha", "p-a")},
		60,
	)

	if len(fused) != 2 {
		t.Fatalf("expected 2 fused matches, got %d", len(fused))
	}
	if fused[0].Score != fused[1].Score {
		t.Fatalf("expected equal scores, got %v and %v", fused[0].Score, fused[1].Score)
	}
	if fused[0].Scheme.SchemeID != "alpha" {
		t.Fatalf("expected alpha first on tie, got %q", fused[0].Scheme.SchemeID)
	}
}

func TestFuseMatchesRRFKeepsRicherPayload(t *testing.T) {
	bare := domain.SchemeMatch{
		PointID: "p-a",
		Scheme:  domain.Scheme{SchemeID: "a"},
	}
	full := schemeMatch("a", "p-a")

	fused := fuseMatchesRRF(
		[]domain.SchemeMatch{bare},
		[]domain.SchemeMatch{full},
		60,
	)

	if len(fused) != 1 {
		t.Fatalf("expected a single fused match, got %d", len(fused))
	}
	if fused[0].Scheme.Description == "" {
		t.Fatal("expected fused match to carry the richer payload")
	}
}

func TestTrimMatches(t *testing.T) {
	matches := []domain.SchemeMatch{
		schemeMatch("a", "p-a"),
		schemeMatch("b", "p-b"),
		schemeMatch("c", "p-c"),
	}

	if got := trimMatches(matches, 2); len(got) != 2 {
		t.Fatalf("expected 2 matches after trim, got %d", len(got))
	}
	if got := trimMatches(matches, 0); len(got) != 3 {
		t.Fatalf("expected no trim with zero limit, got %d", len(got))
	}
	if got := trimMatches(matches, 10); len(got) != 3 {
		t.Fatalf("expected no trim with large limit, got %d", len(got))
	}
}
