// Copyright 2024, the PIMGAVIR contributors.

package pimgavir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhasesForUnknownChain(t *testing.T) {
	_, err := PhasesFor(Chain("bogus"))
	require.ErrorIs(t, err, ErrUnknownChain)
}

func TestPhasesForReturnsCopies(t *testing.T) {
	a, err := PhasesFor(ChainRead)
	require.NoError(t, err)
	a[0].ID = "mutated"
	b, err := PhasesFor(ChainRead)
	require.NoError(t, err)
	require.Equal(t, "read_classify_1", b[0].ID)
}

func TestChainDependenciesAreLinear(t *testing.T) {
	for _, c := range []Chain{ChainShared, ChainRead, ChainAssembly, ChainCluster} {
		phases, err := PhasesFor(c)
		require.NoError(t, err)
		seen := map[string]bool{}
		for _, p := range phases {
			for _, dep := range p.DependsOn {
				require.True(t, seen[dep],
					"%s depends on %s, which is not earlier in the %s chain", p.ID, dep, c)
			}
			seen[p.ID] = true
		}
	}
}

func TestExitCodesAreDistinct(t *testing.T) {
	byCode := map[int]string{}
	for _, p := range AllPhases() {
		prev, dup := byCode[p.ExitCode]
		require.False(t, dup, "exit code %d shared by %s and %s", p.ExitCode, prev, p.ID)
		require.Greater(t, p.ExitCode, 1, "codes 0 and 1 are reserved")
		byCode[p.ExitCode] = p.ID
	}
}

func TestArtifactReferencesResolve(t *testing.T) {
	// Every {out:<phase>} placeholder in a command template must
	// name a registered phase, so each intermediate file has
	// exactly one owner.
	for _, p := range AllPhases() {
		for _, a := range p.Args {
			for rest := a; ; {
				i := strings.Index(rest, "{out:")
				if i < 0 {
					break
				}
				rest = rest[i+len("{out:"):]
				j := strings.IndexByte(rest, '}')
				require.GreaterOrEqual(t, j, 0)
				id := rest[:j]
				_, ok := LookupPhase(id)
				require.True(t, ok, "%s references unknown phase %q", p.ID, id)
			}
		}
	}
}

func TestSharedPhasesFilterInjection(t *testing.T) {
	plain := SharedPhases(false)
	require.Len(t, plain, 2)
	for _, p := range plain {
		require.NotEqual(t, "taxa_filter", p.ID)
	}

	filtered := SharedPhases(true)
	require.Len(t, filtered, 3)
	last := filtered[len(filtered)-1]
	require.Equal(t, "taxa_filter", last.ID)
	require.Equal(t, []string{"rrna_filter"}, last.DependsOn)
}

func TestChainsForSelectors(t *testing.T) {
	all, err := ChainsFor(MethodAll)
	require.NoError(t, err)
	require.Equal(t, []Chain{ChainRead, ChainAssembly, ChainCluster}, all)

	one, err := ChainsFor(MethodCluster)
	require.NoError(t, err)
	require.Equal(t, []Chain{ChainCluster}, one)

	_, err = ChainsFor(Method("read_based"))
	require.ErrorIs(t, err, ErrInvalidMethod)
}

func TestEachChainHasSummaryPhase(t *testing.T) {
	for _, c := range []Chain{ChainRead, ChainAssembly, ChainCluster} {
		phases, err := PhasesFor(c)
		require.NoError(t, err)
		found := false
		for _, p := range phases {
			if p.Summary {
				found = true
			}
		}
		require.True(t, found, "chain %s has no summary phase", c)
	}
}
