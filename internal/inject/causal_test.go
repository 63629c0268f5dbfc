package inject

import (
	"context"
	"testing"

	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
)

func TestAtomClassifierIsCausal(t *testing.T) {
	c := NewAtomClassifier(nil, 3)
	require.True(t, c.IsCausal("why does the deploy keep failing"))
	require.True(t, c.IsCausal("what's the root cause of this pattern"))
	require.False(t, c.IsCausal("what time is it"))
}

func TestAtomClassifierTraverseFromWalksCausalLinks(t *testing.T) {
	s := setupComposerStore(t)
	c := NewAtomClassifier(s, 3)

	root := &store.Atom{Subject: "deploy script", Action: "skipped health check", Outcome: "rollback triggered", Consequences: "ten minutes downtime", Confidence: 0.9, Source: "test"}
	require.NoError(t, s.CreateAtom(root))
	downstream := &store.Atom{Subject: "rollback triggered", Action: "paged oncall", Outcome: "incident opened", Consequences: "postmortem scheduled", Confidence: 0.8, Source: "test"}
	require.NoError(t, s.CreateAtom(downstream))

	require.NoError(t, s.CreateLink(&store.CausalLink{FromAtomID: root.ID, ToAtomID: downstream.ID, LinkType: store.LinkCauses, Strength: 0.7}))

	indicators := c.TraverseFrom(context.Background(), "why does the deploy script keep failing")
	require.NotEmpty(t, indicators)
	require.Contains(t, indicators[0], "rollback triggered")
}

func TestAtomClassifierTraverseFromNilStore(t *testing.T) {
	c := NewAtomClassifier(nil, 3)
	require.Nil(t, c.TraverseFrom(context.Background(), "why does this keep happening"))
}
