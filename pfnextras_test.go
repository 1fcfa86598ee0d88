package pfnextras

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linshokaku/pytorch-pfn-extras/comparer"
	"github.com/linshokaku/pytorch-pfn-extras/engine"
	"github.com/linshokaku/pytorch-pfn-extras/internal/testutil"
)

func TestNewComparerFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"trigger:\n  period: 1\n  unit: iteration\noutputs: [loss]\n",
	), 0o600))

	cmp, err := NewComparerFromConfig(path)
	require.NoError(t, err)

	ha := testutil.NewScriptedHandler(testutil.ConstantOutputs(2, "loss", 1.0)...)
	hb := testutil.NewScriptedHandler(testutil.ConstantOutputs(2, "loss", 1.0)...)

	ta := engine.NewTrainer(engine.NewMapModel(nil), ha)
	tb := engine.NewTrainer(engine.NewMapModel(nil), hb)

	require.NoError(t, cmp.AddEngine("a", ta, testutil.Loader(2)))
	require.NoError(t, cmp.AddEngine("b", tb, testutil.Loader(2)))

	assert.NoError(t, cmp.Compare(context.Background()))
}

func TestNewComparerFromConfig_MissingFile(t *testing.T) {
	_, err := NewComparerFromConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewComparer_OverridesApply(t *testing.T) {
	cmp := NewComparer(func(o *comparer.Options) { o.Concurrency = 1 })
	assert.NotNil(t, cmp)
	assert.Empty(t, cmp.Engines())
}
