package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/kagebunshin/internal/gesture"
)

// execute runs the CLI against a config that keeps every file under dir.
func execute(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cfg := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(cfg); os.IsNotExist(err) {
		body := "store:\n  path: " + filepath.Join(dir, "db", "test.db") + "\n" +
			"hooks:\n  dir: " + filepath.Join(dir, "hooks") + "\n" +
			"log:\n  level: error\n"
		require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))
	}

	var out bytes.Buffer
	root := rootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func writeDataset(t *testing.T, path string, n int) {
	t.Helper()
	ds := &gesture.Dataset{}
	for i := 0; i < n; i++ {
		pos := make([]float64, gesture.InputSize)
		neg := make([]float64, gesture.InputSize)
		pos[0], neg[0] = 1, -1
		ds.Add(gesture.LabelCloneSign, pos)
		ds.Add(gesture.LabelNotSign, neg)
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, ds.Export(f))
}

func TestCLI_DatasetAndTrain(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	writeDataset(t, in, 6)

	out := execute(t, dir, "dataset", "import", in)
	assert.Contains(t, out, "imported 6 clone_sign and 6 not_sign samples")

	exported := filepath.Join(dir, "out.json")
	execute(t, dir, "dataset", "export", exported)
	f, err := os.Open(exported)
	require.NoError(t, err)
	ds, err := gesture.ImportDataset(f)
	f.Close()
	require.NoError(t, err)
	pos, neg := ds.Counts()
	assert.Equal(t, 6, pos)
	assert.Equal(t, 6, neg)

	modelPath := filepath.Join(dir, "model.json")
	out = execute(t, dir, "train", "--epochs", "20", "--learning-rate", "0.5", "--out", modelPath)
	assert.True(t, strings.HasPrefix(out, "model "), out)
	_, err = gesture.LoadModel(modelPath)
	assert.NoError(t, err)

	out = execute(t, dir, "dataset", "clear")
	assert.Contains(t, out, "deleted 12 samples")
}

func TestCLI_Commands(t *testing.T) {
	root := rootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "train", "dataset"} {
		assert.True(t, names[want], "missing %s command", want)
	}

	// run flags are accepted on the root command too.
	assert.NotNil(t, root.Flags().Lookup("mock"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
