package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const coinsModel = `package models

model: two_coins: {
	purpose: "two independent coins"
	sites: [
		{name: "a", dist: bernoulli: p: 0.3},
		{name: "b", dist: bernoulli: p: 0.6},
	]
}
`

const weatherModel = `package models

model: weather: {
	sites: [
		{name: "rain", dist: bernoulli: p: 0.2},
		{name: "sprinkler", dist: categorical: {values: ["off", "on"], probs: [0.6, 0.4]}},
		{
			name: "wet"
			given: ["rain", "sprinkler"]
			table: {
				"0,off": {bernoulli: p: 0.05}
				"0,on": {bernoulli: p: 0.9}
				"1,off": {bernoulli: p: 0.8}
				"1,on": {bernoulli: p: 0.99}
			}
			observed: 1
		},
	]
}
`

const badProbabilityModel = `package models

model: broken: {
	sites: [
		{name: "a", dist: bernoulli: p: 1.5},
	]
}
`

const noSitesModel = `package models

model: empty: {
	purpose: "nothing to enumerate"
}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeCommand(NewRootCommand(), args...)
}

func executeCommand(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
