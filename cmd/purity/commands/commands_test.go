package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/on-the-ground/purity/cmd/purity/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = `package demo

import "fmt"

var total int

func add(a, b int) int { return a + b }

func record(n int) {
	total += n
	fmt.Println(total)
}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := commands.New()
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCommands_Scan(t *testing.T) {
	path := writeFile(t, "demo.go", source)

	out, err := execute(t, "scan", path)
	require.Error(t, err)
	assert.ErrorContains(t, err, commands.ErrViolations.Error())
	assert.Contains(t, out, "demo.go:9: record: fmt.Println, total")
	assert.NotContains(t, out, ": add:")

	out, err = execute(t, "scan", "--allow", "fmt,total", path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCommands_ScanWithPolicy(t *testing.T) {
	path := writeFile(t, "demo.go", source)
	policy := writeFile(t, "purity.yaml", "globals:\n  allow: [fmt, total]\n")

	_, err := execute(t, "--policy", policy, "scan", path)
	require.NoError(t, err)

	_, err = execute(t, "--policy", filepath.Join(t.TempDir(), "missing.yaml"), "scan", path)
	require.Error(t, err)
}

func TestCommands_Catalog(t *testing.T) {
	policy := writeFile(t, "purity.yaml", "sandbox:\n  allow: [time.now]\n")
	out, err := execute(t, "--policy", policy, "catalog")
	require.NoError(t, err)

	assert.Contains(t, out, "CAPABILITY")
	assert.Regexp(t, `time\.now\s+World\.Now\s+allowed`, out)
	assert.Regexp(t, `print\s+os\.Stdout\s+trapped`, out)
	assert.Regexp(t, `db\.connect\s+World\.OpenDB\s+unavailable`, out)
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "purity version ")
}
