package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSetThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yml")

	_, err := run(t, "set", path, "server.port", "8080")
	require.NoError(t, err)
	_, err = run(t, "set", path, "server.name", "42", "--type", "string")
	require.NoError(t, err)
	assert.Equal(t, "server:\n  port: 8080\n  name: \"42\"\n", readFile(t, path))

	out, err := run(t, "get", path, "server.port")
	require.NoError(t, err)
	assert.Equal(t, "8080\n", out)

	out, err = run(t, "get", path, "server.name")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)

	out, err = run(t, "get", path, "server")
	require.NoError(t, err)
	assert.Equal(t, "port: 8080\nname: \"42\"\n", out)

	_, err = run(t, "get", path, "server.port.deeper")
	assert.Error(t, err)
}

func TestSet_StartsFromEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"empty.yml": "", "null.yml": "null\n"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err := run(t, "set", path, "a", "1")
		require.NoError(t, err, name)
		assert.Equal(t, "a: 1\n", readFile(t, path), name)
	}

	empty := filepath.Join(dir, "other.yml")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err := run(t, "get", empty, "a")
	assert.ErrorContains(t, err, "malformed_document")
}

func TestSet_RejectsBadTypedValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yml")
	_, err := run(t, "set", path, "n", "abc", "--type", "int")
	assert.ErrorContains(t, err, `invalid int "abc"`)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": {"b": 1.5}, "c": [true]}`), 0644))

	out, err := run(t, "keys", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "a.b")
	assert.Contains(t, out, "float")
	assert.Contains(t, out, "[true]")
	assert.Less(t, strings.Index(out, "a.b"), strings.Index(out, "c "))
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "app.yml")
	out := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(in, []byte("name: svc\nport: 80\n"), 0644))

	_, err := run(t, "convert", in, out)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"svc\",\n  \"port\": 80\n}\n", readFile(t, out))

	_, err = run(t, "convert", in, out)
	assert.ErrorContains(t, err, "--replace")
	_, err = run(t, "convert", in, out, "--replace")
	assert.NoError(t, err)

	hcl := filepath.Join(dir, "app.conf")
	_, err = run(t, "convert", in, hcl, "--to", "hcl")
	require.NoError(t, err)
	assert.Contains(t, readFile(t, hcl), `name = "svc"`)
}

func TestFmt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yml")
	const messy = "server: {port: 1}\n"
	require.NoError(t, os.WriteFile(path, []byte(messy), 0644))

	out, err := run(t, "fmt", "--diff", path)
	require.NoError(t, err)
	assert.Contains(t, out, "-server: {port: 1}")
	assert.Contains(t, out, "+  port: 1")
	assert.Equal(t, messy, readFile(t, path), "--diff leaves the file alone")

	out, err = run(t, "fmt", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
	assert.Equal(t, "server:\n  port: 1\n", readFile(t, path))

	out, err = run(t, "fmt", path)
	require.NoError(t, err)
	assert.Empty(t, out, "canonical files are not reported")
}

func TestFmt_StopsOnParseError(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte("a: 1\n"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"a": `), 0644))

	_, err := run(t, "fmt", good, bad)
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yml")
	require.NoError(t, os.WriteFile(path, []byte("a:\n  n: 3\n"), 0644))

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "map[string]interface {}")
	assert.Contains(t, out, "(int64) 3")

	out, err = run(t, "inspect", path, "--path", "a.n")
	require.NoError(t, err)
	assert.Equal(t, "(int64) 3\n", out)
}

func TestUnknownFormatAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yml")
	_, err := run(t, "--format", "toml", "keys", path)
	assert.ErrorContains(t, err, "unknown format")
	_, err = run(t, "--log-level", "loud", "keys", path)
	assert.ErrorContains(t, err, "unknown log level")
}
