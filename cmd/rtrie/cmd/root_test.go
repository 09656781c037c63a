package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func withRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("RTRIE_REDIS_ADDR", mr.Addr())
	return mr
}

func TestIndexThenSearch(t *testing.T) {
	withRedis(t)

	out, err := run(t, "index", "--id", "42", "--term", "Café Music", "--data", `{"genre":"jazz"}`, "--priority", "5")
	require.NoError(t, err)
	assert.Equal(t, "indexed 42\n", out)

	_, err = run(t, "index", "--id", "7", "--term", "Cafeteria", "--priority", "1")
	require.NoError(t, err)

	out, err = run(t, "search", "cafe")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var first autocomplete.Result
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "42", first.ID)
	assert.JSONEq(t, `{"genre":"jazz"}`, string(first.Data))

	out, err = run(t, "search", "cafe", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestIndex_RejectsBadInput(t *testing.T) {
	withRedis(t)

	_, err := run(t, "index", "--id", "1", "--term", "x", "--data", "{nope")
	assert.ErrorContains(t, err, "not valid JSON")

	_, err = run(t, "index", "--term", "x")
	assert.Error(t, err, "id is required")
}

func TestSearch_NoMatchPrintsNothing(t *testing.T) {
	withRedis(t)

	out, err := run(t, "search", "zzz")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFlush(t *testing.T) {
	mr := withRedis(t)
	require.NoError(t, mr.Set("other:key", "keep"))

	_, err := run(t, "index", "--id", "1", "--term", "ab")
	require.NoError(t, err)

	_, err = run(t, "flush")
	assert.ErrorContains(t, err, "--yes")

	out, err := run(t, "flush", "--yes")
	require.NoError(t, err)
	// rtrie:index:a, rtrie:index:ab, rtrie:metadata
	assert.Contains(t, out, "deleted 3 keys")
	assert.True(t, mr.Exists("other:key"))

	out, err = run(t, "search", "a")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNamespaceFlag(t *testing.T) {
	mr := withRedis(t)

	_, err := run(t, "--namespace", "products", "index", "--id", "1", "--term", "go")
	require.NoError(t, err)
	assert.True(t, mr.Exists("products:index:go"))
	assert.True(t, mr.Exists("products:metadata"))

	out, err := run(t, "search", "go")
	require.NoError(t, err)
	assert.Empty(t, out, "default namespace is separate")
}

func TestNamespaceFlag_RejectsSeparator(t *testing.T) {
	mr := withRedis(t)

	_, err := run(t, "--namespace", "a:index", "index", "--id", "1", "--term", "go")
	assert.ErrorContains(t, err, "namespace")
	assert.Empty(t, mr.Keys())
}

func TestAPIKeyCreate_RequiresName(t *testing.T) {
	_, err := run(t, "apikey", "create")
	assert.ErrorContains(t, err, `"name"`)
}
