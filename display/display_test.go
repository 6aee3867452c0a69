package display

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldOutputJSON(t *testing.T) {
	t.Setenv(OutputEnv, "")

	root := &cobra.Command{Use: "hirepanel"}
	root.PersistentFlags().Bool("json", false, "")
	child := &cobra.Command{Use: "ls"}
	root.AddCommand(child)

	assert.False(t, ShouldOutputJSON(child))

	require.NoError(t, root.PersistentFlags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(child))

	t.Setenv(OutputEnv, "JSON")
	assert.True(t, ShouldOutputJSON(nil))
}

func TestShouldOutputJSON_LocalFlagWins(t *testing.T) {
	t.Setenv(OutputEnv, "json")

	cmd := &cobra.Command{Use: "ls"}
	cmd.Flags().Bool("json", false, "")
	require.NoError(t, cmd.Flags().Set("json", "false"))
	assert.False(t, ShouldOutputJSON(cmd))
}

func TestMarshalJSON(t *testing.T) {
	t.Setenv(CompactEnv, "")
	out, err := MarshalJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(out))

	t.Setenv(CompactEnv, "1")
	out, err = MarshalJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(out))
}

func TestTable(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	out, err := Table([]string{"Name", "Email"}, [][]string{{"Ada", "ada@example.com"}})
	require.NoError(t, err)
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "ada@example.com")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "a b", Truncate("a\nb", 10))
	assert.Equal(t, "héll...", Truncate("héllo wörld", 7))
}

func TestEmptyState(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	EmptyState(&buf, "candidates")
	assert.Contains(t, buf.String(), "No candidates found.")
}
