package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueBlockKeepsOrder(t *testing.T) {
	out := KeyValueBlock("Transaction Details", [][2]string{
		{"Token Name", "Mock (MOCK)"},
		{"Amount (wei)", "60"},
		{"Recipients", "3"},
	})
	assert.Contains(t, out, "Transaction Details")
	assert.Contains(t, out, "Mock (MOCK)")

	a := strings.Index(out, "Token Name")
	b := strings.Index(out, "Amount (wei)")
	c := strings.Index(out, "Recipients")
	require.Greater(t, a, -1)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestKeyValueBlockWithoutTitle(t *testing.T) {
	out := KeyValueBlock("", [][2]string{{"Key", "Value"}})
	assert.Contains(t, out, "Value")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "╰")
}

func TestTableRender(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Network", Width: 10}, {Title: "TSender", Width: 12}})
	tbl.AddRow(Row{"anvil", "0x5FbDB2315678afecb367f032d93F642f64180aa3"})
	tbl.AddRow(Row{"base"})

	out := tbl.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Network")
	assert.Contains(t, lines[1], strings.Repeat("-", 10))
	assert.Contains(t, lines[2], "0x5FbDB2315…")
	assert.Contains(t, lines[3], "base")
}

func TestPad(t *testing.T) {
	assert.Equal(t, "ab   ", pad("ab", 5))
	assert.Equal(t, "abcd…", pad("abcdefgh", 5))
	assert.Equal(t, "a", pad("abc", 1))
	assert.Equal(t, "éé ", pad("éé", 3))
}
