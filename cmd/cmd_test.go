package cmd

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/finance-concierge/internal/config"
)

func TestReadLine(t *testing.T) {
	t.Parallel()

	in := bufio.NewReader(strings.NewReader("alice\r\nsecret"))
	first, err := readLine(in)
	require.NoError(t, err)
	require.Equal(t, "alice", first)

	second, err := readLine(in)
	require.NoError(t, err)
	require.Equal(t, "secret", second)

	_, err = readLine(in)
	require.ErrorIs(t, err, io.EOF)
}

func TestCategorySeeds(t *testing.T) {
	t.Parallel()

	seeds := categorySeeds(config.BuiltinDefaults())
	require.Len(t, seeds, 11)
	require.Equal(t, "Food", seeds[0].Name)
	require.Equal(t, "🍔", seeds[0].Icon)
}

func TestBudgetLimits(t *testing.T) {
	t.Parallel()

	d := config.BuiltinDefaults()
	d.BudgetDefaults = map[string]float64{"Food": 350, "Travel": 800}

	limits := budgetLimits(d)
	require.True(t, decimal.NewFromInt(350).Equal(limits["Food"]))
	require.True(t, decimal.NewFromInt(800).Equal(limits["Travel"]))
	require.True(t, decimal.NewFromInt(100).Equal(limits["Transport"]))
}

func TestVersionCommand(t *testing.T) {
	buildInfo.version, buildInfo.commit, buildInfo.date = "1.2.3", "abc123", "2026-01-01"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "concierge 1.2.3 (commit: abc123, built: 2026-01-01)\n", out.String())
}
