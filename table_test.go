package docint_test

import (
	"testing"

	"github.com/fwojciec/docint"
	"github.com/stretchr/testify/assert"
)

func TestMarkdownTable(t *testing.T) {
	t.Parallel()

	t.Run("renders header and rows", func(t *testing.T) {
		t.Parallel()

		md := docint.MarkdownTable([][]string{{"Name", "Qty"}, {"apple", "3"}, {"pear"}})

		assert.Equal(t, "| Name | Qty |\n| --- | --- |\n| apple | 3 |\n| pear |  |\n", md)
	})

	t.Run("escapes pipes and newlines", func(t *testing.T) {
		t.Parallel()

		md := docint.MarkdownTable([][]string{{"a|b"}, {"line\nbreak"}})

		assert.Equal(t, "| a\\|b |\n| --- |\n| line break |\n", md)
	})

	t.Run("empty cells", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, docint.MarkdownTable(nil))
		assert.Empty(t, docint.MarkdownTable([][]string{{}}))
	})
}

func TestNewTable(t *testing.T) {
	t.Parallel()

	table := docint.NewTable([][]string{{"h"}, {"v"}})

	assert.Equal(t, [][]string{{"h"}, {"v"}}, table.Cells)
	assert.Equal(t, "| h |\n| --- |\n| v |\n", table.Markdown)
}
