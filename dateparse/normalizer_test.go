package dateparse_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/dateparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Process(t *testing.T) {
	t.Parallel()

	t.Run("normalizes known keys", func(t *testing.T) {
		t.Parallel()

		res := &docint.ExtractionResult{Metadata: docint.Metadata{
			"date":      "Mon, 02 Jan 2006 15:04:05 -0700",
			"created":   "2024-03-05",
			"published": "March 7, 2024",
			"title":     "May 1, 2020",
		}}

		err := dateparse.NewNormalizer().Process(context.Background(), res, nil)

		require.NoError(t, err)
		assert.Equal(t, "2006-01-02T15:04:05-07:00", res.Metadata["date"])
		assert.Equal(t, "2024-03-05", res.Metadata["created"])
		assert.Equal(t, "2024-03-07", res.Metadata["published"])
		assert.Equal(t, "May 1, 2020", res.Metadata["title"])
	})

	t.Run("leaves unparseable and non-string values", func(t *testing.T) {
		t.Parallel()

		res := &docint.ExtractionResult{Metadata: docint.Metadata{
			"date":     "sometime soon",
			"modified": 42,
		}}

		err := dateparse.NewNormalizer().Process(context.Background(), res, nil)

		require.NoError(t, err)
		assert.Equal(t, "sometime soon", res.Metadata["date"])
		assert.Equal(t, 42, res.Metadata["modified"])
	})

	t.Run("handles missing metadata", func(t *testing.T) {
		t.Parallel()

		res := &docint.ExtractionResult{}

		require.NoError(t, dateparse.NewNormalizer().Process(context.Background(), res, nil))
		assert.Nil(t, res.Metadata)
	})
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2024-01-02", dateparse.Format(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-02T03:04:05Z", dateparse.Format(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}
