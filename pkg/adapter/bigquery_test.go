package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/wrinkle/pkg/adapter"
)

func TestBigQuery(t *testing.T) {
	projectID := os.Getenv("TEST_BIGQUERY_PROJECT")
	if projectID == "" {
		t.Skip("TEST_BIGQUERY_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewBigQuery(ctx, projectID)
	gt.NoError(t, err)

	query := "SELECT @keyword AS keyword, 42 AS value"
	params := map[string]any{"keyword": "babysitter"}

	t.Run("DryRun", func(t *testing.T) {
		_, err := client.DryRun(ctx, query, params)
		gt.NoError(t, err)
	})

	t.Run("Query", func(t *testing.T) {
		rows, err := client.Query(ctx, query, params)
		gt.NoError(t, err)
		gt.A(t, rows).Length(1)
		gt.Equal(t, rows[0]["keyword"], any("babysitter"))
	})
}
