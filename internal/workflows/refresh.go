package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/routesafe/bridgeguard/internal/core/domain"
)

// RefreshInput is the input for the catalog refresh workflow.
type RefreshInput struct {
	SourceURL string
}

// CatalogRefreshWorkflow downloads a new bridge catalog CSV, validates it,
// swaps it into the database, and announces the reload. A catalog that fails
// validation never reaches the database, so a bad upstream file leaves the
// previous catalog serving.
func CatalogRefreshWorkflow(ctx workflow.Context, input RefreshInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting catalog refresh", "source", input.SourceURL)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Download the CSV to a local staging file
	var path string
	err := workflow.ExecuteActivity(ctx, "DownloadCatalog", input.SourceURL).Get(ctx, &path)
	if err != nil {
		return err
	}

	// Step 2: Validate before touching the database
	var status domain.CatalogStatus
	err = workflow.ExecuteActivity(ctx, "ValidateCatalog", path).Get(ctx, &status)
	if err != nil {
		logger.Warn("catalog validation failed, keeping previous catalog", "error", err)
		_ = workflow.ExecuteActivity(ctx, "CleanupDownload", path).Get(ctx, nil)
		return err
	}

	// Step 3: Swap the validated catalog in
	err = workflow.ExecuteActivity(ctx, "SwapCatalog", path, input.SourceURL).Get(ctx, &status)
	if err != nil {
		_ = workflow.ExecuteActivity(ctx, "CleanupDownload", path).Get(ctx, nil)
		return err
	}
	_ = workflow.ExecuteActivity(ctx, "CleanupDownload", path).Get(ctx, nil)

	// Step 4: Announce the reload so API instances refresh their view.
	// Publish failure is not worth a retry loop over a completed swap.
	err = workflow.ExecuteActivity(ctx, "PublishReload", status).Get(ctx, nil)
	if err != nil {
		logger.Warn("reload announcement failed", "error", err)
	}

	logger.Info("Catalog refresh complete", "bridges", status.Bridges, "skipped", status.SkippedRows)
	return nil
}
