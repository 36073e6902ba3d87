package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendFile      = "file"
	BackendSurrealDB = "surrealdb"
)

// NewAnalysisStore creates the analysis store selected by config.Storage.Backend.
func NewAnalysisStore(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.AnalysisStore, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendFile
	}
	limit := config.Advisor.HistoryLimit

	switch backend {
	case BackendFile:
		return NewFileStore(logger, config.Storage.Path, limit)

	case BackendSurrealDB:
		return surrealdb.Connect(ctx, logger, config.Storage, limit)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, surrealdb)", backend)
	}
}
