package storage

import (
	"context"

	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/s3"
)

// NewDocumentStore picks the receipt document store from configuration
func NewDocumentStore(cfg *config.Configuration, log *logger.Logger) (s3.Service, error) {
	if cfg.Receipt.Store == "s3" {
		log.Infow("storing receipts in s3", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.KeyPrefix)
		return s3.NewService(context.Background(), cfg)
	}

	log.Infow("storing receipts on local disk", "dir", cfg.Receipt.OutputDir)
	return NewLocalStore(cfg.Receipt.OutputDir), nil
}
