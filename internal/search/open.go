package search

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/config"
)

// Open 按 search.backend 选择实现；elasticsearch 会确保索引存在
func Open(ctx context.Context, cfg *config.Config, db *gorm.DB) (Backend, error) {
	switch cfg.Search.Backend {
	case "elasticsearch":
		client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.Elasticsearch.Addresses})
		if err != nil {
			return nil, fmt.Errorf("create elasticsearch client: %w", err)
		}
		b := NewElasticBackend(client, cfg.Elasticsearch.Index)
		if err := b.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		return b, nil
	case "sql", "":
		return NewSQLBackend(db), nil
	default:
		return nil, fmt.Errorf("unsupported search backend: %s", cfg.Search.Backend)
	}
}
