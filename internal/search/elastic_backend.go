package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// indexMapping body 使用 wildcard 字段以支持任意子串匹配
const indexMapping = `{
  "mappings": {
    "properties": {
      "post_id":    {"type": "keyword"},
      "body":       {"type": "wildcard"},
      "created_at": {"type": "date"}
    }
  }
}`

// ElasticBackend Elasticsearch 实现
type ElasticBackend struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticBackend(client *elasticsearch.Client, index string) *ElasticBackend {
	return &ElasticBackend{client: client, index: index}
}

type esDocument struct {
	PostID    string    `json:"post_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *ElasticBackend) Index(ctx context.Context, postID, body string, createdAt time.Time) error {
	data, err := json.Marshal(esDocument{PostID: postID, Body: strings.ToLower(body), CreatedAt: createdAt.UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	res, err := b.client.Index(
		b.index,
		bytes.NewReader(data),
		b.client.Index.WithContext(ctx),
		b.client.Index.WithDocumentID(postID),
		b.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("failed to index post: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

func (b *ElasticBackend) Remove(ctx context.Context, postID string) error {
	res, err := b.client.Delete(
		b.index,
		postID,
		b.client.Delete.WithContext(ctx),
		b.client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

func (b *ElasticBackend) Search(ctx context.Context, query string, limit int) ([]string, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return []string{}, nil
	}

	must := make([]map[string]interface{}, 0, len(tokens))
	for _, tok := range tokens {
		must = append(must, map[string]interface{}{
			"wildcard": map[string]interface{}{
				"body": map[string]interface{}{"value": "*" + wildcardEscaper.Replace(tok) + "*"},
			},
		})
	}
	body := map[string]interface{}{
		"size":    limit,
		"_source": []string{"post_id"},
		"query":   map[string]interface{}{"bool": map[string]interface{}{"must": must}},
		"sort": []map[string]interface{}{
			{"created_at": map[string]string{"order": "desc"}},
			{"post_id": map[string]string{"order": "desc"}},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(b.index),
		b.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	defer res.Body.Close()

	// 索引尚未创建视为空
	if res.StatusCode == http.StatusNotFound {
		return []string{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// EnsureIndex 索引不存在时按 indexMapping 创建
func (b *ElasticBackend) EnsureIndex(ctx context.Context) error {
	res, err := b.client.Indices.Exists([]string{b.index}, b.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return b.createIndex(ctx)
}

func (b *ElasticBackend) Reset(ctx context.Context) error {
	res, err := b.client.Indices.Delete([]string{b.index}, b.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return b.createIndex(ctx)
}

func (b *ElasticBackend) createIndex(ctx context.Context) error {
	res, err := b.client.Indices.Create(
		b.index,
		b.client.Indices.Create.WithContext(ctx),
		b.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

type esResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}
