// audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

const decisionIndex = "pdp-decisions"

type Repository interface {
	LogDecision(ctx context.Context, log DecisionLog) error
	QueryLogs(ctx context.Context, from, to time.Time, identity, service string) ([]DecisionLog, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient}, nil
}

// LogDecision indexes one decision document.
func (r *ElasticsearchRepository) LogDecision(ctx context.Context, log DecisionLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      decisionIndex,
		DocumentID: log.ID,
		Body:       strings.NewReader(string(data)),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}

// QueryLogs searches decisions within a time frame, optionally filtered by caller and service.
func (r *ElasticsearchRepository) QueryLogs(ctx context.Context, from, to time.Time, identity, service string) ([]DecisionLog, error) {
	must := []map[string]any{
		{
			"range": map[string]any{
				"timestamp": map[string]any{
					"gte": from.Format(time.RFC3339),
					"lte": to.Format(time.RFC3339),
				},
			},
		},
	}
	if identity != "" {
		must = append(must, map[string]any{"term": map[string]any{"caller_identity": identity}})
	}
	if service != "" {
		must = append(must, map[string]any{"term": map[string]any{"service_name": service}})
	}
	query := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"sort":  []any{map[string]any{"timestamp": "desc"}},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(decisionIndex),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var body struct {
		Hits struct {
			Hits []struct {
				Source DecisionLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}

	logs := make([]DecisionLog, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		logs = append(logs, hit.Source)
	}
	return logs, nil
}

// MemoryRepository keeps decisions in process. Used when Elasticsearch is disabled.
type MemoryRepository struct {
	mu   sync.RWMutex
	logs []DecisionLog
	max  int
}

func NewMemoryRepository(max int) *MemoryRepository {
	return &MemoryRepository{max: max}
}

func (r *MemoryRepository) LogDecision(_ context.Context, log DecisionLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	if r.max > 0 && len(r.logs) > r.max {
		r.logs = r.logs[len(r.logs)-r.max:]
	}
	return nil
}

func (r *MemoryRepository) QueryLogs(_ context.Context, from, to time.Time, identity, service string) ([]DecisionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []DecisionLog
	for _, l := range r.logs {
		if l.Timestamp.Before(from) || l.Timestamp.After(to) {
			continue
		}
		if identity != "" && l.CallerIdentity != identity {
			continue
		}
		if service != "" && l.ServiceName != service {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
