package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Indexer writes record documents into Elasticsearch.
type Indexer struct {
	es      *elasticsearch.Client
	timeout time.Duration
}

func NewIndexer(es *elasticsearch.Client, timeout time.Duration) *Indexer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Indexer{es: es, timeout: timeout}
}

func (i *Indexer) Index(ctx context.Context, index, id string, doc map[string]any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: index, DocumentID: id, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	res, err := req.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s/%s: %s", index, id, res.Status())
	}
	return nil
}

// Remove deletes a document; a document that is already gone is fine.
func (i *Indexer) Remove(ctx context.Context, index, id string) error {
	req := esapi.DeleteRequest{Index: index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	res, err := req.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete %s/%s: %s", index, id, res.Status())
	}
	return nil
}
