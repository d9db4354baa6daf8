package helpers

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// NewESClient creates an Elasticsearch client with sane defaults and optional basic auth.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	return elasticsearch.NewClient(cfg)
}

// recordMapping indexes every string as text with a keyword subfield so the
// mirrored records support both search and exact filters.
const recordMapping = `{
  "mappings": {
    "dynamic_templates": [
      {"strings": {"match_mapping_type": "string", "mapping": {
        "type": "text", "fields": {"raw": {"type": "keyword", "ignore_above": 256}}}}}
    ],
    "properties": {
      "createdAt": {"type": "date"},
      "updatedAt": {"type": "date"}
    }
  }
}`

// EnsureIndex creates index with the record mapping unless it already exists.
func EnsureIndex(ctx context.Context, es *elasticsearch.Client, index string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, es)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	res, err = esapi.IndicesCreateRequest{Index: index, Body: strings.NewReader(recordMapping)}.Do(ctx, es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	// 400 here means another worker created it first.
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return &esStatusError{status: res.Status()}
	}
	return nil
}

type esStatusError struct{ status string }

func (e *esStatusError) Error() string { return "elasticsearch: " + e.status }
