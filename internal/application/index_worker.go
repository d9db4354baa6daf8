package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/linkfolio-api/pkg/events"
)

// ErrMalformedEvent marks a message that can never be processed and should
// not be redelivered.
var ErrMalformedEvent = errors.New("malformed record event")

// SearchIndexer mirrors records into an external search index.
type SearchIndexer interface {
	Index(ctx context.Context, index, id string, doc map[string]any) error
	Remove(ctx context.Context, index, id string) error
}

// IndexWorker applies record events to the search index. Each collection
// maps to the index IndexPrefix + collection.
type IndexWorker struct {
	Indexer     SearchIndexer
	IndexPrefix string
	Logger      *logrus.Logger
}

func NewIndexWorker(indexer SearchIndexer, indexPrefix string, logger *logrus.Logger) *IndexWorker {
	return &IndexWorker{Indexer: indexer, IndexPrefix: indexPrefix, Logger: logger}
}

// Handle processes one message body.
func (w *IndexWorker) Handle(ctx context.Context, body []byte) error {
	var ev events.RecordEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Collection == "" || ev.ID == "" {
		return fmt.Errorf("%w: missing collection or id", ErrMalformedEvent)
	}
	index := w.IndexPrefix + ev.Collection

	var err error
	switch ev.Type {
	case events.RecordCreated, events.RecordUpdated:
		if ev.Record == nil {
			return fmt.Errorf("%w: %s without record", ErrMalformedEvent, ev.Type)
		}
		err = w.Indexer.Index(ctx, index, ev.ID, ev.Record)
	case events.RecordDeleted:
		err = w.Indexer.Remove(ctx, index, ev.ID)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	if err != nil {
		return err
	}
	if w.Logger != nil {
		w.Logger.WithFields(logrus.Fields{
			"type":  ev.Type,
			"index": index,
			"id":    ev.ID,
		}).Debug("record event applied")
	}
	return nil
}
