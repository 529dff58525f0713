// Package activity keeps a local log of what the user did through the
// client, searchable with bleve.
package activity

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/mapping"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/tranvictor/medchain/storage"
)

const (
	StorageKey = "medchain_activity"
	MaxEntries = 500
)

type Entry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Actor   string    `json:"actor"`
	Action  string    `json:"action"`
	Subject string    `json:"subject"`
	TxHash  string    `json:"txHash,omitempty"`
	Details string    `json:"details,omitempty"`
}

// document is what gets indexed for an entry.
type document struct {
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Subject string `json:"subject"`
	Details string `json:"details"`
}

type Log struct {
	store storage.Store
	index bleve.Index
	now   func() time.Time

	mu sync.Mutex
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName

	defaultMapping := bleve.NewDocumentMapping()
	defaultMapping.AddFieldMappingsAt("subject", textFieldMapping)
	defaultMapping.AddFieldMappingsAt("details", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", defaultMapping)
	indexMapping.DefaultAnalyzer = "en"
	return indexMapping
}

// Open returns the log stored in store, indexed at indexPath. An empty
// indexPath keeps the index in memory.
func Open(store storage.Store, indexPath string) (*Log, error) {
	index, err := openIndex(indexPath)
	if err != nil {
		return nil, err
	}
	l := &Log{store: store, index: index, now: time.Now}
	if err := l.reindex(); err != nil {
		index.Close()
		return nil, err
	}
	return l, nil
}

func openIndex(path string) (bleve.Index, error) {
	if path == "" {
		return bleve.NewMemOnly(buildIndexMapping())
	}
	index, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't open activity index %s: %w", path, err)
	}
	return index, nil
}

// reindex makes the index match storage when they drifted apart, e.g.
// when storage was edited or the index was deleted.
func (l *Log) reindex() error {
	entries, err := l.load()
	if err != nil {
		return err
	}
	count, err := l.index.DocCount()
	if err != nil {
		return err
	}
	if count == uint64(len(entries)) {
		return nil
	}
	startTime := time.Now()
	batch := l.index.NewBatch()
	for _, e := range entries {
		if err := batch.Index(e.ID, toDocument(e)); err != nil {
			return err
		}
	}
	if err := l.index.Batch(batch); err != nil {
		return err
	}
	log.Debug("Reindexed activity log", "entries", len(entries), "elapsed", time.Since(startTime))
	return nil
}

func toDocument(e Entry) document {
	return document{Actor: e.Actor, Action: e.Action, Subject: e.Subject, Details: e.Details}
}

func (l *Log) load() ([]Entry, error) {
	entries := []Entry{}
	err := storage.GetJSON(l.store, StorageKey, &entries)
	if err == storage.ErrNotFound {
		return []Entry{}, nil
	}
	if err != nil {
		log.Warn("Activity log is unreadable, starting a new one", "err", err)
		return []Entry{}, nil
	}
	return entries, nil
}

// Record appends e, filling in its id and time when empty. The oldest
// entries are dropped past MaxEntries.
func (l *Log) Record(e Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Entry{}, err
		}
		e.ID = id.String()
	}
	if e.Time.IsZero() {
		e.Time = l.now()
	}

	entries, err := l.load()
	if err != nil {
		return Entry{}, err
	}
	entries = append(entries, e)
	batch := l.index.NewBatch()
	if len(entries) > MaxEntries {
		for _, old := range entries[:len(entries)-MaxEntries] {
			batch.Delete(old.ID)
		}
		entries = entries[len(entries)-MaxEntries:]
	}
	if err := storage.SetJSON(l.store, StorageKey, entries); err != nil {
		return Entry{}, err
	}
	if err := batch.Index(e.ID, toDocument(e)); err != nil {
		return Entry{}, err
	}
	if err := l.index.Batch(batch); err != nil {
		return Entry{}, fmt.Errorf("couldn't index activity: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.After(entries[j].Time)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Search matches input as a phrase or, with one typo allowed, as a term.
func (l *Log) Search(input string, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matchQuery := bleve.NewMatchPhraseQuery(input)
	fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(input))
	fuzzyQuery.Fuzziness = 1
	query := bleve.NewDisjunctionQuery(matchQuery, fuzzyQuery)
	request := bleve.NewSearchRequest(query)
	if limit > 0 {
		request.Size = limit
	}
	searchResults, err := l.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("activity search failed: %w", err)
	}

	entries, err := l.load()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	results := []Entry{}
	for _, hit := range searchResults.Hits {
		e, found := byID[hit.ID]
		if !found {
			log.Debug("Search hit is no longer in the activity log", "id", hit.ID)
			continue
		}
		results = append(results, e)
	}
	return results, nil
}

func (l *Log) Close() error {
	return l.index.Close()
}
