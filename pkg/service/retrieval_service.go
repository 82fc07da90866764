// Retrieval service with chromem-go vector store integration
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/archivebot/archivebot/pkg/models"
	"github.com/archivebot/archivebot/pkg/utils"
	chromem "github.com/philippgille/chromem-go"
)

var (
	ErrVectorStoreDisabled = errors.New("vector store is disabled")
	ErrNoEmbeddingFunc     = errors.New("no embedding function available")
)

// archiveCollection is the single collection holding all indexed archive
// messages. Channel scoping happens through metadata, not per-channel
// collections, so cross-channel queries stay a single vector search.
const archiveCollection = "archive_messages"

// RetrievalConfig holds configuration for the retrieval service.
type RetrievalConfig struct {
	Enabled bool
	Path    string // empty means in-memory only

	EmbeddingProvider string // openai or ollama
	OpenAIAPIKey      string
	OpenAIModel       string // e.g. text-embedding-3-small
	OllamaURL         string
	OllamaModel       string // e.g. nomic-embed-text
}

// ArchiveDocument is one message to index.
type ArchiveDocument struct {
	ID        string
	Content   string
	ChannelID int64
	Channel   string
	User      string
	Timestamp string
	ThreadTS  string
}

// RetrievalService indexes archive messages into a chromem-go vector store
// and serves semantic search over them. It implements the orchestrator's
// Retriever contract.
type RetrievalService struct {
	config RetrievalConfig
	logger *slog.Logger

	vectorDB *chromem.DB
	col      *chromem.Collection
}

// NewRetrievalService creates the retrieval service and opens (or creates)
// the backing collection.
func NewRetrievalService(config RetrievalConfig) (*RetrievalService, error) {
	s := &RetrievalService{
		config: config,
		logger: utils.GetLogger(),
	}

	if !config.Enabled {
		return s, nil
	}

	embeddingFunc := s.createEmbeddingFunc()
	if embeddingFunc == nil {
		return nil, ErrNoEmbeddingFunc
	}

	var err error
	if config.Path != "" {
		if err := os.MkdirAll(config.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create vector store directory: %w", err)
		}
		s.vectorDB, err = chromem.NewPersistentDB(config.Path, false)
	} else {
		s.vectorDB = chromem.NewDB()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create vector DB: %w", err)
	}

	s.col = s.vectorDB.GetCollection(archiveCollection, embeddingFunc)
	if s.col == nil {
		s.col, err = s.vectorDB.CreateCollection(archiveCollection, nil, embeddingFunc)
		if err != nil {
			return nil, fmt.Errorf("failed to create collection: %w", err)
		}
	}

	s.logger.Info("Vector store initialized", "path", config.Path, "documents", s.col.Count())

	return s, nil
}

// createEmbeddingFunc builds the embedding function for the configured
// provider. Returns nil when the provider cannot be used.
func (s *RetrievalService) createEmbeddingFunc() chromem.EmbeddingFunc {
	switch s.config.EmbeddingProvider {
	case "openai":
		apiKey := s.config.OpenAIAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil
		}
		model := s.config.OpenAIModel
		if model == "" {
			model = "text-embedding-3-small"
		}
		return chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(model))

	case "ollama":
		url := s.config.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := s.config.OllamaModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return chromem.NewEmbeddingFuncOllama(model, url)

	default:
		return nil
	}
}

// Enabled reports whether the vector store is usable.
func (s *RetrievalService) Enabled() bool {
	return s.config.Enabled && s.col != nil
}

// Count returns the number of indexed documents.
func (s *RetrievalService) Count() int {
	if s.col == nil {
		return 0
	}
	return s.col.Count()
}

// Index embeds and stores the given documents. Individual failures are
// logged and skipped so one bad document does not abort a bulk import.
func (s *RetrievalService) Index(ctx context.Context, docs []ArchiveDocument) (int, error) {
	if !s.Enabled() {
		return 0, ErrVectorStoreDisabled
	}

	indexed := 0
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}

		metadata := map[string]string{
			"channel":    doc.Channel,
			"channel_id": strconv.FormatInt(doc.ChannelID, 10),
			"user":       doc.User,
			"timestamp":  doc.Timestamp,
		}
		if doc.ThreadTS != "" {
			metadata["thread_ts"] = doc.ThreadTS
		}

		err := s.col.AddDocument(ctx, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadata,
		})
		if err != nil {
			s.logger.Warn("Failed to index document", "error", err, "id", doc.ID)
			continue
		}
		indexed++
	}

	s.logger.Debug("Documents indexed", "requested", len(docs), "indexed", indexed)

	return indexed, nil
}

// Search runs a semantic query and returns relevance-sorted results. A
// single-channel filter is pushed into the vector query; multi-channel
// filters are applied on an over-fetched result set because the store only
// supports equality matches.
func (s *RetrievalService) Search(ctx context.Context, query string, limit int, filters *models.SearchFilters) ([]models.SearchResult, error) {
	if !s.Enabled() {
		return nil, ErrVectorStoreDisabled
	}
	if limit <= 0 {
		limit = 10
	}

	var where map[string]string
	fetch := limit
	if filters != nil && len(filters.ChannelIDs) == 1 {
		where = map[string]string{
			"channel_id": strconv.FormatInt(filters.ChannelIDs[0], 10),
		}
	} else if filters != nil && len(filters.ChannelIDs) > 1 {
		fetch = limit * len(filters.ChannelIDs)
	}

	// chromem returns an error when asking for more results than documents.
	if total := s.col.Count(); fetch > total {
		fetch = total
	}
	if fetch == 0 {
		return []models.SearchResult{}, nil
	}

	results, err := s.col.Query(ctx, query, fetch, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	wanted := channelIDSet(filters)

	out := make([]models.SearchResult, 0, limit)
	for _, r := range results {
		if wanted != nil {
			id, err := strconv.ParseInt(r.Metadata["channel_id"], 10, 64)
			if err != nil {
				continue
			}
			if _, ok := wanted[id]; !ok {
				continue
			}
		}

		out = append(out, models.SearchResult{
			ID:       r.ID,
			Score:    float64(r.Similarity),
			Content:  r.Content,
			Metadata: metadataFromStrings(r.Metadata),
		})
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

// Delete removes documents by ID.
func (s *RetrievalService) Delete(ctx context.Context, ids ...string) error {
	if !s.Enabled() {
		return ErrVectorStoreDisabled
	}
	return s.col.Delete(ctx, nil, nil, ids...)
}

func channelIDSet(filters *models.SearchFilters) map[int64]struct{} {
	if filters == nil || len(filters.ChannelIDs) < 2 {
		return nil
	}
	set := make(map[int64]struct{}, len(filters.ChannelIDs))
	for _, id := range filters.ChannelIDs {
		set[id] = struct{}{}
	}
	return set
}

func metadataFromStrings(m map[string]string) models.Metadata {
	if len(m) == 0 {
		return nil
	}
	md := make(models.Metadata, len(m))
	for k, v := range m {
		md[k] = models.MetaString(v)
	}
	return md
}
