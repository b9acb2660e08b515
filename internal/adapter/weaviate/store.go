// Package weaviate adapts the Weaviate client to the index and retrieval
// store interfaces.
package weaviate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"ticketpilot/backend/internal/index"
	"ticketpilot/backend/internal/ticket"
	"ticketpilot/backend/internal/vector"
)

// listIDsLimit bounds the ExistingIDs scan. Well above any realistic support
// knowledge base; raise together with the KB if it ever grows past this.
const listIDsLimit = 10000

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema creates the KBChunk class if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

// objectID maps a stable chunk id onto a deterministic Weaviate object id.
// Two concurrent inserts of the same chunk id collide on the object id and
// the loser gets a 422, which InsertChunk reports as index.ErrChunkExists.
func objectID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("kbchunk/"+chunkID)).String()
}

func (s *Store) InsertChunk(ctx context.Context, chunk index.Chunk) error {
	_, err := s.client.Data().Creator().
		WithClassName(vector.ClassName).
		WithID(objectID(chunk.ID)).
		WithProperties(map[string]interface{}{
			"content":    chunk.Content,
			"chunkId":    chunk.ID,
			"docId":      chunk.DocID,
			"chunkIndex": chunk.Index,
		}).
		WithVector(chunk.Vector).
		Do(ctx)
	if err != nil {
		var clientErr *fault.WeaviateClientError
		if errors.As(err, &clientErr) && clientErr.StatusCode == 422 {
			return index.ErrChunkExists
		}
		return err
	}
	return nil
}

// ExistingIDs returns the set of chunk ids already present in the index.
func (s *Store) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithLimit(listIDsLimit).
		WithFields(graphql.Field{Name: "chunkId"}).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	ids := make(map[string]struct{})
	for _, props := range chunkObjects(res.Data) {
		if id, ok := props["chunkId"].(string); ok {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// HasChunk reports whether a single chunk id is already indexed.
func (s *Store) HasChunk(ctx context.Context, chunkID string) (bool, error) {
	where := filters.Where().
		WithPath([]string{"chunkId"}).
		WithOperator(filters.Equal).
		WithValueString(chunkID)

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithWhere(where).
		WithLimit(1).
		WithFields(graphql.Field{Name: "chunkId"}).
		Do(ctx)
	if err != nil {
		return false, err
	}
	if len(res.Errors) > 0 {
		return false, fmt.Errorf("graphql error: %v", res.Errors)
	}
	return len(chunkObjects(res.Data)) > 0, nil
}

// Query runs a nearVector search and returns up to topK chunks ordered by
// descending similarity. Weaviate's certainty is already normalized to
// [0,1], so it maps directly onto RetrievedDoc.Similarity.
func (s *Store) Query(ctx context.Context, queryVector []float32, topK int) ([]ticket.RetrievedDoc, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "chunkId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var docs []ticket.RetrievedDoc
	for _, props := range chunkObjects(res.Data) {
		doc := ticket.RetrievedDoc{}
		if id, ok := props["chunkId"].(string); ok {
			doc.ID = id
		}
		if content, ok := props["content"].(string); ok {
			doc.Content = content
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				doc.Similarity = clamp01(certainty)
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// CountChunks returns the number of indexed chunks, for the stats endpoint.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if agg, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := agg[vector.ClassName].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}

// chunkObjects digs the KBChunk property maps out of a GraphQL Get response.
func chunkObjects(data map[string]models.JSONObject) []map[string]interface{} {
	var out []map[string]interface{}
	if get, ok := data["Get"].(map[string]interface{}); ok {
		if rows, ok := get[vector.ClassName].([]interface{}); ok {
			for _, row := range rows {
				if props, ok := row.(map[string]interface{}); ok {
					out = append(out, props)
				}
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
