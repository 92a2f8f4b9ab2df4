package docstore

import (
	"context"
)

// MaxIDsPerFetch is the store's limit on "fetch by id set" queries. Larger
// id sets must be split into batches and the results merged.
const MaxIDsPerFetch = 10

// FetchByIDs fetches documents by id in batches of at most MaxIDsPerFetch,
// merging the results into a map keyed by id. Ids with no matching document
// are simply absent from the result; a partial miss is not an error. A failed
// batch aborts the whole fetch.
func FetchByIDs[T any](ctx context.Context, ids []string, fetch func(context.Context, []string) ([]T, error), key func(T) string) (map[string]T, error) {
	result := make(map[string]T, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	for _, batch := range chunkIDs(ids, MaxIDsPerFetch) {
		docs, err := fetch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			result[key(doc)] = doc
		}
	}

	return result, nil
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}
