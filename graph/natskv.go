package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/archdrift/analysis"
)

// Bucket names for graph persistence.
const (
	BucketFiles           = "ARCHDRIFT_FILES"
	BucketClassifications = "ARCHDRIFT_CLASSIFICATIONS"
	BucketIntents         = "ARCHDRIFT_INTENTS"
	BucketViolations      = "ARCHDRIFT_VIOLATIONS"
	BucketFindings        = "ARCHDRIFT_FINDINGS"
)

// fileRecord is the KV value for one analyzed file: the full element
// and relationship batch, replayed through UpsertFile on open.
type fileRecord struct {
	FilePath      string                  `json:"file_path"`
	Elements      []*analysis.CodeElement `json:"elements"`
	Relationships []analysis.Relationship `json:"relationships,omitempty"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// KVStore is a Store persisted in NATS JetStream KV buckets. All reads
// and graph logic run against an embedded MemoryStore; writes go
// through to KV so the graph survives restarts. Open replays the
// buckets back into memory.
type KVStore struct {
	*MemoryStore

	files           jetstream.KeyValue
	classifications jetstream.KeyValue
	intents         jetstream.KeyValue
	violations      jetstream.KeyValue
	findings        jetstream.KeyValue
	logger          *slog.Logger
}

// NewKVStore opens the graph buckets, creating them when missing, and
// replays their contents into memory.
func NewKVStore(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) (*KVStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &KVStore{MemoryStore: NewMemoryStore(), logger: logger}

	var err error
	if s.files, err = getOrCreateBucket(ctx, js, BucketFiles); err != nil {
		return nil, fmt.Errorf("create files bucket: %w", err)
	}
	if s.classifications, err = getOrCreateBucket(ctx, js, BucketClassifications); err != nil {
		return nil, fmt.Errorf("create classifications bucket: %w", err)
	}
	if s.intents, err = getOrCreateBucket(ctx, js, BucketIntents); err != nil {
		return nil, fmt.Errorf("create intents bucket: %w", err)
	}
	if s.violations, err = getOrCreateBucket(ctx, js, BucketViolations); err != nil {
		return nil, fmt.Errorf("create violations bucket: %w", err)
	}
	if s.findings, err = getOrCreateBucket(ctx, js, BucketFindings); err != nil {
		return nil, fmt.Errorf("create findings bucket: %w", err)
	}

	if err := s.replay(ctx); err != nil {
		return nil, fmt.Errorf("replay graph: %w", err)
	}
	return s, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Archdrift %s storage", strings.ToLower(name)),
		History:     5,
	})
}

// replay loads persisted state back into the embedded memory store.
// File batches can reference elements from other files, so replay
// iterates until a pass makes no progress; batches that never apply are
// logged and skipped.
func (s *KVStore) replay(ctx context.Context) error {
	records, err := s.loadFileRecords(ctx)
	if err != nil {
		return err
	}

	pending := records
	for len(pending) > 0 {
		var failed []fileRecord
		for _, rec := range pending {
			err := s.MemoryStore.UpsertFile(ctx, rec.FilePath, rec.Elements, rec.Relationships)
			if err != nil {
				failed = append(failed, rec)
			}
		}
		if len(failed) == len(pending) {
			for _, rec := range failed {
				s.logger.Warn("skipping unreplayable file batch", "file", rec.FilePath)
			}
			break
		}
		pending = failed
	}

	if err := replayBucket(ctx, s.classifications, func(data []byte) error {
		var c analysis.Classification
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		return s.MemoryStore.SetClassification(ctx, c)
	}); err != nil {
		return err
	}
	if err := replayBucket(ctx, s.intents, func(data []byte) error {
		var t analysis.IntentTag
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		return s.MemoryStore.SetIntentTag(ctx, t)
	}); err != nil {
		return err
	}
	if err := replayBucket(ctx, s.violations, func(data []byte) error {
		var vs []analysis.Violation
		if err := json.Unmarshal(data, &vs); err != nil {
			return err
		}
		if len(vs) == 0 {
			return nil
		}
		return s.MemoryStore.RecordViolations(ctx, vs[0].ElementID, vs)
	}); err != nil {
		return err
	}
	return replayBucket(ctx, s.findings, func(data []byte) error {
		var f analysis.HallucinationFinding
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		return s.MemoryStore.RecordFinding(ctx, f)
	})
}

func (s *KVStore) loadFileRecords(ctx context.Context) ([]fileRecord, error) {
	keys, err := s.files.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list file keys: %w", err)
	}

	records := make([]fileRecord, 0, len(keys))
	for _, key := range keys {
		entry, err := s.files.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec fileRecord
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			s.logger.Warn("dropping undecodable file record", "key", key, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func replayBucket(ctx context.Context, kv jetstream.KeyValue, apply func([]byte) error) error {
	keys, err := kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil
		}
		return fmt.Errorf("list keys: %w", err)
	}
	for _, key := range keys {
		entry, err := kv.Get(ctx, key)
		if err != nil {
			continue
		}
		if err := apply(entry.Value()); err != nil {
			continue
		}
	}
	return nil
}

// fileKey derives a KV-safe key from a file path.
func fileKey(filePath string) string {
	sum := sha256.Sum256([]byte(filePath))
	return hex.EncodeToString(sum[:8])
}

// UpsertFile implements Store with write-through persistence. Records
// for elements the new batch no longer contains are deleted alongside
// the memory update.
func (s *KVStore) UpsertFile(ctx context.Context, filePath string, elements []*analysis.CodeElement, rels []analysis.Relationship) error {
	before := s.MemoryStore.ElementsInFile(filePath)

	if err := s.MemoryStore.UpsertFile(ctx, filePath, elements, rels); err != nil {
		return err
	}

	kept := make(map[string]bool, len(elements))
	for _, el := range elements {
		kept[el.ID] = true
	}
	for _, id := range before {
		if kept[id] {
			continue
		}
		s.deleteElementRecords(ctx, id)
	}

	if len(elements) == 0 {
		if err := s.files.Delete(ctx, fileKey(filePath)); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete file record: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(fileRecord{
		FilePath:      filePath,
		Elements:      elements,
		Relationships: rels,
		UpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal file record: %w", err)
	}
	if _, err := s.files.Put(ctx, fileKey(filePath), data); err != nil {
		return fmt.Errorf("store file record: %w", err)
	}
	return nil
}

func (s *KVStore) deleteElementRecords(ctx context.Context, elementID string) {
	for _, kv := range []jetstream.KeyValue{s.classifications, s.intents, s.violations, s.findings} {
		if err := kv.Delete(ctx, elementID); err != nil && !isNotFound(err) {
			s.logger.Warn("failed to delete stale record",
				"element_id", elementID, "error", err)
		}
	}
}

// SetClassification implements Store.
func (s *KVStore) SetClassification(ctx context.Context, c analysis.Classification) error {
	if err := s.MemoryStore.SetClassification(ctx, c); err != nil {
		return err
	}
	return putJSON(ctx, s.classifications, c.ElementID, c)
}

// SetIntentTag implements Store.
func (s *KVStore) SetIntentTag(ctx context.Context, tag analysis.IntentTag) error {
	if err := s.MemoryStore.SetIntentTag(ctx, tag); err != nil {
		return err
	}
	return putJSON(ctx, s.intents, tag.ElementID, tag)
}

// RecordViolations implements Store. An empty slice clears the
// element's violations in both memory and KV.
func (s *KVStore) RecordViolations(ctx context.Context, elementID string, violations []analysis.Violation) error {
	if err := s.MemoryStore.RecordViolations(ctx, elementID, violations); err != nil {
		return err
	}
	if len(violations) == 0 {
		if err := s.violations.Delete(ctx, elementID); err != nil && !isNotFound(err) {
			return fmt.Errorf("clear violations: %w", err)
		}
		return nil
	}
	return putJSON(ctx, s.violations, elementID, violations)
}

// RecordFinding implements Store.
func (s *KVStore) RecordFinding(ctx context.Context, f analysis.HallucinationFinding) error {
	if err := s.MemoryStore.RecordFinding(ctx, f); err != nil {
		return err
	}
	return putJSON(ctx, s.findings, f.ElementID, f)
}

func putJSON(ctx context.Context, kv jetstream.KeyValue, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

// isNotFound reports whether an error indicates a missing key.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
