// Package file provides file-based persistence, one JSON document per record.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/leadflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	store        *store
	flowRepo     *FlowRepository
	execRepo     *ExecutionRepository
	leadRepo     *LeadRepository
	campaignRepo *CampaignRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	s := &store{root: cleanRoot}

	return &Persistence{
		root:         cleanRoot,
		store:        s,
		flowRepo:     &FlowRepository{store: s},
		execRepo:     &ExecutionRepository{store: s},
		leadRepo:     &LeadRepository{store: s},
		campaignRepo: &CampaignRepository{store: s},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) FlowRepository() persistence.FlowRepository {
	return fp.flowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.execRepo
}

func (fp *Persistence) LeadRepository() persistence.LeadRepository {
	return fp.leadRepo
}

func (fp *Persistence) CampaignRepository() persistence.CampaignRepository {
	return fp.campaignRepo
}

// store serializes access to the JSON documents under root.
type store struct {
	root string
	mu   sync.RWMutex
}

// validateID rejects identifiers that could escape the collection directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: cannot be empty", persistence.ErrInvalidID)
	}

	if strings.Contains(id, "..") || strings.Contains(id, "/") || strings.Contains(id, "\\") {
		return fmt.Errorf("%w: contains invalid characters", persistence.ErrInvalidID)
	}

	return nil
}

func (s *store) path(collection, id string) string {
	return filepath.Join(s.root, collection, id+".json")
}

// write stores v as collection/id.json. Callers hold the write lock.
func (s *store) write(collection, id string, v any) error {
	if err := validateID(id); err != nil {
		return err
	}

	dir := filepath.Join(s.root, collection)

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	err = os.WriteFile(s.path(collection, id), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", collection, id, err)
	}

	return nil
}

// read loads collection/id.json into v, returning os.ErrNotExist when absent.
// Callers hold at least the read lock.
func (s *store) read(collection, id string, v any) error {
	if err := validateID(id); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path(collection, id)) // #nosec G304 -- id is validated
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.ErrNotExist
		}

		return fmt.Errorf("failed to read %s %s: %w", collection, id, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return nil
}

func (s *store) remove(collection, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := os.Remove(s.path(collection, id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}

	return nil
}

// ids lists the record identifiers of a collection. Callers hold at least the read lock.
func (s *store) ids(collection string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read %s directory: %w", collection, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}

	return ids, nil
}

// readAll loads every record of a collection.
func readAll[T any](s *store, collection string) ([]*T, error) {
	ids, err := s.ids(collection)
	if err != nil {
		return nil, err
	}

	records := make([]*T, 0, len(ids))

	for _, id := range ids {
		var record T
		if err := s.read(collection, id, &record); err != nil {
			return nil, err
		}

		records = append(records, &record)
	}

	return records, nil
}
