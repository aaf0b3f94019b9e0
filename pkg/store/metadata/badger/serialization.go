package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// Records are stored as JSON: human-readable when inspecting the database and
// tolerant of added fields.

func encodeFile(r *metadata.FileRecord) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file record: %w", err)
	}
	return data, nil
}

func decodeFile(data []byte) (*metadata.FileRecord, error) {
	var r metadata.FileRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode file record: %w", err)
	}
	return &r, nil
}

func encodeFolder(f *metadata.FolderRecord) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder record: %w", err)
	}
	return data, nil
}

func decodeFolder(data []byte) (*metadata.FolderRecord, error) {
	var f metadata.FolderRecord
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode folder record: %w", err)
	}
	return &f, nil
}
