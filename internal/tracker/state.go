package tracker

import (
	"encoding/json"
	"os"
	"time"

	"IndexSentinel/internal/model"
)

// LoadState reads the tracker state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*model.TrackerState, error) {
	state := &model.TrackerState{}
	if filePath == "" {
		return state, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SaveState writes the tracker state to a JSON file. An empty path keeps state in memory only.
func SaveState(filePath string, state *model.TrackerState, now time.Time) error {
	state.UpdatedAt = now
	if filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
