package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/common"
	"github.com/ternarybob/barcheck/internal/interfaces"
	"github.com/ternarybob/barcheck/internal/storage/badger"
)

// NewStorageManager opens the history store configured in config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	if !config.Storage.Badger.Enabled {
		return nil, fmt.Errorf("run history is disabled (storage.badger.enabled = false)")
	}
	return badger.NewManager(logger, &config.Storage.Badger)
}
