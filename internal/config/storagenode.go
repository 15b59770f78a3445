package config

import (
	"errors"
	"fmt"

	"github.com/c2h5oh/datasize"

	"github.com/iudanet/gophdir/internal/blob"
)

// StorageNode конфигурация storage-узла
type StorageNode struct {
	Listen        string            `yaml:"listen"`
	Secret        string            `yaml:"secret"`
	Backend       string            `yaml:"backend"`
	Path          string            `yaml:"path"`
	EncryptionKey string            `yaml:"encryption_key"` // пусто - без шифрования
	MaxObjectSize datasize.ByteSize `yaml:"max_object_size"`
	Bus           BusConfig         `yaml:"bus"`
}

// LoadStorageNode загружает конфигурацию storage-узла
func LoadStorageNode(path string) (*StorageNode, error) {
	cfg := &StorageNode{}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *StorageNode) setDefaults() {
	if c.Listen == "" {
		c.Listen = ":9000"
	}
	if c.Backend == "" {
		c.Backend = blob.BackendBolt
	}
	if c.Path == "" {
		if c.Backend == blob.BackendBolt {
			c.Path = "objects.db"
		} else {
			c.Path = "objects"
		}
	}
	if c.MaxObjectSize == 0 {
		c.MaxObjectSize = 64 * datasize.MB
	}
	c.Bus.setDefaults()
	if c.Bus.GroupID == "" {
		c.Bus.GroupID = "storage-" + c.Listen
	}
}

// Validate проверяет конфигурацию storage-узла
func (c *StorageNode) Validate() error {
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	switch c.Backend {
	case blob.BackendBolt, blob.BackendBadger, blob.BackendFS:
	default:
		return fmt.Errorf("backend must be one of bolt, badger, fs; got %q", c.Backend)
	}
	return c.Bus.Validate()
}
