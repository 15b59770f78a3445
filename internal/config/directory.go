package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/gophdir/internal/directory"
	"github.com/iudanet/gophdir/internal/replication"
	"github.com/iudanet/gophdir/internal/token"
)

// Directory конфигурация реплики каталога
type Directory struct {
	Listen       string            `yaml:"listen"`
	AdvertiseURL string            `yaml:"advertise_url"`
	ReplicaID    string            `yaml:"replica_id"`
	Secret       string            `yaml:"secret"`
	UsersURL     string            `yaml:"users_url"`
	Coordinator  CoordinatorConfig `yaml:"coordinator"`
	Nodes        NodesConfig       `yaml:"nodes"`
	Bus          BusConfig         `yaml:"bus"`
	Replication  ReplicationConfig `yaml:"replication"`
	Placement    PlacementConfig   `yaml:"placement"`
	TokenTTL     time.Duration     `yaml:"token_ttl"`
	UserCacheTTL time.Duration     `yaml:"user_cache_ttl"`
}

// CoordinatorConfig сервис координации для выбора лидера
type CoordinatorConfig struct {
	Kind           string        `yaml:"kind"`
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	Election       string        `yaml:"election"`
}

// NodesConfig storage-узлы и период их опроса
type NodesConfig struct {
	URLs          []string      `yaml:"urls"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

// ReplicationConfig параметры репликации дельт
type ReplicationConfig struct {
	WriteQuorum   int           `yaml:"write_quorum"`
	QuorumTimeout time.Duration `yaml:"quorum_timeout"`
	VersionWait   time.Duration `yaml:"version_wait"`
	HistorySize   int           `yaml:"history_size"`
	QueueSize     int           `yaml:"queue_size"`
}

// PlacementConfig параметры размещения файлов
type PlacementConfig struct {
	Candidates int `yaml:"candidates"`
	Replicas   int `yaml:"replicas"`
}

// LoadDirectory загружает конфигурацию реплики каталога
func LoadDirectory(path string) (*Directory, error) {
	cfg := &Directory{}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Directory) setDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.AdvertiseURL == "" {
		c.AdvertiseURL = "http://localhost" + c.Listen
	}
	if c.ReplicaID == "" {
		c.ReplicaID = uuid.NewString()
	}
	if c.UsersURL == "" {
		c.UsersURL = "http://localhost:8090"
	}
	if c.Coordinator.Kind == "" {
		c.Coordinator.Kind = KindMemory
	}
	defaultDuration(&c.Coordinator.SessionTimeout, 5*time.Second)
	if c.Coordinator.Election == "" {
		c.Coordinator.Election = "dir"
	}
	defaultDuration(&c.Nodes.ProbeInterval, 2*time.Second)
	defaultDuration(&c.Nodes.ProbeTimeout, time.Second)
	if c.Replication.WriteQuorum <= 0 {
		c.Replication.WriteQuorum = replication.DefaultWriteQuorum
	}
	defaultDuration(&c.Replication.QuorumTimeout, replication.DefaultQuorumTimeout)
	defaultDuration(&c.Replication.VersionWait, replication.DefaultVersionWait)
	if c.Replication.HistorySize <= 0 {
		c.Replication.HistorySize = replication.DefaultHistorySize
	}
	if c.Replication.QueueSize <= 0 {
		c.Replication.QueueSize = replication.DefaultQueueSize
	}
	if c.Placement.Candidates <= 0 {
		c.Placement.Candidates = directory.DefaultCandidates
	}
	if c.Placement.Replicas <= 0 {
		c.Placement.Replicas = directory.DefaultReplicas
	}
	defaultDuration(&c.TokenTTL, token.DefaultTTL)
	defaultDuration(&c.UserCacheTTL, 3*time.Second)
	c.Bus.setDefaults()
	if c.Bus.GroupID == "" {
		// каждая реплика получает все объявления
		c.Bus.GroupID = "directory-" + c.ReplicaID
	}
}

// Validate проверяет конфигурацию реплики каталога
func (c *Directory) Validate() error {
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	if _, err := url.ParseRequestURI(c.AdvertiseURL); err != nil {
		return fmt.Errorf("advertise_url: %w", err)
	}
	if len(c.Nodes.URLs) == 0 {
		return errors.New("nodes.urls must contain at least one storage node")
	}
	for _, u := range c.Nodes.URLs {
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("nodes.urls: %w", err)
		}
	}
	switch c.Coordinator.Kind {
	case KindMemory:
	case KindZooKeeper:
		if len(c.Coordinator.Servers) == 0 {
			return errors.New("coordinator.servers is required for zookeeper")
		}
	default:
		return fmt.Errorf("coordinator.kind must be %q or %q, got %q", KindMemory, KindZooKeeper, c.Coordinator.Kind)
	}
	if c.Placement.Replicas > c.Placement.Candidates {
		return fmt.Errorf("placement.replicas (%d) must not exceed placement.candidates (%d)",
			c.Placement.Replicas, c.Placement.Candidates)
	}
	return c.Bus.Validate()
}
