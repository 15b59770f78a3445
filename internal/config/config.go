// Package config загружает YAML-конфигурацию сервисов.
//
// Каждое отсутствующее поле получает значение по умолчанию; флаги
// командной строки переопределяют загруженные значения в cmd/*.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Виды шины и координатора
const (
	KindMemory    = "memory"
	KindKafka     = "kafka"
	KindZooKeeper = "zookeeper"
)

// BusConfig шина объявлений
type BusConfig struct {
	Kind    string   `yaml:"kind"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

func (c *BusConfig) setDefaults() {
	if c.Kind == "" {
		c.Kind = KindMemory
	}
	if c.Topic == "" {
		c.Topic = "users"
	}
}

// Validate проверяет параметры шины
func (c *BusConfig) Validate() error {
	switch c.Kind {
	case KindMemory:
		return nil
	case KindKafka:
		if len(c.Brokers) == 0 {
			return errors.New("bus.brokers is required for kafka")
		}
		return nil
	default:
		return fmt.Errorf("bus.kind must be %q or %q, got %q", KindMemory, KindKafka, c.Kind)
	}
}

type loadable interface {
	setDefaults()
	Validate() error
}

// load читает файл path (если задан), применяет умолчания и проверяет результат
func load(path string, cfg loadable) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func defaultDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
