package config

// Users конфигурация сервиса пользователей
type Users struct {
	Listen string    `yaml:"listen"`
	DBPath string    `yaml:"db_path"`
	Bus    BusConfig `yaml:"bus"`
}

// LoadUsers загружает конфигурацию сервиса пользователей
func LoadUsers(path string) (*Users, error) {
	cfg := &Users{}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Users) setDefaults() {
	if c.Listen == "" {
		c.Listen = ":8090"
	}
	if c.DBPath == "" {
		c.DBPath = "users.db"
	}
	c.Bus.setDefaults()
}

// Validate проверяет конфигурацию сервиса пользователей
func (c *Users) Validate() error {
	return c.Bus.Validate()
}
