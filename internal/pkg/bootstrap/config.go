// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config 汇总了服务运行所需的全部外部配置。
// 环境级配置（连接目标、池大小）由部署方通过 yaml 文件提供。
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"app"`

	Infra struct {
		Mysql struct {
			DSN          string `yaml:"dsn"`
			MaxOpenConns int    `yaml:"maxOpenConns"`
			MaxIdleConns int    `yaml:"maxIdleConns"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers          []string `yaml:"brokers"`
			OrderEventsTopic string   `yaml:"orderEventsTopic"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	Authz struct {
		// Policy 是 CEL 表达式，留空时使用内置的所有权判定逻辑。
		Policy string `yaml:"policy"`
	} `yaml:"authz"`
}

var (
	currentConfig Config
	configOnce    sync.Once
)

// LoadConfig 从 yaml 文件加载配置，路径可被 CONFIG_PATH 环境变量覆盖。
func LoadConfig(defaultPath string) (*Config, error) {
	path := defaultPath
	if v, ok := os.LookupEnv("CONFIG_PATH"); ok {
		path = v
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	configOnce.Do(func() { currentConfig = cfg })
	return &cfg, nil
}

// GetCurrentConfig 返回进程内已加载的配置快照。
func GetCurrentConfig() Config {
	return currentConfig
}
