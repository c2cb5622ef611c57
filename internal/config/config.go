package config

import (
	"os"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server      Server      `yaml:"server"`
	ProofSource ProofSource `yaml:"proofSource"`
	Jobs        Jobs        `yaml:"jobs"`
}

type Server struct {
	ListenAddr    string `yaml:"listenAddr"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type ProofSource struct {
	ApiBase      string `yaml:"apiBase"`
	PollSchedule string `yaml:"pollSchedule"`
}

type Jobs struct {
	SweepSchedule string `yaml:"sweepSchedule"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8000"
	}
	if config.ProofSource.ApiBase == "" {
		config.ProofSource.ApiBase = "https://alfa-leetcode-api.onrender.com"
	}
	if config.ProofSource.PollSchedule == "" {
		config.ProofSource.PollSchedule = "*/5 * * * *"
	}
	if config.Jobs.SweepSchedule == "" {
		config.Jobs.SweepSchedule = "* * * * *"
	}

	return config, nil
}
