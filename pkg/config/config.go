// Package config loads gateway configuration from environment variables,
// an optional YAML overlay file, and flag defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeInfo describes one storage node in the static registry (spec §4.2).
type NodeInfo struct {
	NodeID  string `yaml:"node_id"`
	BaseURL string `yaml:"base_url"`
	Region  string `yaml:"region"`
}

// Config is the fully resolved gateway configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	Nodes []NodeInfo `yaml:"nodes"`

	DBPath      string `yaml:"db_path"`
	ScratchDir  string `yaml:"scratch_dir"`

	MaxVersionsPerKey    int           `yaml:"max_versions_per_key"`
	RetentionDays        int           `yaml:"retention_days"`
	HealthInterval        time.Duration `yaml:"health_interval"`
	GCInterval             time.Duration `yaml:"gc_interval"`
	RateLimitRPM          int           `yaml:"rate_limit_rpm"`

	DefaultMaxSizeBytes int64 `yaml:"default_max_size_bytes"`
	DefaultMaxObjects   int   `yaml:"default_max_objects"`

	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period"`
}

// Default returns a config with spec-mandated defaults (§4.8, §4.9, §4.10, §5).
func Default() Config {
	return Config{
		ListenAddr:          ":8080",
		DBPath:              "./data/planetstore.db",
		ScratchDir:          "./data/scratch",
		MaxVersionsPerKey:   5,
		RetentionDays:       7,
		HealthInterval:      30 * time.Second,
		GCInterval:          time.Hour,
		RateLimitRPM:        100,
		DefaultMaxSizeBytes: 10 * 1024 * 1024 * 1024,
		DefaultMaxObjects:   10000,
		ShutdownGracePeriod: 10 * time.Second,
	}
}

// Load builds a Config starting from Default(), applying an optional YAML
// file at path (if non-empty and present), then environment overrides —
// in that precedence order, matching the env-first style of
// original_source/gateway/config.py.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SCRATCH_DIR"); v != "" {
		cfg.ScratchDir = v
	}
	if v := os.Getenv("STORAGE_NODES"); v != "" {
		nodes, err := ParseNodes(v, os.Getenv("REGIONS"))
		if err != nil {
			return cfg, err
		}
		cfg.Nodes = nodes
	}
	if len(cfg.Nodes) == 0 {
		nodes, _ := ParseNodes(
			"node1:http://localhost:9001,node2:http://localhost:9002,"+
				"node3:http://localhost:9003,node4:http://localhost:9004,"+
				"node5:http://localhost:9005,node6:http://localhost:9006",
			"us-east:node1,node2;eu-west:node3,node4;ap-south:node5,node6",
		)
		cfg.Nodes = nodes
	}
	if v := os.Getenv("MAX_VERSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxVersionsPerKey = n
		}
	}
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetentionDays = n
		}
	}
	if v := os.Getenv("HEALTH_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HealthInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("GC_INTERVAL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GCInterval = time.Duration(n) * time.Hour
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitRPM = n
		}
	}
	return cfg, nil
}

// ParseNodes parses "node_id:url,node_id:url,..." plus an optional
// "region:node_id,node_id;region:node_id,..." region grouping string,
// following the split-on-first-colon convention of
// original_source/gateway/config.py's parse_nodes.
func ParseNodes(nodesEnv, regionsEnv string) ([]NodeInfo, error) {
	nodeRegion := map[string]string{}
	if regionsEnv != "" {
		for _, group := range strings.Split(regionsEnv, ";") {
			group = strings.TrimSpace(group)
			if group == "" {
				continue
			}
			idx := strings.Index(group, ":")
			if idx < 0 {
				continue
			}
			region := group[:idx]
			for _, id := range strings.Split(group[idx+1:], ",") {
				id = strings.TrimSpace(id)
				if id != "" {
					nodeRegion[id] = region
				}
			}
		}
	}

	var nodes []NodeInfo
	for _, part := range strings.Split(nodesEnv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, ":")
		if idx < 0 {
			return nil, fmt.Errorf("invalid node entry %q: expected node_id:url", part)
		}
		id := part[:idx]
		url := part[idx+1:]
		if id == "" || url == "" {
			return nil, fmt.Errorf("invalid node entry %q: expected node_id:url", part)
		}
		nodes = append(nodes, NodeInfo{NodeID: id, BaseURL: url, Region: nodeRegion[id]})
	}
	return nodes, nil
}
