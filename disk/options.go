package disk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options is the host-facing persistence configuration, usually loaded from
// a YAML file.
type Options struct {
	// WALPath locates the write-ahead log file.
	WALPath string `yaml:"wal_path"`

	// SyncOnAppend fsyncs every appended record before returning.
	SyncOnAppend bool `yaml:"sync_on_append"`

	// ReservedRoots names root children that survive a Load.
	ReservedRoots []string `yaml:"reserved_roots"`

	// ReplayBatch sizes signal-history replay batches for subscribers.
	ReplayBatch int `yaml:"replay_batch"`
}

// DefaultOptions returns the configuration used when no file is given.
func DefaultOptions() Options {
	return Options{
		WALPath:      "graph.wal",
		SyncOnAppend: true,
		ReplayBatch:  100,
	}
}

// LoadOptions reads Options from a YAML file. Absent keys keep their
// defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing options: %w", err)
	}
	if opts.ReplayBatch <= 0 {
		opts.ReplayBatch = DefaultOptions().ReplayBatch
	}
	return opts, nil
}
