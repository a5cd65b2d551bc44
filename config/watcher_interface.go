package config

// Watcher is the interface for components that provide the current
// configuration and notify subscribers when it changes.
type Watcher interface {
	GetCurrentConfig() *Config
	Subscribe() <-chan *Config
	Close() error
}
