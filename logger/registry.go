package logger

import "sync"

// Component loggers handed out by Get are derived from the global logger.
// They are cached per name and re-derived after SetGlobalLogger, so
// packages may call Get at construction time, before Init has run.
var registry = struct {
	mu        sync.Mutex
	overrides map[string]*Logger
	derived   map[string]*Logger
	base      *Logger
}{
	overrides: make(map[string]*Logger),
	derived:   make(map[string]*Logger),
}

// Register pins the logger returned by Get(name).
func Register(name string, l *Logger) {
	registry.mu.Lock()
	registry.overrides[name] = l
	registry.mu.Unlock()
}

// Get returns the logger for a component name.
func Get(name string) *Logger {
	global := GetGlobalLogger()

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if l, ok := registry.overrides[name]; ok {
		return l
	}
	if registry.base != global {
		registry.base = global
		clear(registry.derived)
	}
	l, ok := registry.derived[name]
	if !ok {
		l = global.WithComponent(name)
		registry.derived[name] = l
	}
	return l
}
