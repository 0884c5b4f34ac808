package feed

import (
	"github.com/kilianp07/outagewatch/core/factory"
	"github.com/kilianp07/outagewatch/core/schedule"
)

var registry = factory.NewRegistry[schedule.Feed]("schedule feed")

// Register adds a feed factory identified by name.
func Register(name string, f factory.Factory[schedule.Feed]) error {
	return registry.Register(name, f)
}

// New creates the feed described by cfg.
func New(cfg factory.ModuleConfig) (schedule.Feed, error) {
	return registry.Create(cfg)
}

func init() {
	_ = Register("file", func(conf map[string]any) (schedule.Feed, error) {
		var c struct {
			Path   string `json:"path"`
			Format string `json:"format"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		f := NewFileFeed(c.Path)
		if c.Format != "" {
			f.Format = Format(c.Format)
		}
		return f, nil
	})
	_ = Register("http", func(conf map[string]any) (schedule.Feed, error) {
		var c HTTPConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewHTTPFeed(c)
	})
	_ = Register("redis", func(conf map[string]any) (schedule.Feed, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRedisFeed(c), nil
	})
}
