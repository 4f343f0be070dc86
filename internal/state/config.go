package state

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
	"github.com/temoto/mk2pvrouter/helpers"
	"github.com/temoto/mk2pvrouter/log2"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

const (
	DefaultUpdateInterval = 1 * time.Second
	DefaultLoopInterval   = 16 * time.Millisecond
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Uart   uart_config.Config `hcl:"uart"`
	Router struct {
		ChecksumAreaEnd  int  `hcl:"checksum_area_end"`
		UpdateIntervalMs int  `hcl:"update_interval_ms"`
		LoopIntervalMs   int  `hcl:"loop_interval_ms"`
		LogDebug         bool `hcl:"log_debug"`
	} `hcl:"router"`
	Sensors []*SensorConfig    `hcl:"sensor"`
	Tele    tele_config.Config `hcl:"tele"`
	Http    struct {
		Listen string `hcl:"listen"`
	} `hcl:"http"`

	_copy_guard sync.Mutex //nolint:unused
}

type SensorConfig struct {
	Tag      string `hcl:"tag,key"`
	Name     string `hcl:"name"`
	StaleSec int    `hcl:"stale_sec"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) UpdateInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.Router.UpdateIntervalMs, DefaultUpdateInterval)
}
func (c *Config) LoopInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.Router.LoopIntervalMs, DefaultLoopInterval)
}

// SensorTags returns tags in config order.
func (c *Config) SensorTags() []string {
	ts := make([]string, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		ts = append(ts, s.Tag)
	}
	return ts
}

func (c *Config) SetDefaults() {
	c.Uart.SetDefaults()
	if c.Router.ChecksumAreaEnd == 0 {
		c.Router.ChecksumAreaEnd = pvrouter.DefaultChecksumAreaEnd
	}
	c.Tele.SetDefaults()
	if len(c.Tele.Tags) == 0 {
		c.Tele.Tags = c.SensorTags()
	}
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	if err := c.Uart.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Router.ChecksumAreaEnd < 0 {
		errs = append(errs, errors.NotValidf("router.checksum_area_end=%d", c.Router.ChecksumAreaEnd))
	}
	if c.Router.UpdateIntervalMs < 0 || c.Router.LoopIntervalMs < 0 {
		errs = append(errs, errors.NotValidf("router interval update=%d loop=%d", c.Router.UpdateIntervalMs, c.Router.LoopIntervalMs))
	}
	seen := make(map[string]struct{}, len(c.Sensors))
	for _, s := range c.Sensors {
		if s.Tag == "" || len(s.Tag) >= pvrouter.TagSize {
			errs = append(errs, errors.NotValidf("sensor tag=%q", s.Tag))
			continue
		}
		if _, ok := seen[s.Tag]; ok {
			errs = append(errs, errors.NotValidf("sensor duplicate tag=%s", s.Tag))
		}
		seen[s.Tag] = struct{}{}
	}
	if err := c.Tele.Validate(); err != nil {
		errs = append(errs, err)
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig reads names in order, later values override earlier.
// Result has defaults applied and is validated.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		if dir != "" {
			osfs.SetBase(dir)
		}
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if len(errs) != 0 {
		return c, helpers.FoldErrors(errs)
	}
	c.SetDefaults()
	return c, c.Validate()
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
