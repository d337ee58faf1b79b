// Package config wraps viper with the engine defaults. The UCI option
// registry writes through to the same instance, so command line flags,
// environment (ZUGZWANG_*) and setoption all land in one place.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zugzwang-chess/zugzwang/tt"
)

type Config struct {
	v *viper.Viper
}

func New() *Config {
	c := &Config{v: viper.New()}
	c.v.SetEnvPrefix("zugzwang")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", " ", "_"))
	c.v.AutomaticEnv()

	c.v.SetDefault("hash", tt.DefaultMB())
	c.v.SetDefault("threads", 1)
	c.v.SetDefault("multipv", 1)
	c.v.SetDefault("skill-level", 20)
	c.v.SetDefault("uci-chess960", false)
	c.v.SetDefault("own-book", false)
	c.v.SetDefault("book-file", "book.txt")
	c.v.SetDefault("best-book-move", false)
	c.v.SetDefault("use-search-log", false)
	c.v.SetDefault("search-log-filename", "search.log")
	c.v.SetDefault("min-split-depth", 4)
	c.v.SetDefault("fake-split", false)
	c.v.SetDefault("debug", false)
	c.v.SetDefault("cpu-profile", "")
	return c
}

// Load binds command line flags of the form --hash 128 --threads 4.
func (c *Config) Load(args []string) error {
	fs := pflag.NewFlagSet("zugzwang", pflag.ContinueOnError)
	fs.Int("hash", c.GetInt("hash"), "transposition table size in MB")
	fs.Int("threads", c.GetInt("threads"), "number of search threads")
	fs.Bool("debug", false, "debug logging")
	fs.String("cpu-profile", "", "write a CPU profile to this path")
	fs.Bool("own-book", c.GetBool("own-book"), "use the opening book")
	fs.String("book-file", c.GetString("book-file"), "opening book path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.v.BindPFlags(fs)
}

func (c *Config) GetBool(key string) bool     { return c.v.GetBool(key) }
func (c *Config) GetInt(key string) int       { return c.v.GetInt(key) }
func (c *Config) GetString(key string) string { return c.v.GetString(key) }

func (c *Config) Set(key string, value any) { c.v.Set(key, value) }

// AllSettings is handy for the startup log line.
func (c *Config) AllSettings() map[string]any { return c.v.AllSettings() }
