package config

import (
	"testing"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c := New()
	is.True(c.GetInt("hash") >= 16)
	is.Equal(c.GetInt("threads"), 1)
	is.Equal(c.GetInt("multipv"), 1)
	is.Equal(c.GetInt("skill-level"), 20)
	is.True(!c.GetBool("own-book"))
}

func TestLoadFlags(t *testing.T) {
	is := is.New(t)
	c := New()
	is.NoErr(c.Load([]string{"--hash", "64", "--threads", "4", "--debug"}))
	is.Equal(c.GetInt("hash"), 64)
	is.Equal(c.GetInt("threads"), 4)
	is.True(c.GetBool("debug"))
}

func TestSetOverrides(t *testing.T) {
	is := is.New(t)
	c := New()
	c.Set("multipv", 3)
	is.Equal(c.GetInt("multipv"), 3)
	c.Set("book-file", "/tmp/b.txt")
	is.Equal(c.GetString("book-file"), "/tmp/b.txt")
}
