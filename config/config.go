package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Spotify Spotify `yaml:"spotify"`
}

func (c *Config) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Dict("log", c.Log.ToDict()).
		Dict("spotify", c.Spotify.ToDict())
}

func (c *Config) setDefaults() {
	c.Log.setDefaults()
	c.Spotify.setDefaults()
}

func (c *Config) validate() error {
	if err := c.Log.validate(); nil != err {
		return fmt.Errorf("log config validation failed: %v", err)
	}

	if err := c.Spotify.validate(); nil != err {
		return fmt.Errorf("spotify config validation failed: %v", err)
	}

	return nil
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Log) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("level", c.Level).
		Str("format", c.Format)
}

func (c *Log) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "pretty"
	}
}

func (c *Log) validate() error {
	if !slices.Contains([]string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}, c.Level) {
		return fmt.Errorf(
			"level must be one of: trace, debug, info, warn, error, fatal, panic, got: %s",
			c.Level,
		)
	}

	if !slices.Contains([]string{"json", "pretty"}, c.Format) {
		return fmt.Errorf("format must be 'json' or 'pretty', got: %s", c.Format)
	}

	return nil
}

type Spotify struct {
	HelperBin       string     `yaml:"helper_bin"`
	CredentialsFile string     `yaml:"credentials_file"`
	LedgerFile      string     `yaml:"ledger_file"`
	MusicDir        string     `yaml:"music_dir"`
	EpisodesDir     string     `yaml:"episodes_dir"`
	OutputFormat    string     `yaml:"output_format"`
	ForcePremium    bool       `yaml:"force_premium"`
	AlbumInFilename bool       `yaml:"album_in_filename"`
	// RequireExistingDirs disables output directory creation: downloads
	// into a directory that does not already exist fail instead.
	RequireExistingDirs bool       `yaml:"require_existing_dirs"`
	SearchLimit         int        `yaml:"search_limit"`
	Downloader          Downloader `yaml:"downloader"`
}

func (c *Spotify) ToDict() *zerolog.Event {
	return zerolog.
		Dict().
		Str("helper_bin", c.HelperBin).
		Str("credentials_file", c.CredentialsFile).
		Str("ledger_file", c.LedgerFile).
		Str("music_dir", c.MusicDir).
		Str("episodes_dir", c.EpisodesDir).
		Str("output_format", c.OutputFormat).
		Bool("force_premium", c.ForcePremium).
		Bool("album_in_filename", c.AlbumInFilename).
		Bool("require_existing_dirs", c.RequireExistingDirs).
		Int("search_limit", c.SearchLimit).
		Dict("downloader", c.Downloader.ToDict())
}

func (c *Spotify) setDefaults() {
	if c.HelperBin == "" {
		c.HelperBin = "librespot-helper"
	}

	if c.CredentialsFile == "" {
		c.CredentialsFile = "./creds/credentials.json"
	}

	if c.LedgerFile == "" {
		c.LedgerFile = "./archive.db"
	}

	if c.MusicDir == "" {
		c.MusicDir = "./Music"
	}

	if c.EpisodesDir == "" {
		c.EpisodesDir = "./Episodes"
	}

	if c.OutputFormat == "" {
		c.OutputFormat = "mp3"
	}

	if c.SearchLimit == 0 {
		c.SearchLimit = 10
	}

	c.Downloader.setDefaults()
}

func (c *Spotify) validate() error {
	if !slices.Contains([]string{"mp3", "ogg", "flac", "m4a", "opus", "wav"}, c.OutputFormat) {
		return fmt.Errorf(
			"output_format must be one of: mp3, ogg, flac, m4a, opus, wav, got: %s",
			c.OutputFormat,
		)
	}

	if c.SearchLimit < 0 || c.SearchLimit > 50 {
		return errors.New("search_limit must be between 1 and 50")
	}

	if dir := filepath.Dir(c.CredentialsFile); dir != "." {
		if i, err := os.Stat(dir); nil == err && !i.IsDir() {
			return errors.New("credentials_file parent must be a directory")
		}
	}

	if err := c.Downloader.validate(); nil != err {
		return fmt.Errorf("downloader config validation failed: %v", err)
	}

	return nil
}

type Downloader struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// AntibanWaitSeconds is the base pause applied after every completed
	// download.
	AntibanWaitSeconds int      `yaml:"antiban_wait_seconds"`
	Timeouts           Timeouts `yaml:"timeouts"`
}

func (c *Downloader) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Float64("requests_per_second", c.RequestsPerSecond).
		Int("antiban_wait_seconds", c.AntibanWaitSeconds).
		Dict("timeouts", c.Timeouts.ToDict())
}

func (c *Downloader) setDefaults() {
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 10
	}

	if c.AntibanWaitSeconds == 0 {
		c.AntibanWaitSeconds = 5
	}

	c.Timeouts.setDefaults()
}

func (c *Downloader) validate() error {
	if c.RequestsPerSecond < 0 {
		return errors.New("requests_per_second must be greater than 0")
	}

	if c.AntibanWaitSeconds < 0 {
		return errors.New("antiban_wait_seconds must not be negative")
	}

	if err := c.Timeouts.validate(); nil != err {
		return fmt.Errorf("timeouts config validation failed: %v", err)
	}

	return nil
}

type Timeouts struct {
	Lookup         int `yaml:"lookup"`
	GetPagedItems  int `yaml:"get_paged_items"`
	DownloadCover  int `yaml:"download_cover"`
	OpenStream     int `yaml:"open_stream"`
	EncodeDeadline int `yaml:"encode_deadline"`
}

func (c *Timeouts) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Int("lookup", c.Lookup).
		Int("get_paged_items", c.GetPagedItems).
		Int("download_cover", c.DownloadCover).
		Int("open_stream", c.OpenStream).
		Int("encode_deadline", c.EncodeDeadline)
}

func (c *Timeouts) setDefaults() {
	if c.Lookup == 0 {
		c.Lookup = 5
	}

	if c.GetPagedItems == 0 {
		c.GetPagedItems = 5
	}

	if c.DownloadCover == 0 {
		c.DownloadCover = 10
	}

	if c.OpenStream == 0 {
		c.OpenStream = 10
	}

	if c.EncodeDeadline == 0 {
		c.EncodeDeadline = 120
	}
}

func (c *Timeouts) validate() error {
	if c.Lookup < 0 {
		return errors.New("lookup must be greater than 0")
	}

	if c.GetPagedItems < 0 {
		return errors.New("get_paged_items must be greater than 0")
	}

	if c.DownloadCover < 0 {
		return errors.New("download_cover must be greater than 0")
	}

	if c.OpenStream < 0 {
		return errors.New("open_stream must be greater than 0")
	}

	if c.EncodeDeadline < 0 {
		return errors.New("encode_deadline must be greater than 0")
	}

	return nil
}

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(lo.Ternary(len(filename) > 0, filename, "config.yaml"))
	if nil != err {
		if errors.Is(err, os.ErrNotExist) && filename == "" {
			var conf Config
			conf.setDefaults()

			return &conf, nil
		}

		return nil, fmt.Errorf("failed to read config file %s: %v", filename, err)
	}

	var conf Config
	if err := yaml.Unmarshal(data, &conf); nil != err {
		return nil, fmt.Errorf("failed to parse config file %s: %v", filename, err)
	}

	conf.setDefaults()

	if err := conf.validate(); nil != err {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return &conf, nil
}
