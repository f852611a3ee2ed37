package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    Server    `json:"server" yaml:"server" mapstructure:"server"`
	Storage   Storage   `json:"storage" yaml:"storage" mapstructure:"storage"`
	Providers Providers `json:"providers" yaml:"providers" mapstructure:"providers"`
	Imports   Imports   `json:"imports" yaml:"imports" mapstructure:"imports"`
}

type Server struct {
	Port int `json:"port" yaml:"port" mapstructure:"port"`
}

// Storage configuration is assumed to be for sqlite database only currently
type Storage struct {
	FilePath string `json:"filePath" yaml:"filePath" mapstructure:"filePath"`
}

// Providers holds credentials for the metadata sources. A provider with no
// credentials configured is not registered.
type Providers struct {
	TMDB      TMDB      `json:"tmdb" yaml:"tmdb" mapstructure:"tmdb"`
	MAL       MAL       `json:"mal" yaml:"mal" mapstructure:"mal"`
	IGDB      IGDB      `json:"igdb" yaml:"igdb" mapstructure:"igdb"`
	ComicVine ComicVine `json:"comicvine" yaml:"comicvine" mapstructure:"comicvine"`
	Hardcover Hardcover `json:"hardcover" yaml:"hardcover" mapstructure:"hardcover"`
}

type TMDB struct {
	APIKey string `json:"apiKey" yaml:"apiKey" mapstructure:"apiKey"`
}

type MAL struct {
	ClientID string `json:"clientId" yaml:"clientId" mapstructure:"clientId"`
}

type IGDB struct {
	ClientID     string `json:"clientId" yaml:"clientId" mapstructure:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret" mapstructure:"clientSecret"`
}

type ComicVine struct {
	APIKey string `json:"apiKey" yaml:"apiKey" mapstructure:"apiKey"`
}

type Hardcover struct {
	Token string `json:"token" yaml:"token" mapstructure:"token"`
}

// Imports houses credentials for list import services and the recurring
// import scheduler.
type Imports struct {
	ScheduleInterval time.Duration `json:"scheduleInterval" yaml:"scheduleInterval" mapstructure:"scheduleInterval"`
	CleanupPeriod    time.Duration `json:"cleanupPeriod" yaml:"cleanupPeriod" mapstructure:"cleanupPeriod"`
	Trakt            Trakt         `json:"trakt" yaml:"trakt" mapstructure:"trakt"`
	Simkl            Simkl         `json:"simkl" yaml:"simkl" mapstructure:"simkl"`
	Steam            Steam         `json:"steam" yaml:"steam" mapstructure:"steam"`
}

type Trakt struct {
	APIKey string `json:"apiKey" yaml:"apiKey" mapstructure:"apiKey"`
}

type Simkl struct {
	ClientID    string `json:"clientId" yaml:"clientId" mapstructure:"clientId"`
	AccessToken string `json:"accessToken" yaml:"accessToken" mapstructure:"accessToken"`
}

type Steam struct {
	APIKey string `json:"apiKey" yaml:"apiKey" mapstructure:"apiKey"`
}

type ConfigUnmarshaler interface {
	ReadInConfig() error
	Unmarshal(any, ...viper.DecoderConfigOption) error
	ConfigFileUsed() string
}

// New reads a new configuration
func New(cu ConfigUnmarshaler) (Config, error) {
	var c Config

	if cu.ConfigFileUsed() != "" {
		err := cu.ReadInConfig()
		if err != nil {
			return c, err
		}
	}

	err := cu.Unmarshal(&c)
	return c, err
}
