/*
 * MPK
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package config contains the MPK repository configuration.

A repository directory holds an mpk.toml configuration file, the mpk.db
store directory and the media sub-directories. Build() creates the
directory tree of a new repository.
*/
package config

import (
	"io"
	"os"
	"path/filepath"

	"devt.de/krotik/common/fileutil"
	"github.com/BurntSushi/toml"
)

/*
ConfigFile is the name of the configuration file of a repository.
*/
const ConfigFile = "mpk.toml"

/*
DBDir is the name of the store directory of a repository.
*/
const DBDir = "mpk.db"

/*
mediaDirs lists the media sub-directories of a repository.
*/
var mediaDirs = []string{"analysis", "samples", "sesh", "plugins", "patches", "tracks"}

/*
Config is the MPK configuration.
*/
type Config struct {
	Fs     FsConfig     `toml:"fs"`
	Db     DbConfig     `toml:"db"`
	Engine EngineConfig `toml:"engine"`
	Metro  MetroConfig  `toml:"metro"`
	Sesh   SeshConfig   `toml:"sesh"`
	Net    NetConfig    `toml:"net"`
}

/*
FsConfig holds the file-system roots of a repository.
*/
type FsConfig struct {
	Root string `toml:"root"`
}

/*
DbConfig holds the store settings.
*/
type DbConfig struct {
	Path        string `toml:"path"`
	Mode        string `toml:"mode"` // "small" or "fast"
	Compression bool   `toml:"compression"`
	Level       int    `toml:"compression_level"`
}

/*
EngineConfig holds the engine settings.
*/
type EngineConfig struct {
	Socket     string `toml:"socket"`
	SockAddr   string `toml:"sock_addr"`
	Proxy      string `toml:"proxy"`
	LogLevel   string `toml:"loglevel"`
	TimeoutMs  int    `toml:"timeout_ms"`
}

/*
MetroConfig holds the metronome defaults.
*/
type MetroConfig struct {
	Bpm int    `toml:"bpm"`
	Sig string `toml:"time_signature"`
}

/*
SeshConfig holds the session management settings.
*/
type SeshConfig struct {
	Client string `toml:"client"`
}

/*
NetConfig holds credential slots for the external http clients.
*/
type NetConfig struct {
	FreesoundClientID     string `toml:"freesound_client_id"`
	FreesoundClientSecret string `toml:"freesound_client_secret"`
	AcoustidAPIKey        string `toml:"acoustid_api_key"`
	MusicbrainzUser       string `toml:"musicbrainz_user"`
	MusicbrainzPass       string `toml:"musicbrainz_pass"`
}

/*
Default returns the default configuration for a repository root.
*/
func Default(root string) *Config {
	return &Config{
		Fs: FsConfig{Root: root},
		Db: DbConfig{
			Path: filepath.Join(root, DBDir),
			Mode: "small",
		},
		Engine: EngineConfig{
			Socket:    "127.0.0.1:9921",
			SockAddr:  "127.0.0.1:9922",
			LogLevel:  "Info",
			TimeoutMs: 1000,
		},
		Metro: MetroConfig{Bpm: 120, Sig: "4/4"},
	}
}

/*
Load reads a configuration file.
*/
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

/*
Encode writes the configuration to a writer.
*/
func (cfg *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}

/*
Write stores the configuration. A directory path is extended with the
configuration file name.
*/
func (cfg *Config) Write(path string) error {
	if ok, _ := fileutil.IsDir(path); ok {
		path = filepath.Join(path, ConfigFile)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return cfg.Encode(f)
}

/*
Build creates the directory tree of the repository.
*/
func (cfg *Config) Build() error {
	root := cfg.Fs.Root

	if ok, _ := fileutil.PathExists(root); !ok {
		if err := os.MkdirAll(root, 0770); err != nil {
			return err
		}
	}

	for _, dir := range mediaDirs {
		path := filepath.Join(root, dir)

		if ok, _ := fileutil.PathExists(path); !ok {
			if err := os.Mkdir(path, 0770); err != nil {
				return err
			}
		}
	}

	return nil
}

/*
MediaDirs returns the media sub-directories of the repository.
*/
func (cfg *Config) MediaDirs() []string {
	ret := make([]string, len(mediaDirs))

	for i, dir := range mediaDirs {
		ret[i] = filepath.Join(cfg.Fs.Root, dir)
	}

	return ret
}

/*
SampleDir returns the sample directory of the repository.
*/
func (cfg *Config) SampleDir() string {
	return filepath.Join(cfg.Fs.Root, "samples")
}

/*
TrackDir returns the track directory of the repository.
*/
func (cfg *Config) TrackDir() string {
	return filepath.Join(cfg.Fs.Root, "tracks")
}
