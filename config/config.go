// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

type Config struct {
	// Filesystem path of the IPC socket clients connect to
	SocketPath string `toml:"socket_path,omitempty"`
	// Whether the echo request is honored. Echo re-broadcasts arbitrary
	// client bytes to every client, so it stays off outside of testing
	EnableEcho bool `toml:"enable_echo,omitempty"`
	// logrus level name (debug, info, warning, error)
	LogLevel string `toml:"log_level,omitempty"`
}

// Default is the configuration used when no file overrides it. The
// socket lands in the user's runtime dir when one exists.
func Default() Config {
	sock := "/dev/shm/sparkle.socket"
	if xdg.RuntimeDir != "" {
		sock = filepath.Join(xdg.RuntimeDir, "sparkle.socket")
	}
	return Config{
		SocketPath: sock,
		LogLevel:   "info",
	}
}

// Load reads a TOML config file over the defaults. A missing file is not
// an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}
