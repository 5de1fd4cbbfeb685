// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dogelands/sparkle/compositor"
	"github.com/dogelands/sparkle/config"
	"github.com/dogelands/sparkle/loop"
	"github.com/dogelands/sparkle/platform/headless"
)

var (
	configPath = flag.String("config", "config.toml", "Path to the config file")
	socketPath = flag.String("socket", "", "Override the configured IPC socket path")
	help       = flag.Bool("help", false, "Show the help message")
)

func main() {
	flag.Parse()
	if *help {
		helpMessage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	mainLoop, err := loop.New()
	if err != nil {
		logrus.WithError(err).Fatal("initializing event loop")
	}

	// This build carries no native windowing backend; the compositor
	// serves its socket and keeps rendering idle until a platform that
	// emits a window is linked in.
	plat := headless.New()

	comp, err := compositor.New(mainLoop, plat, nil, compositor.Options{
		SocketPath: cfg.SocketPath,
		EnableEcho: cfg.EnableEcho,
	})
	if err != nil {
		logrus.WithError(err).Fatal("initializing compositor")
	}

	if err := plat.Start(); err != nil {
		logrus.WithError(err).Fatal("starting platform")
	}

	go replRunner(comp, mainLoop)

	logrus.WithField("socket", cfg.SocketPath).Infoln("Running compositor")
	mainLoop.Run()

	comp.Close()
	if err := plat.Stop(); err != nil {
		logrus.WithError(err).Errorln("stopping platform")
	}
	mainLoop.Close()
}

func helpMessage() {
	fmt.Println("---- Help message for sparkle ----")
	fmt.Println("\nsparkle multiplexes client pixel surfaces onto one output window")
	fmt.Println("and routes input events back over its socket")
	fmt.Println("\nFlags:")
	fmt.Println("\t-config: Path to the config file. Default is \"config.toml\"")
	fmt.Println("\t-socket: Override the configured IPC socket path")
	fmt.Println("\t-help: Show this help message")
	fmt.Println("\nRepl commands (on stdin):")
	fmt.Println("\t- surfaces: List registered surfaces")
	fmt.Println("\t- inspect <surface>: Show one surface's state")
	fmt.Println("\t- clients: Number of connected clients")
	fmt.Println("\t- quit: Stop the compositor")
}
