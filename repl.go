package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dogelands/sparkle/compositor"
	"github.com/dogelands/sparkle/loop"
	"github.com/dogelands/sparkle/repl"
	"github.com/dogelands/sparkle/util"
	"github.com/dogelands/sparkle/util/wrappers"
)

// onLoop runs fn on the compositor loop and waits for its answer. All
// registry state is loop-affine, so the repl thread must not touch it
// directly.
func onLoop(l *loop.Loop, fn func() string) string {
	result := make(chan string, 1)
	l.Queue(func() {
		result <- fn()
	})
	select {
	case s := <-result:
		return s
	case <-time.After(time.Second):
		return "compositor loop is not responding"
	}
}

func replRunner(comp *compositor.Compositor, mainLoop *loop.Loop) {
	// Give repl some wrappers around stdin and stdout so that it closes those instead of stdin & stdout themselves
	commandRepl := repl.NewRepl(wrappers.NewReaderWrapper(os.Stdin), wrappers.NewWriterWrapper(os.Stdout))
	logrus.Debugln("Starting repl")
	_ = commandRepl.Run(func(input string, r *repl.Repl) (string, error) {
		switch {
		case input == "quit":
			mainLoop.Exit()
			return "Quitting", errors.New("normal stop")

		case input == "surfaces":
			return onLoop(mainLoop, func() string {
				names := comp.Registry().Names()
				if len(names) == 0 {
					return "No surfaces registered"
				}
				return strings.Join(names, "\n")
			}), nil

		case input == "clients":
			return onLoop(mainLoop, func() string {
				return fmt.Sprintf("%d client(s) connected", comp.Server().Connections())
			}), nil

		case input == "display":
			return onLoop(mainLoop, func() string {
				return fmt.Sprintf("Display: %dx%d", comp.DisplayWidth(), comp.DisplayHeight())
			}), nil

		case strings.HasPrefix(input, "inspect "):
			var cmd, target string
			util.Unpack(strings.SplitN(input, " ", 2), &cmd, &target)
			_ = cmd
			return onLoop(mainLoop, func() string {
				for _, s := range comp.Registry().Surfaces() {
					if s.Name() != target {
						continue
					}
					pos := s.Position()
					texW, texH := s.TextureSize()
					return fmt.Sprintf(
						"Surface %s: position (%d:%d)-(%d:%d), strata %d, alpha %.2f, source %dx%d, damage %+v",
						s.Name(),
						pos.From.X, pos.From.Y, pos.To.X, pos.To.Y,
						s.Strata(), s.Alpha(), texW, texH, s.Damage())
				}
				return fmt.Sprintf("Surface %s not registered", target)
			}), nil

		default:
			return "Unknown command. Known: surfaces, inspect <surface>, clients, display, quit", nil
		}
	})
}
