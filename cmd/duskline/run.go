package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/duskline/duskline/internal/applog"
	"github.com/duskline/duskline/internal/automation"
	"github.com/duskline/duskline/internal/command"
	"github.com/duskline/duskline/internal/config"
	"github.com/duskline/duskline/internal/control"
	"github.com/duskline/duskline/internal/history"
	"github.com/duskline/duskline/internal/loop"
	"github.com/duskline/duskline/internal/session"
	"github.com/duskline/duskline/internal/termcap"
	"github.com/duskline/duskline/internal/widget"
	"github.com/duskline/duskline/internal/window"
)

// version is set by the release build; #version falls back to a dev
// string when it's empty.
var version = ""

type runOpts struct {
	profileName string
	offline     bool
	headless    bool
	instance    string
}

// runMain wires config, history, the protocol/session stack, the widget
// tree, the optional control socket, and the event loop together, then
// blocks in loop.Run until #quit or a control "quit" request fires (spec
// §6's CLI surface table; §4.12 the event loop itself).
func runMain(opts runOpts) error {
	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return err
	}

	profiles, warnings, err := config.LoadProfiles(config.ProfilePath())
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	hist, err := history.Load(filepath.Join(configDir, "history"))
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	log, err := applog.Open(filepath.Join(configDir, "duskline.log"))
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	for _, w := range warnings {
		log.Warn("config", fmt.Errorf("%s", w))
	}

	attached := !opts.headless && isatty.IsTerminal(os.Stdin.Fd())

	width, height := 80, 24
	var termState *term.State
	if attached {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width, height = w, h
		}
		termState, err = term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("set raw mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), termState)
	}

	out := widget.NewOutput(width, 2000, height-2)
	in := widget.NewInput(width, hist, "main")
	status := widget.NewStatus(width)

	root := window.New(width, height)
	root.AddChild(out.Win, 0, 0)
	root.AddChild(status.Win, 0, height-2)
	root.AddChild(in.Win, 0, height-1)
	screen := window.NewScreen(root)

	sess := session.New(out, in, nil)
	sess.Commands = command.NewProcessor(sess)
	sess.Log = log
	sess.ProfilesPath = config.ProfilePath()
	sess.VersionString = version

	if p := resolveProfile(profiles, opts.profileName); p != nil {
		sess.Mud = p
	}

	tc := termcap.Detect(os.Stdout)
	if !tc.HasColor {
		sess.Disable("ansi")
	}

	var ctrl *control.Server
	if opts.headless || opts.instance != "" {
		runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
		path := control.SocketPath(runtimeDir, config.AppName, opts.instance)
		ctrl, err = control.Listen(path, sess, out)
		if err != nil {
			return fmt.Errorf("bind control socket: %w", err)
		}
		defer ctrl.Close()
	}

	l := loop.New(sess, out, in, status, screen, ctrl)
	sess.OnQuit = func() {
		if err := history.Save(filepath.Join(configDir, "history"), hist); err != nil {
			log.Warn("history", err)
		}
	}

	if attached {
		l.Stdin = os.Stdin
		l.TermOut = os.Stdout
	}

	if opts.offline {
		l.AttachConn(dialOffline())
	} else if sess.Mud != nil {
		if err := sess.Open(sess.Mud.Host, sess.Mud.Port); err != nil {
			sess.SetStatus(fmt.Sprintf("connect failed: %v", err))
		}
	} else if addr := os.Getenv("AUTOCONNECT"); addr != "" {
		if host, port, ok := splitAutoconnect(addr); ok {
			if err := sess.Open(host, port); err != nil {
				sess.SetStatus(fmt.Sprintf("connect failed: %v", err))
			}
		}
	}

	defer log.Close()
	return l.Run()
}

func resolveProfile(profiles []*automation.Profile, name string) *automation.Profile {
	if name == "" {
		return nil
	}
	for _, p := range profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// splitAutoconnect parses the AUTOCONNECT env var's "host:port" form (spec
// §6 env var table).
func splitAutoconnect(addr string) (host string, port int, ok bool) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, false
	}
	return h, n, true
}
