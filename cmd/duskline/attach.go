package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/duskline/duskline/internal/config"
	"github.com/duskline/duskline/internal/control"
)

// runAttach implements "duskline --attach NAME": a terminal-free control
// client that dials the named instance's control socket, attaches, starts
// a buffer stream, and turns stdin lines into "send" requests (spec §6
// "--attach NAME"; §4.11 the control wire protocol).
func runAttach(instance string) error {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	path := control.SocketPath(runtimeDir, config.AppName, instance)

	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("dial control socket %s: %w", path, err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	if err := enc.Encode(control.Request{Cmd: "attach"}); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	var resp control.Response
	if err := dec.Decode(&resp); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if resp.Event == "Error" {
		return fmt.Errorf("attach rejected: %s", resp.Message)
	}

	if err := enc.Encode(control.Request{Cmd: "stream", IntervalMs: 500}); err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	go func() {
		for {
			var r control.Response
			if err := dec.Decode(&r); err != nil {
				return
			}
			printAttachResponse(r)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := enc.Encode(control.Request{Cmd: "send", Data: line}); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return scanner.Err()
}

func printAttachResponse(r control.Response) {
	switch v := r.Lines.(type) {
	case []interface{}:
		for _, line := range v {
			fmt.Println(line)
		}
	default:
		if r.Message != "" {
			fmt.Fprintln(os.Stderr, r.Message)
		}
	}
}
