// Command ws_bridge exposes an interactive agent process over a websocket.
// Each connection starts the given command; text frames from the client are
// written to its stdin as lines, and its stdout and stderr lines come back
// as JSON frames.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frame is one line of agent output.
type frame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func main() {
	addr := flag.String("addr", "localhost:8080", "Address to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	level, err := config.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := config.NewLogger(os.Stderr, level, "text")

	cmdArgs := flag.Args()
	if len(cmdArgs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ws_bridge [-addr host:port] <agent command> [args...]")
		os.Exit(2)
	}

	http.Handle("/ws", &bridge{command: cmdArgs, logger: logger})
	logger.Info("websocket bridge listening", "url", "ws://"+*addr+"/ws", "command", cmdArgs)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Error("bridge stopped", "error", err)
		os.Exit(1)
	}
}

type bridge struct {
	command []string
	logger  *slog.Logger
}

func (b *bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	cmd := exec.CommandContext(r.Context(), b.command[0], b.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.logger.Error("stdin pipe", "error", err)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		b.logger.Error("stdout pipe", "error", err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		b.logger.Error("stderr pipe", "error", err)
		return
	}
	if err := cmd.Start(); err != nil {
		b.logger.Error("starting agent", "error", err)
		return
	}
	b.logger.Info("agent started", "pid", cmd.Process.Pid, "remote", r.RemoteAddr)
	defer func() {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	// gorilla/websocket allows one concurrent writer.
	var mu sync.Mutex
	send := func(f frame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, data)
	}
	go b.pump(stdout, "stdout", send)
	go b.pump(stderr, "stderr", send)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			b.logger.Debug("websocket closed", "error", err)
			return
		}
		if _, err := stdin.Write(append(msg, '\n')); err != nil {
			b.logger.Warn("stdin write failed", "error", err)
			return
		}
	}
}

// pump forwards r line by line. A prompt written without a trailing newline
// arrives with the next line.
func (b *bridge) pump(r io.Reader, stream string, send func(frame) error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := send(frame{Type: stream, Data: scanner.Text()}); err != nil {
			b.logger.Debug("websocket write failed", "stream", stream, "error", err)
			return
		}
	}
}
