package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/edgard/tgstats/internal/telegramcli"
)

func TestRunRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "missing.yaml")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no name", args: []string{"--config", cfgPath}},
		{name: "short name", args: []string{"--config", cfgPath, "--db-dir", dir, "x"}},
		{name: "bad id", args: []string{"--config", cfgPath, "--db-dir", dir, "--initdb", "--id", "xyz", "chat"}},
		{name: "missing id", args: []string{"--config", cfgPath, "--db-dir", dir, "--initdb", "chat"}},
		{name: "not initialized", args: []string{"--config", cfgPath, "--db-dir", dir, "chat"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := run(context.Background(), tc.args, io.Discard, io.Discard); got != 1 {
				t.Errorf("run(%v) = %d, want 1", tc.args, got)
			}
		})
	}
}

func TestListDialogs(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		body := `[{"id":"$01000000aaaa","print_name":"Book_Club"}]`
		_, _ = io.WriteString(conn, "ANSWER "+strconv.Itoa(len(body))+"\n"+body+"\n")
	}()

	client := telegramcli.New(ln.Addr().String(), 5*time.Second, nil)
	var out bytes.Buffer
	if err := listDialogs(context.Background(), client, &out); err != nil {
		t.Fatalf("listDialogs() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "ID") || !strings.Contains(got, "$01000000aaaa  Book Club") {
		t.Errorf("listDialogs() output = %q", got)
	}
}

