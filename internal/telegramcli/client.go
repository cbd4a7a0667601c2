// Package telegramcli talks to a running telegram-cli daemon through its
// JSON command socket (tg --json -P <port>). Every command opens a fresh
// connection, writes one line and reads one framed answer:
//
//	ANSWER <n>\n<n bytes of JSON>\n
package telegramcli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/logger"
)

// Transient failures. Callers may retry the same command.
var (
	ErrNoResponse      = errors.New("no response from telegram-cli")
	ErrIllegalResponse = errors.New("illegal response from telegram-cli")
)

// RemoteError is an explicit error answer from the daemon.
type RemoteError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("telegram-cli error %d: %s", e.Code, e.Message)
}

// Dialog is one entry of the dialog list.
type Dialog struct {
	ID   string
	Name string
}

// Page is one history answer. Count is the number of entries the daemon
// returned, including any that could not be decoded.
type Page struct {
	Events []*chat.Event
	Count  int
}

// Client issues commands to telegram-cli.
type Client struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
	log     *slog.Logger
}

// NewClient creates a client from configuration.
func NewClient(cfg config.TelegramCLIConfig, log *slog.Logger) *Client {
	return New(cfg.Addr(), cfg.Timeout, log)
}

// New creates a client for the daemon at addr.
func New(addr string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		addr:    addr,
		timeout: timeout,
		log:     log.With("component", "telegram_cli", "addr", addr),
	}
}

// ListDialogs returns the dialogs known to the logged-in account.
func (c *Client) ListDialogs(ctx context.Context) ([]Dialog, error) {
	body, err := c.do(ctx, "dialog_list")
	if err != nil {
		return nil, err
	}

	var peers []chat.Peer
	if err := json.Unmarshal(body, &peers); err != nil {
		return nil, fmt.Errorf("%w: dialog list: %v", ErrIllegalResponse, err)
	}

	dialogs := make([]Dialog, 0, len(peers))
	for _, p := range peers {
		dialogs = append(dialogs, Dialog{ID: string(p.ID), Name: p.DisplayName()})
	}
	return dialogs, nil
}

// History fetches up to limit messages of peer, skipping the offset most
// recent ones.
func (c *Client) History(ctx context.Context, peer string, limit, offset int) (Page, error) {
	if peer == "" || strings.ContainsAny(peer, " \n") {
		return Page{}, fmt.Errorf("invalid peer %q", peer)
	}

	body, err := c.do(ctx, fmt.Sprintf("history %s %d %d", peer, limit, offset))
	if err != nil {
		return Page{}, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return Page{}, fmt.Errorf("%w: history: %v", ErrIllegalResponse, err)
	}

	page := Page{Events: make([]*chat.Event, 0, len(items)), Count: len(items)}
	for i, item := range items {
		ev, err := chat.Decode(item)
		if err != nil {
			c.log.WarnContext(ctx, "Skipping undecodable history entry", "peer", peer, "offset", offset+i, "error", err)
			continue
		}
		page.Events = append(page.Events, ev)
	}
	return page, nil
}

func (c *Client) do(ctx context.Context, command string) (json.RawMessage, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	c.log.DebugContext(ctx, "Sending command", "command", command)
	if _, err := io.WriteString(conn, command+"\n"); err != nil {
		return nil, c.readErr(ctx, err)
	}

	r := bufio.NewReader(conn)
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, c.readErr(ctx, err)
	}

	sizeStr, ok := strings.CutPrefix(strings.TrimSpace(header), "ANSWER ")
	if !ok {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrIllegalResponse, strings.TrimSpace(header))
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: bad answer size %q", ErrIllegalResponse, sizeStr)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: answer truncated", ErrIllegalResponse)
		}
		return nil, c.readErr(ctx, err)
	}

	if err := remoteError(body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) readErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// The socket deadline may fire a moment before the context notices.
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return context.DeadlineExceeded
	}
	return fmt.Errorf("%w: %v", ErrNoResponse, err)
}

// remoteError detects the {"result":"FAIL", ...} answers.
func remoteError(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty answer", ErrIllegalResponse)
	}
	if trimmed[0] != '{' {
		return nil
	}

	var answer struct {
		Result string `json:"result"`
		RemoteError
	}
	if err := json.Unmarshal(trimmed, &answer); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalResponse, err)
	}
	if answer.Result == "FAIL" || answer.Message != "" {
		return &RemoteError{Code: answer.Code, Message: answer.Message}
	}
	return nil
}
