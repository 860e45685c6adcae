package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/caffeineduck/hostrpc/value"
)

// Stream framing: \x00HRPC:{json}\x00. Bytes outside frames are ignored.
const (
	protocolPrefix = "\x00HRPC:"
	protocolSuffix = "\x00"
)

type callRequest struct {
	ID string `json:"id,omitempty"`
	Request
}

type callResponse struct {
	ID     string       `json:"id,omitempty"`
	Result *value.Value `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// streamHandler consumes framed calls written to it and answers each with
// one JSON line on out.
type streamHandler struct {
	ctx context.Context
	gw  *Gateway
	out io.Writer
	buf bytes.Buffer
	mu  sync.Mutex
}

func newStreamHandler(ctx context.Context, gw *Gateway, out io.Writer) *streamHandler {
	return &streamHandler{ctx: ctx, gw: gw, out: out}
}

// findNextMessage returns the index of the next frame prefix, or -1.
func findNextMessage(content string) int {
	return strings.Index(content, protocolPrefix)
}

// extractMessage splits the frame starting at idx into its payload and the
// remaining content. ok is false while the frame is incomplete, in which
// case remaining is the unconsumed content from idx.
func extractMessage(content string, idx int) (payload, remaining string, ok bool) {
	start := idx + len(protocolPrefix)
	end := strings.Index(content[start:], protocolSuffix)
	if end == -1 {
		return "", content[idx:], false
	}
	return content[start : start+end], content[start+end+len(protocolSuffix):], true
}

func (p *streamHandler) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)

	for {
		content := p.buf.String()
		idx := findNextMessage(content)
		if idx == -1 {
			// Keep a trailing partial prefix for the next write.
			p.buf.Reset()
			p.buf.WriteString(partialPrefix(content))
			break
		}

		payload, remaining, ok := extractMessage(content, idx)
		p.buf.Reset()
		p.buf.WriteString(remaining)
		if !ok {
			break
		}

		var req callRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			if err := p.respond(callResponse{Error: "invalid call format"}); err != nil {
				return len(data), err
			}
			continue
		}
		if err := p.respond(p.handleCall(req)); err != nil {
			return len(data), err
		}
	}

	return len(data), nil
}

// partialPrefix returns the longest suffix of content that is a proper
// prefix of protocolPrefix.
func partialPrefix(content string) string {
	for n := min(len(protocolPrefix)-1, len(content)); n > 0; n-- {
		if strings.HasPrefix(protocolPrefix, content[len(content)-n:]) {
			return content[len(content)-n:]
		}
	}
	return ""
}

func (p *streamHandler) respond(resp callResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = p.out.Write(append(data, '\n'))
	return err
}

func (p *streamHandler) handleCall(req callRequest) callResponse {
	resp, err := p.gw.Handle(p.ctx, req.Request)
	switch {
	case err != nil:
		return callResponse{ID: req.ID, Error: err.Error()}
	case resp == nil:
		return callResponse{ID: req.ID}
	}
	return callResponse{ID: req.ID, Result: &resp.Result}
}

// ServeConn answers framed calls read from conn until it is closed or ctx
// is done.
func (g *Gateway) ServeConn(ctx context.Context, conn io.ReadWriteCloser) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	_, err := io.Copy(newStreamHandler(ctx, g, conn), conn)
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// ServeStream accepts connections on ln and serves each with ServeConn.
// It returns nil once ctx is done.
func (g *Gateway) ServeStream(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.ServeConn(ctx, conn); err != nil {
				g.logger.Warn("stream connection", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}()
	}
}
