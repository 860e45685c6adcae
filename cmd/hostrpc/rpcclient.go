package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// rpcClient calls a gateway's /rpc endpoint.
type rpcClient struct {
	url    string
	client *http.Client
	nextID atomic.Int64
}

func newRPCClient(addr string) *rpcClient {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &rpcClient{url: strings.TrimSuffix(addr, "/") + "/rpc", client: http.DefaultClient}
}

func (c *rpcClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id, err := jsonrpc.MakeID(fmt.Sprintf("cli-%d", c.nextID.Add(1)))
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	body, err := jsonrpc.EncodeMessage(&jsonrpc.Request{ID: id, Method: method, Params: raw})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	msg, err := jsonrpc.DecodeMessage(data)
	if err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	reply, ok := msg.(*jsonrpc.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected reply %T", msg)
	}
	if reply.Error != nil {
		return nil, reply.Error
	}
	return reply.Result, nil
}
