package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/caffeineduck/hostrpc/value"
)

// JSON-RPC method names served at /rpc.
const (
	MethodInvoke    = "invoke"
	MethodFunctions = "functions"
)

var (
	errMethodNotFound = errors.New("method not found")
	errInvalidParams  = errors.New("invalid params")
)

// HTTPHandler serves the gateway over HTTP:
//
//	POST /rpc              JSON-RPC 2.0, methods "invoke" and "functions"
//	POST /call/{target}    body is the argument array text
//	GET  /functions        schema of every function
//	GET  /health           health check
func (g *Gateway) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", g.serveRPC)
	mux.HandleFunc("POST /call/{target}", g.serveCall)
	mux.HandleFunc("GET /functions", g.serveFunctions)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (g *Gateway) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, g.maxBodySize))
}

func (g *Gateway) serveRPC(w http.ResponseWriter, r *http.Request) {
	body, err := g.readBody(w, r)
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		http.Error(w, "invalid json-rpc message", http.StatusBadRequest)
		return
	}
	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		http.Error(w, "expected json-rpc request", http.StatusBadRequest)
		return
	}

	result, err := g.dispatchRPC(r, req)

	var zeroID jsonrpc.ID
	if req.ID == zeroID {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := &jsonrpc.Response{ID: req.ID}
	if err != nil {
		resp.Error = err
	} else {
		resp.Result = result
	}
	data, err := jsonrpc.EncodeMessage(resp)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (g *Gateway) dispatchRPC(r *http.Request, req *jsonrpc.Request) (json.RawMessage, error) {
	switch req.Method {
	case MethodInvoke:
		var call Request
		if err := json.Unmarshal(req.Params, &call); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
		resp, err := g.Handle(r.Context(), call)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return json.RawMessage("null"), nil
		}
		return json.RawMessage(resp.Result.String()), nil
	case MethodFunctions:
		return json.RawMessage(value.Object(g.Functions()).String()), nil
	}
	return nil, fmt.Errorf("%w: %s", errMethodNotFound, req.Method)
}

func (g *Gateway) serveCall(w http.ResponseWriter, r *http.Request) {
	body, err := g.readBody(w, r)
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	resp, err := g.Handle(r.Context(), Request{Target: r.PathValue("target"), Arguments: string(body)})
	switch {
	case errors.Is(err, value.ErrParse):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	case resp == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (g *Gateway) serveFunctions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g.Functions())
}
