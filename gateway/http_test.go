package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int64  `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func postRPC(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, rpcReply) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var reply rpcReply
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	}
	return w, reply
}

func TestRPCInvoke(t *testing.T) {
	gw, _ := newTestGateway(t)
	h := gw.HTTPHandler()

	tests := []struct {
		name   string
		params string
		want   string
	}{
		{"add", `{"target":"add","arguments":"[2,3]"}`, "5"},
		{"concat", `{"target":"concat","arguments":"[\"a\",\"b\"]"}`, `"ab"`},
		{"mismatch is null", `{"target":"add","arguments":"[2,\"x\"]"}`, "null"},
		{"unknown target is null", `{"target":"missing","arguments":"[1]"}`, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, reply := postRPC(t, h, `{"jsonrpc":"2.0","id":1,"method":"invoke","params":`+tt.params+`}`)
			require.Equal(t, http.StatusOK, w.Code)
			require.Nil(t, reply.Error)
			require.JSONEq(t, tt.want, string(reply.Result))
			require.JSONEq(t, "1", string(reply.ID))
		})
	}
}

func TestRPCErrors(t *testing.T) {
	gw, _ := newTestGateway(t)
	h := gw.HTTPHandler()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"parse error", `{"jsonrpc":"2.0","id":"a","method":"invoke","params":{"target":"add","arguments":"[2,"}}`, "parse error"},
		{"target error", `{"jsonrpc":"2.0","id":"b","method":"invoke","params":{"target":"div","arguments":"[1,0]"}}`, "division by zero"},
		{"unknown method", `{"jsonrpc":"2.0","id":"c","method":"envoke","params":{}}`, "method not found"},
		{"bad params", `{"jsonrpc":"2.0","id":"d","method":"invoke","params":[1]}`, "invalid params"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, reply := postRPC(t, h, tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			require.NotNil(t, reply.Error)
			require.Contains(t, reply.Error.Message, tt.wantMsg)
		})
	}
}

func TestRPCFunctions(t *testing.T) {
	gw, _ := newTestGateway(t)
	_, reply := postRPC(t, gw.HTTPHandler(), `{"jsonrpc":"2.0","id":7,"method":"functions"}`)
	require.Nil(t, reply.Error)

	var schema map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(reply.Result, &schema))
	require.Equal(t, "[0,0]", string(schema["add"]))
	require.Equal(t, `["",""]`, string(schema["concat"]))
}

func TestRPCNotificationAndMalformed(t *testing.T) {
	gw, _ := newTestGateway(t)
	h := gw.HTTPHandler()

	w, _ := postRPC(t, h, `{"jsonrpc":"2.0","method":"invoke","params":{"target":"add","arguments":"[1,2]"}}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = postRPC(t, h, `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRESTCall(t *testing.T) {
	gw, _ := newTestGateway(t)
	h := gw.HTTPHandler()

	call := func(target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/call/"+target, strings.NewReader(body))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := call("add", "[2,3]")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"result":5}`, w.Body.String())

	require.Equal(t, http.StatusNoContent, call("missing", "[1]").Code)
	require.Equal(t, http.StatusBadRequest, call("add", "[2,").Code)
	require.Equal(t, http.StatusInternalServerError, call("div", "[1,0]").Code)
}

func TestBodyLimit(t *testing.T) {
	gw, _ := newTestGateway(t, WithMaxBodySize(16))
	req := httptest.NewRequest(http.MethodPost, "/call/concat", strings.NewReader(`["`+strings.Repeat("a", 64)+`","b"]`))
	w := httptest.NewRecorder()
	gw.HTTPHandler().ServeHTTP(w, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFunctionsAndHealth(t *testing.T) {
	gw, _ := newTestGateway(t)
	h := gw.HTTPHandler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/functions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var schema map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	require.Equal(t, "[0.0,0.0]", string(schema["mul"]))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}
