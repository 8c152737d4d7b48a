package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const confirmPollInterval = 2 * time.Second

// RPCClient talks JSON-RPC to a ledger node.
type RPCClient struct {
	url  string
	http *http.Client
}

// NewRPCClient builds a client for the node at url.
func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("rpc %s: decode response: %w", method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("rpc %s: %s (code %d)", method, decoded.Error.Message, decoded.Error.Code)
	}
	if result != nil {
		if err := json.Unmarshal(decoded.Result, result); err != nil {
			return fmt.Errorf("rpc %s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetBalance returns the lamport balance for an address.
func (c *RPCClient) GetBalance(ctx context.Context, address string) (int64, error) {
	var result struct {
		Value int64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{address}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// LatestBlockReference fetches a recent blockhash to anchor a transaction.
func (c *RPCClient) LatestBlockReference(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", nil, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", errors.New("node returned empty blockhash")
	}
	return result.Value.Blockhash, nil
}

// SubmitTransaction broadcasts a signed transaction and returns its
// signature. A successful return means broadcast, not settlement.
func (c *RPCClient) SubmitTransaction(ctx context.Context, tx *Transaction) (string, error) {
	wire, err := tx.Wire()
	if err != nil {
		return "", err
	}
	var signature string
	if err := c.call(ctx, "sendTransaction", []any{base64.StdEncoding.EncodeToString(wire)}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// ConfirmTransaction polls the node for the transaction's status until it is
// observed or the timeout elapses. A timeout is a distinct outcome, not an
// error: the transaction may still land.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) (Confirmation, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.signatureStatus(ctx, signature)
		if err != nil {
			return Confirmation{}, err
		}
		if status != nil {
			return *status, nil
		}
		if time.Now().After(deadline) {
			return Confirmation{Status: ConfirmTimedOut}, nil
		}
		select {
		case <-ctx.Done():
			return Confirmation{Status: ConfirmTimedOut}, nil
		case <-ticker.C:
		}
	}
}

func (c *RPCClient) signatureStatus(ctx context.Context, signature string) (*Confirmation, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", []any{[]string{signature}}, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}
	entry := result.Value[0]
	if len(entry.Err) > 0 && string(entry.Err) != "null" {
		return &Confirmation{Status: ConfirmFailed, Reason: string(entry.Err)}, nil
	}
	switch entry.ConfirmationStatus {
	case "confirmed", "finalized":
		return &Confirmation{Status: ConfirmConfirmed}, nil
	default:
		return nil, nil
	}
}
