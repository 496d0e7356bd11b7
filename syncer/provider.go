package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/SunsetLabs-Game/zylith-asp/crypto"
	"github.com/SunsetLabs-Game/zylith-asp/types"
)

// EventFilter selects contract events by block range.
type EventFilter struct {
	FromBlock uint64
	ToBlock   uint64
	Address   *big.Int
}

// Event is one emitted contract event. Keys carries one selector per enum
// layer, outer to innermost variant.
type Event struct {
	FromAddress *big.Int
	Keys        []*big.Int
	Data        []*big.Int
	BlockNumber uint64
}

// EventsPage is one page of an events query. An empty ContinuationToken
// marks the last page.
type EventsPage struct {
	Events            []Event
	ContinuationToken string
}

// Provider is the upstream chain interface. Implemented over JSON-RPC in
// production and by a scripted fake in tests.
type Provider interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Events(ctx context.Context, filter EventFilter, continuation string, chunkSize int) (*EventsPage, error)
	MerkleRoot(ctx context.Context, contract *big.Int) (*big.Int, error)
}

// RPCClient implements Provider over Starknet JSON-RPC.
type RPCClient struct {
	url    string
	client *http.Client
}

// NewRPCClient creates an RPCClient for the given endpoint URL.
func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params, out any) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed with status %d: %s", method, resp.StatusCode, body)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("parse %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s rpc error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// BlockNumber returns the latest block number.
func (c *RPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	if err := c.call(ctx, "starknet_blockNumber", []any{}, &n); err != nil {
		return 0, err
	}
	return n, nil
}

type wireBlockID struct {
	BlockNumber uint64 `json:"block_number"`
}

type wireEventFilter struct {
	FromBlock         wireBlockID `json:"from_block"`
	ToBlock           wireBlockID `json:"to_block"`
	Address           string      `json:"address"`
	ChunkSize         int         `json:"chunk_size"`
	ContinuationToken string      `json:"continuation_token,omitempty"`
}

type wireEvent struct {
	FromAddress string   `json:"from_address"`
	Keys        []string `json:"keys"`
	Data        []string `json:"data"`
	BlockNumber uint64   `json:"block_number"`
}

type wireEventsPage struct {
	Events            []wireEvent `json:"events"`
	ContinuationToken string      `json:"continuation_token"`
}

// Events fetches one page of events matching the filter.
func (c *RPCClient) Events(ctx context.Context, filter EventFilter, continuation string, chunkSize int) (*EventsPage, error) {
	params := []any{wireEventFilter{
		FromBlock:         wireBlockID{BlockNumber: filter.FromBlock},
		ToBlock:           wireBlockID{BlockNumber: filter.ToBlock},
		Address:           types.HexFelt(filter.Address),
		ChunkSize:         chunkSize,
		ContinuationToken: continuation,
	}}

	var wire wireEventsPage
	if err := c.call(ctx, "starknet_getEvents", params, &wire); err != nil {
		return nil, err
	}

	page := &EventsPage{
		Events:            make([]Event, 0, len(wire.Events)),
		ContinuationToken: wire.ContinuationToken,
	}
	for _, we := range wire.Events {
		ev, err := parseWireEvent(we)
		if err != nil {
			return nil, fmt.Errorf("decode event at block %d: %w", we.BlockNumber, err)
		}
		page.Events = append(page.Events, ev)
	}
	return page, nil
}

func parseWireEvent(we wireEvent) (Event, error) {
	from, err := types.ParseFelt(we.FromAddress)
	if err != nil {
		return Event{}, fmt.Errorf("from_address: %w", err)
	}

	keys := make([]*big.Int, len(we.Keys))
	for i, k := range we.Keys {
		if keys[i], err = types.ParseFelt(k); err != nil {
			return Event{}, fmt.Errorf("key %d: %w", i, err)
		}
	}
	data := make([]*big.Int, len(we.Data))
	for i, d := range we.Data {
		if data[i], err = types.ParseFelt(d); err != nil {
			return Event{}, fmt.Errorf("data %d: %w", i, err)
		}
	}

	return Event{FromAddress: from, Keys: keys, Data: data, BlockNumber: we.BlockNumber}, nil
}

type wireCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// MerkleRoot reads the contract's authoritative root via a read-only call to
// get_merkle_root.
func (c *RPCClient) MerkleRoot(ctx context.Context, contract *big.Int) (*big.Int, error) {
	params := []any{wireCall{
		ContractAddress:    types.HexFelt(contract),
		EntryPointSelector: types.HexFelt(crypto.StarknetKeccak("get_merkle_root")),
		Calldata:           []string{},
	}, "latest"}

	var result []string
	if err := c.call(ctx, "starknet_call", params, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("get_merkle_root returned no values")
	}
	root, err := types.ParseFelt(result[0])
	if err != nil {
		return nil, fmt.Errorf("get_merkle_root result: %w", err)
	}
	return root, nil
}
