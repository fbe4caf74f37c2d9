// Package integration exercises the Gateway's HTTP surface against one or
// more real Data Node processes talking the platform's RPC protocol end to
// end, the way the teacher's old test/integration/gateway_test.go drove its
// HTTP handler against a real Postgres-backed stack.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/delacruz-dev/geoshard/internal/datanode"
	"github.com/delacruz-dev/geoshard/internal/gateway/fanout"
	"github.com/delacruz-dev/geoshard/internal/gateway/httpapi"
	"github.com/delacruz-dev/geoshard/internal/rpcpb"
	"github.com/delacruz-dev/geoshard/pkg/rpc"
)

const csvHeader = "LON,LAT,NUMBER,STREET,UNIT,CITY,DISTRICT,REGION,POSTCODE,ID,HASH\n"

func writeShardCSV(t *testing.T, rows ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shard.csv")
	content := csvHeader
	for _, row := range rows {
		content += row + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test CSV: %v", err)
	}
	return path
}

// startDataNode loads csvPath into a Node and serves it over RPC on addr,
// registering a test cleanup that stops the server and terminates the node.
func startDataNode(t *testing.T, shardID int, csvPath, addr string) {
	t.Helper()

	node := datanode.New(shardID, csvPath)
	if err := node.Initialize(); err != nil {
		t.Fatalf("initializing data node %d: %v", shardID, err)
	}

	server := rpc.NewServer()
	server.Register("DataNodeService.Search", func(ctx context.Context, req json.RawMessage) (any, error) {
		var searchReq rpcpb.SearchRequest
		if err := json.Unmarshal(req, &searchReq); err != nil {
			return nil, err
		}
		records, err := node.Search(searchReq.Terms)
		if err != nil {
			return nil, err
		}
		resp := rpcpb.SearchResponse{ShardID: shardID, Results: make([]rpcpb.AddressRecord, 0, len(records))}
		for _, r := range records {
			resp.Results = append(resp.Results, rpcpb.AddressRecord{
				Hash:      rpcpb.Hash(r.ID),
				Longitude: r.Longitude,
				Latitude:  r.Latitude,
				Number:    r.Number,
				Street:    r.Street,
				Unit:      r.Unit,
				City:      r.City,
				Postcode:  r.Postcode,
			})
		}
		return resp, nil
	})
	server.Register("DataNodeService.HealthCheck", func(ctx context.Context, req json.RawMessage) (any, error) {
		return rpcpb.HealthCheckResponse{Status: "SERVING"}, nil
	})

	go server.Serve(addr)
	t.Cleanup(func() {
		server.Stop()
		node.Terminate()
	})
	time.Sleep(50 * time.Millisecond)
}

func TestFindAddressAcrossTwoRealShards(t *testing.T) {
	shard0CSV := writeShardCSV(t,
		"-122.33,47.60,100,MAIN ST,,SEATTLE,KING,WA,98101,1,a1",
		"-122.34,47.61,200,OAK ST,,SEATTLE,KING,WA,98102,2,a2",
	)
	shard1CSV := writeShardCSV(t,
		"-122.67,45.52,300,MAIN ST,APT 4,PORTLAND,MULTNOMAH,OR,97201,3,a3",
	)

	startDataNode(t, 0, shard0CSV, "127.0.0.1:19501")
	startDataNode(t, 1, shard1CSV, "127.0.0.1:19502")

	shard0, err := fanout.DialShard(0, "127.0.0.1:19501")
	if err != nil {
		t.Fatalf("dialing shard 0: %v", err)
	}
	shard1, err := fanout.DialShard(1, "127.0.0.1:19502")
	if err != nil {
		t.Fatalf("dialing shard 1: %v", err)
	}
	t.Cleanup(func() {
		shard0.Client.(*rpc.Client).Close()
		shard1.Client.(*rpc.Client).Close()
	})

	fanoutClient := fanout.New([]*fanout.Shard{shard0, shard1}, 2*time.Second, nil)
	handler := httpapi.New(httpapi.Config{Fanout: fanoutClient, ShardCount: 2, MaxResults: 5})
	mux := http.NewServeMux()
	handler.Routes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	body, _ := json.Marshal(map[string]string{"address": "MAIN"})
	resp, err := http.Post(server.URL+"/api/findAddress", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/findAddress: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var decoded struct {
		ResultCount     int `json:"result_count"`
		SuccessfulNodes int `json:"successful_nodes"`
		FailedNodes     int `json:"failed_nodes"`
		Results         []struct {
			Street string `json:"street"`
			City   string `json:"city"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if decoded.SuccessfulNodes != 2 || decoded.FailedNodes != 0 {
		t.Errorf("expected both shards to succeed, got successful=%d failed=%d", decoded.SuccessfulNodes, decoded.FailedNodes)
	}
	if decoded.ResultCount != 2 {
		t.Errorf("expected 2 results across both shards, got %d", decoded.ResultCount)
	}

	cities := map[string]bool{}
	for _, r := range decoded.Results {
		cities[r.City] = true
	}
	if !cities["SEATTLE"] || !cities["PORTLAND"] {
		t.Errorf("expected results from both shards' cities, got %v", decoded.Results)
	}
}

func TestFindAddressPartialFailureWhenOneShardIsDown(t *testing.T) {
	shardCSV := writeShardCSV(t,
		"-122.33,47.60,100,MAIN ST,,SEATTLE,KING,WA,98101,1,a1",
	)
	startDataNode(t, 0, shardCSV, "127.0.0.1:19503")

	liveShard, err := fanout.DialShard(0, "127.0.0.1:19503")
	if err != nil {
		t.Fatalf("dialing live shard: %v", err)
	}
	t.Cleanup(func() { liveShard.Client.(*rpc.Client).Close() })

	// Shard 1 has no listener behind it and is never dialed: a stub Caller
	// that always errors stands in for it, simulating a node that was
	// reachable at dial time but later stops answering.
	downShard := fanout.NewShard(1, downCaller{})

	fanoutClient := fanout.New([]*fanout.Shard{liveShard, downShard}, 500*time.Millisecond, nil)
	handler := httpapi.New(httpapi.Config{Fanout: fanoutClient, ShardCount: 2, MaxResults: 5})
	mux := http.NewServeMux()
	handler.Routes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	body, _ := json.Marshal(map[string]string{"address": "MAIN"})
	resp, err := http.Post(server.URL+"/api/findAddress", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/findAddress: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", resp.StatusCode)
	}
}

type downCaller struct{}

func (downCaller) CallContext(ctx context.Context, method string, params any, result any) error {
	return fmt.Errorf("shard unreachable")
}
