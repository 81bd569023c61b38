package bridgectl

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/apollion69/nordhold-calculator/internal/bridge"
	"github.com/apollion69/nordhold-calculator/internal/catalog"
	"github.com/apollion69/nordhold-calculator/internal/memback"
	"github.com/apollion69/nordhold-calculator/internal/replay"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func startTestServer(t *testing.T) (string, *memback.FakeBackend) {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "data", "versions", "index.json"), `{
		"active_version": "v1",
		"versions": [
			{"id": "v1", "game_version": "1.0.0", "build_id": "b1",
			 "catalog_path": "data/v1/catalog.json",
			 "memory_signatures_path": "data/v1/signatures.json"}
		]
	}`)
	writeTestFile(t, filepath.Join(root, "data", "v1", "catalog.json"), `{"scenarios": []}`)
	writeTestFile(t, filepath.Join(root, "data", "v1", "signatures.json"), `{
		"profiles": [
			{"id": "default", "process_name": "NordHold.exe",
			 "fields": {
				"current_wave": {"source": "address", "type": "int32", "address": "0x1000"},
				"gold":         {"source": "address", "type": "int32", "address": "0x1004"},
				"essence":      {"source": "address", "type": "int32", "address": "0x1008"}
			 }}
		]
	}`)

	cat := catalog.New(root)
	store, err := replay.New(root)
	if err != nil {
		t.Fatalf("replay store: %v", err)
	}
	backend := memback.NewFakeBackend()
	b := bridge.New(root, cat, store, backend)

	socketPath := filepath.Join(root, "bridgectl.sock")
	srv := NewServer(socketPath, b, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, 1)
	go func() {
		ready <- srv.ListenAndServe(ctx)
	}()
	t.Cleanup(cancel)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(socketPath); err == nil {
			return socketPath, backend
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("bridgectl socket never appeared")
	return "", nil
}

func sendRequest(t *testing.T, socketPath string, req Request) Response {
	t.Helper()
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("write request: %v", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestServer_StatusBeforeConnect(t *testing.T) {
	socketPath, _ := startTestServer(t)
	resp := sendRequest(t, socketPath, Request{Cmd: "status"})
	if !resp.OK || resp.Status == nil {
		t.Fatalf("expected ok status response, got %+v", resp)
	}
	if resp.Status.Mode != "disconnected" {
		t.Fatalf("expected initial mode disconnected, got %s", resp.Status.Mode)
	}
}

func TestServer_ConnectAndSnapshot(t *testing.T) {
	socketPath, backend := startTestServer(t)
	backend.SetProcess("NordHold.exe", 11)
	backend.WriteInt32(11, 0x1000, 4)
	backend.WriteInt32(11, 0x1004, 250)
	backend.WriteInt32(11, 0x1008, 6)

	connectResp := sendRequest(t, socketPath, Request{Cmd: "connect", ProcessName: "NordHold.exe"})
	if !connectResp.OK || connectResp.Status == nil {
		t.Fatalf("expected ok connect response, got %+v", connectResp)
	}
	if connectResp.Status.Mode != "memory" {
		t.Fatalf("expected memory mode, got %s (reason=%s)", connectResp.Status.Mode, connectResp.Status.Reason)
	}

	snapResp := sendRequest(t, socketPath, Request{Cmd: "snapshot"})
	if !snapResp.OK || snapResp.Snapshot == nil {
		t.Fatalf("expected ok snapshot response, got %+v", snapResp)
	}
	if snapResp.Snapshot.Wave != 4 || snapResp.Snapshot.Gold != 250 {
		t.Fatalf("unexpected snapshot: %+v", snapResp.Snapshot)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	socketPath, _ := startTestServer(t)
	resp := sendRequest(t, socketPath, Request{Cmd: "bogus"})
	if resp.OK || resp.Error == "" {
		t.Fatalf("expected error response for unknown command, got %+v", resp)
	}
}
