// Package bridgectl — server.go
//
// Unix domain socket server for controlling a Live Bridge.
//
// Protocol: newline-delimited JSON over a Unix domain socket.
// Socket path: configurable, typically under a per-install run directory.
// Permissions: 0600, owned by the bridge process's user.
//
// Commands (JSON request -> JSON response):
//
//	{"cmd":"status"}
//	  -> Returns the bridge's full current Status.
//
//	{"cmd":"connect","process_name":"NordHold.exe","require_admin":true}
//	  -> Attempts to bring the bridge into memory mode, falling back to
//	     replay or degraded mode. Always responds ok:true with a status
//	     payload; connect failures are reported through status.reason,
//	     not through the ok flag.
//
//	{"cmd":"autoconnect","process_name":"NordHold.exe"}
//	  -> Runs the calibration-candidate autoconnect loop and returns the
//	     resulting status.
//
//	{"cmd":"snapshot"}
//	  -> Returns the bridge's current LiveSnapshot (memory, replay, or
//	     synthetic, depending on connection state).
//
//	{"cmd":"inspect-calibration-candidates","calibration_candidates_path":"..."}
//	  -> Scores every known calibration candidate and reports which one
//	     the bridge would pick.
//
// Security:
//   - Socket is created with 0600 permissions.
//   - Each connection is handled in a separate goroutine.
//   - Max concurrent connections: 4.
//   - Max request size: 4096 bytes.
//   - Connection timeout: 10s read, 10s write.
package bridgectl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/apollion69/nordhold-calculator/internal/bridge"
	"github.com/apollion69/nordhold-calculator/internal/model"
)

const (
	maxConcurrentConns = 4
	maxRequestBytes    = 4096
	connTimeout        = 10 * time.Second
)

// Request is the JSON structure for bridgectl commands.
type Request struct {
	Cmd string `json:"cmd"`

	ProcessName               string `json:"process_name,omitempty"`
	PollMS                    int    `json:"poll_ms,omitempty"`
	RequireAdmin              *bool  `json:"require_admin,omitempty"`
	DatasetVersion            string `json:"dataset_version,omitempty"`
	DatasetAutorefresh        *bool  `json:"dataset_autorefresh,omitempty"`
	ReplaySessionID           string `json:"replay_session_id,omitempty"`
	SignatureProfileID        string `json:"signature_profile_id,omitempty"`
	CalibrationCandidatesPath string `json:"calibration_candidates_path,omitempty"`
	CalibrationCandidateID    string `json:"calibration_candidate_id,omitempty"`
	AutoconnectEnabled        *bool  `json:"autoconnect_enabled,omitempty"`
}

// Response is the JSON structure for bridgectl command responses.
type Response struct {
	OK         bool                                  `json:"ok"`
	Error      string                                `json:"error,omitempty"`
	Status     *bridge.Status                        `json:"status,omitempty"`
	Snapshot   *model.LiveSnapshot                    `json:"snapshot,omitempty"`
	Inspection *bridge.CalibrationCandidateInspection `json:"inspection,omitempty"`
}

// Server is the bridgectl Unix domain socket server.
type Server struct {
	socketPath string
	bridge     *bridge.Bridge
	log        *zap.Logger
	sem        chan struct{}
}

// NewServer creates a bridgectl Server fronting b.
func NewServer(socketPath string, b *bridge.Bridge, log *zap.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		bridge:     b,
		log:        log,
		sem:        make(chan struct{}, maxConcurrentConns),
	}
}

// ListenAndServe starts the bridgectl socket server. Removes any stale
// socket file before binding. Blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("bridgectl: remove stale socket %q: %w", s.socketPath, err)
	}

	if dir := filepath.Dir(s.socketPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("bridgectl: mkdir %q: %w", dir, err)
		}
	}

	lis, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("bridgectl: listen %q: %w", s.socketPath, err)
	}
	defer lis.Close()

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("bridgectl: chmod %q: %w", s.socketPath, err)
	}

	s.log.Info("bridgectl socket listening", zap.String("path", s.socketPath))

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.Error("bridgectl: accept error", zap.Error(err))
				continue
			}
		}

		select {
		case s.sem <- struct{}{}:
		default:
			s.log.Warn("bridgectl: max connections reached, rejecting")
			_ = conn.Close()
			continue
		}

		go func(c net.Conn) {
			defer func() { <-s.sem }()
			defer c.Close()
			s.handleConn(c)
		}(conn)
	}
}

// handleConn reads one JSON request, executes the command, writes one JSON
// response.
func (s *Server) handleConn(conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	buf := make([]byte, maxRequestBytes)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		s.log.Warn("bridgectl: read error", zap.Error(err))
		return
	}

	var req Request
	if err := json.Unmarshal(buf[:n], &req); err != nil {
		s.writeResponse(conn, Response{OK: false, Error: "invalid JSON: " + err.Error()})
		return
	}

	resp := s.dispatch(req)
	s.writeResponse(conn, resp)
}

func (s *Server) dispatch(req Request) Response {
	switch req.Cmd {
	case "status":
		return s.cmdStatus()
	case "connect":
		return s.cmdConnect(req)
	case "autoconnect":
		return s.cmdAutoconnect(req)
	case "snapshot":
		return s.cmdSnapshot()
	case "inspect-calibration-candidates":
		return s.cmdInspectCalibrationCandidates(req)
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Cmd)}
	}
}

func (s *Server) cmdStatus() Response {
	status := s.bridge.Status()
	return Response{OK: true, Status: &status}
}

func (s *Server) cmdConnect(req Request) Response {
	opts := bridge.ConnectOptions{
		ProcessName:               req.ProcessName,
		PollMS:                    req.PollMS,
		DatasetVersion:            req.DatasetVersion,
		ReplaySessionID:           req.ReplaySessionID,
		SignatureProfileID:        req.SignatureProfileID,
		CalibrationCandidatesPath: req.CalibrationCandidatesPath,
		CalibrationCandidateID:    req.CalibrationCandidateID,
		AutoconnectEnabled:        req.AutoconnectEnabled,
		DatasetAutorefresh:        req.DatasetAutorefresh,
	}
	if req.RequireAdmin != nil {
		opts.RequireAdmin = *req.RequireAdmin
	}
	status, err := s.bridge.Connect(opts)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	s.log.Info("bridgectl: connect",
		zap.String("mode", status.Mode),
		zap.String("reason", status.Reason))
	return Response{OK: true, Status: &status}
}

func (s *Server) cmdAutoconnect(req Request) Response {
	opts := bridge.AutoconnectOptions{
		ProcessName:               req.ProcessName,
		PollMS:                    req.PollMS,
		DatasetVersion:            req.DatasetVersion,
		ReplaySessionID:           req.ReplaySessionID,
		SignatureProfileID:        req.SignatureProfileID,
		CalibrationCandidatesPath: req.CalibrationCandidatesPath,
		CalibrationCandidateID:    req.CalibrationCandidateID,
	}
	if req.RequireAdmin != nil {
		opts.RequireAdmin = *req.RequireAdmin
	}
	if req.DatasetAutorefresh != nil {
		opts.DatasetAutorefresh = *req.DatasetAutorefresh
	}
	status, err := s.bridge.Autoconnect(opts)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	s.log.Info("bridgectl: autoconnect",
		zap.String("mode", status.Mode),
		zap.Bool("fallback_used", status.AutoconnectLastResult["fallback_used"] == true))
	return Response{OK: true, Status: &status}
}

func (s *Server) cmdSnapshot() Response {
	snap, err := s.bridge.Snapshot()
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true, Snapshot: &snap}
}

func (s *Server) cmdInspectCalibrationCandidates(req Request) Response {
	inspection, err := s.bridge.InspectCalibrationCandidates(req.CalibrationCandidatesPath)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true, Inspection: &inspection}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{OK: false, Error: "failed to encode response: " + err.Error()})
	}
	data = append(data, '\n')
	_, _ = conn.Write(data)
}
