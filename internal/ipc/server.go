package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"completearr/internal/coordinator"
	"completearr/internal/daemon"
	"completearr/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client requests daemon stop.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, shutdown: shutdown}
	if err := rpcServer.RegisterName("CompleteARR", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.trackConn(conn)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.forgetConn(c)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) trackConn(c net.Conn) {
	s.connMu.Lock()
	s.conns[c] = struct{}{}
	s.connMu.Unlock()
}

func (s *Server) forgetConn(c net.Conn) {
	s.connMu.Lock()
	delete(s.conns, c)
	s.connMu.Unlock()
}

// Close stops the server and removes the socket file. Open connections are
// closed too; an idle client must not hold up daemon shutdown.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	shutdown func()
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.RunActive = status.RunActive
	resp.CurrentRunID = status.CurrentRunID
	resp.StartedAt = status.StartedAt
	resp.NextRun = status.NextRun
	resp.LastSummary = status.LastSummary
	resp.PID = os.Getpid()
	return nil
}

func (s *service) RunNow(_ RunNowRequest, resp *RunNowResponse) error {
	s.log().Debug("manual run requested")
	runID, err := s.daemon.RunNow()
	if err != nil {
		resp.Started = false
		if errors.Is(err, coordinator.ErrRunActive) {
			resp.Message = "a reconciliation run is already active"
		} else {
			resp.Message = err.Error()
		}
		return nil
	}
	resp.Started = true
	resp.RunID = runID
	resp.Message = "run started"
	return nil
}

func (s *service) Cancel(_ CancelRequest, resp *CancelResponse) error {
	s.log().Debug("run cancellation requested")
	if err := s.daemon.CancelRun(); err != nil {
		resp.Cancelled = false
		resp.Message = err.Error()
		return nil
	}
	resp.Cancelled = true
	resp.Message = "cancellation requested"
	return nil
}

func (s *service) Reset(_ ResetRequest, resp *ResetResponse) error {
	s.log().Debug("force-reset requested")
	if err := s.daemon.ForceReset(); err != nil {
		resp.Reset = false
		resp.Message = err.Error()
		return nil
	}
	resp.Reset = true
	resp.Message = "run state reset"
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	runs, err := s.daemon.RunHistory(context.Background(), req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]RunRecord, 0, len(runs))
	for _, run := range runs {
		resp.Runs = append(resp.Runs, RunRecord{
			RunID:          run.RunID,
			Trigger:        run.Trigger,
			StartedAt:      run.StartedAt,
			FinishedAt:     run.FinishedAt,
			ItemsChecked:   run.ItemsChecked,
			Promotions:     run.Promotions,
			Demotions:      run.Demotions,
			Corrections:    run.Corrections,
			AlreadyCorrect: run.AlreadyCorrect,
			Skipped:        run.Skipped,
			Errors:         run.Errors,
			MonitorChanges: run.MonitorChanges,
			Aborted:        run.Aborted,
			AbortReason:    run.AbortReason,
		})
	}
	return nil
}

func (s *service) Moves(req MovesRequest, resp *MovesResponse) error {
	moves, err := s.daemon.MovesForRun(context.Background(), req.RunID)
	if err != nil {
		return err
	}
	resp.Moves = make([]MoveRecord, 0, len(moves))
	for _, move := range moves {
		resp.Moves = append(resp.Moves, MoveRecord{
			ItemID:    move.ItemID,
			ItemKind:  move.ItemKind,
			ItemTitle: move.ItemTitle,
			OldPath:   move.OldPath,
			NewPath:   move.NewPath,
			Decision:  move.Decision,
			Outcome:   move.Outcome,
			Issued:    move.Issued,
			Error:     move.Error,
			CreatedAt: move.CreatedAt,
		})
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Info("daemon stop requested via IPC")
	if s.shutdown != nil {
		s.shutdown()
	}
	resp.Stopped = true
	return nil
}
