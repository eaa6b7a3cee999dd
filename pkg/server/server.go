package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niels/minihttpd/pkg/logging"
	"github.com/niels/minihttpd/pkg/request"
	"github.com/niels/minihttpd/pkg/response"
	"github.com/niels/minihttpd/pkg/router"
	"github.com/niels/minihttpd/pkg/tracker"
	"github.com/rs/zerolog"
)

// DefaultChunkSize is the size of each read from a connection
const DefaultChunkSize = 1024

var (
	// ErrBind is returned when the listening socket cannot be acquired
	ErrBind = errors.New("failed to bind")
	// ErrWriteFailure wraps I/O errors hit while sending a response
	ErrWriteFailure = errors.New("write failure")
)

// Server accepts connections and answers exactly one request on each
type Server struct {
	router      *router.Router
	tracker     tracker.Tracker
	chunkSize   int
	readTimeout time.Duration
	slots       chan struct{} // nil when the number of connections is unbounded

	nextID atomic.Uint64

	mu        sync.Mutex
	listener  net.Listener
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Server
type Option func(*Server)

// WithChunkSize sets the read chunk size. Values below 1 are ignored.
func WithChunkSize(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithReadTimeout sets a read deadline on every connection. Zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// WithMaxConnections caps the number of connections handled at once.
// Zero keeps the default of one goroutine per connection with no cap.
func WithMaxConnections(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.slots = make(chan struct{}, n)
		} else {
			s.slots = nil
		}
	}
}

// WithTracker sets the connection tracker
func WithTracker(t tracker.Tracker) Option {
	return func(s *Server) {
		if t != nil {
			s.tracker = t
		}
	}
}

// New creates a server dispatching to r. The router must be fully populated
// before Serve is called.
func New(r *router.Router, opts ...Option) *Server {
	s := &Server{
		router:    r,
		tracker:   tracker.NopTracker{},
		chunkSize: DefaultChunkSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe binds address and serves until the listener is closed
func (s *Server) ListenAndServe(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrBind, address, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and handles each one in its own goroutine.
// It returns nil once ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log := logging.WithComponent("server")
	log.Info().Str("address", ln.Addr().String()).Msg("Listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Info().Msg("Listener closed, no longer accepting connections")
				return nil
			}
			log.Error().Err(err).Msg("Failed to accept connection")
			continue
		}

		if s.slots != nil {
			// all slots may stay busy with stalled clients, so Close must
			// still be able to end the loop
			select {
			case s.slots <- struct{}{}:
			case <-s.done:
				conn.Close()
				log.Info().Msg("Server closed while waiting for a free connection slot")
				return nil
			}
		}
		go func(c net.Conn) {
			if s.slots != nil {
				defer func() { <-s.slots }()
			}
			s.handleConnection(c)
		}(conn)
	}
}

// Close stops the listener. Connections already accepted run to completion;
// one accepted but still waiting for a free slot is closed unanswered.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// handleConnection runs one read, parse, route, respond cycle and closes conn
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	id := s.nextID.Add(1)
	remote := "unknown"
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	log := logging.WithConnection(id, remote)
	s.tracker.Accepted(id, remote)

	if s.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			log.Warn().Err(err).Msg("Failed to set read deadline")
		}
	}

	raw, err := readRequest(conn, s.chunkSize)
	if err != nil {
		// parse whatever arrived; a truncated request ends up as a 400
		log.Debug().Err(err).Int("bytes", len(raw)).Msg("Read ended with error")
	}

	req, res := s.dispatch(raw, log)

	method, path := "-", "-"
	if req != nil {
		method, path = req.Method.String(), req.Path
	}

	if _, err := res.WriteTo(conn); err != nil {
		err = fmt.Errorf("%w: %w", ErrWriteFailure, err)
		log.Error().Err(err).Str("method", method).Str("path", path).Msg("Abandoning connection")
		s.tracker.Failed(id, err.Error())
		return
	}

	log.Debug().Str("method", method).Str("path", path).Int("status", res.StatusCode).Msg("Request served")
	s.tracker.Served(id, method, path, res.StatusCode)
}

// dispatch turns raw request bytes into a response. The parsed request is
// returned too, nil when parsing failed.
func (s *Server) dispatch(raw []byte, log zerolog.Logger) (*request.Request, *response.Response) {
	req, err := request.Parse(raw)
	if err != nil {
		log.Debug().Err(err).Msg("Rejecting malformed request")
		return nil, response.New(response.StatusBadRequest, nil, nil)
	}

	handler, params, err := s.router.Resolve(req.Method, req.Path)
	if err != nil {
		if errors.Is(err, router.ErrRouteNotFound) {
			return req, response.New(response.StatusNotFound, nil, nil)
		}
		log.Error().Err(err).Msg("Route resolution failed")
		return req, response.New(response.StatusInternalServerError, nil, nil)
	}

	req.PathParams = params
	return req, invoke(handler, req, log)
}

// invoke calls the handler, turning a panic or a nil response into a 500
func invoke(handler router.Handler, req *request.Request, log zerolog.Logger) (res *response.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("path", req.Path).Msg("Handler panicked")
			res = response.New(response.StatusInternalServerError, nil, nil)
		}
	}()

	res = handler.ServeRequest(req)
	if res == nil {
		log.Error().Str("path", req.Path).Msg("Handler returned no response")
		res = response.New(response.StatusInternalServerError, nil, nil)
	}
	return res
}

// readRequest reads r in chunks of chunkSize until a read returns fewer bytes
// than a full chunk, or until EOF.
//
// This framing ignores Content-Length. A request whose length is an exact
// multiple of chunkSize keeps the reader waiting for one more read.
func readRequest(r io.Reader, chunkSize int) ([]byte, error) {
	var raw []byte
	chunk := make([]byte, chunkSize)
	for {
		n, err := r.Read(chunk)
		raw = append(raw, chunk[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return raw, nil
			}
			return raw, err
		}
		if n < chunkSize {
			return raw, nil
		}
	}
}
