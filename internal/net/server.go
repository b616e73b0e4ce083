package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/lobsim/femto/internal/sim"
	"github.com/lobsim/femto/internal/worker"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// clientSession tracks one connected TCP client, keyed by the owner
// name it authenticates new orders with.
type clientSession struct {
	conn net.Conn
}

type clientMessage struct {
	clientAddress string
	owner         string
	message       Message
}

// Server is a thin TCP front door over a sim.World: it decodes wire
// messages into core operations and fans fills/acks/rejects produced by
// World.GotoTime back out to the owning connection. It is ambient,
// host-facing glue, not part of the deterministic simulation core.
type Server struct {
	address string
	port    int
	world   *sim.World

	pool   worker.Pool
	cancel context.CancelFunc

	sessionsLock    sync.Mutex
	sessionsByOwner map[string]clientSession
	connByAddress   map[string]net.Conn

	messages chan clientMessage
}

// New builds a gateway over world. Callers drive world.GotoTime
// themselves (e.g. from a ticking driver loop); Run only owns the
// network side.
func New(address string, port int, world *sim.World) *Server {
	s := &Server{
		address:         address,
		port:            port,
		world:           world,
		pool:            worker.NewPool(defaultNWorkers),
		sessionsByOwner: make(map[string]clientSession),
		connByAddress:   make(map[string]net.Conn),
		messages:        make(chan clientMessage, 1),
	}
	world.SetStrategy(s.deliverLocalEvents)
	return s
}

func (s *Server) Shutdown() {
	log.Info().Msg("gateway shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("gateway running")
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Debug().Str("address", conn.RemoteAddr().String()).Msg("new client")
			s.pool.AddTask(conn)
		}
	}
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.messages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("owner", msg.owner).Msg("error handling message")
				s.reportError(msg.owner, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch m := msg.message.(type) {
	case NewOrderMessage:
		order := m.Order()
		if err := s.world.NewOrder(m.AssetIdx, order); err != nil {
			return err
		}
		s.registerOwner(msg.owner, msg.clientAddress)
	case CancelOrderMessage:
		if err := s.world.CancelOrder(m.AssetIdx, m.Side, m.OrderID, m.Price); err != nil {
			return err
		}
	case BaseMessage:
		if m.TypeOf != LogBook {
			return ErrInvalidMessageType
		}
		log.Info().Msg("log book requested")
	default:
		return ErrInvalidMessageType
	}
	return nil
}

// deliverLocalEvents is installed as the World's strategy callback: it
// turns fill/ack/reject events into wire Reports addressed to the owning
// connection.
func (s *Server) deliverLocalEvents(batch []sim.Event) {
	for _, e := range batch {
		switch p := e.Payload.(type) {
		case sim.FillPayload:
			s.send(p.Order.Owner, Report{
				MessageType: ExecutionReport, AssetIdx: e.AssetIdx, Side: p.Order.Side,
				OrderID: p.Order.ID, Quantity: p.Order.CurrentFillQty, Price: p.Order.CurrentFillPrice,
			})
		case sim.AckPayload:
			s.send(p.Order.Owner, Report{
				MessageType: AckReport, AssetIdx: e.AssetIdx, Side: p.Order.Side,
				OrderID: p.Order.ID, Quantity: p.Order.Remaining(), Price: p.Order.Price,
			})
		case sim.RejectPayload:
			errStr := ""
			owner := ""
			if p.Order != nil {
				owner = p.Order.Owner
			}
			if p.Err != nil {
				errStr = p.Err.Error()
			}
			s.send(owner, Report{
				MessageType: RejectReport, AssetIdx: e.AssetIdx,
				ErrStrLen: uint32(len(errStr)), Err: errStr,
			})
		}
	}
}

func (s *Server) send(owner string, r Report) {
	s.sessionsLock.Lock()
	session, ok := s.sessionsByOwner[owner]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}
	if _, err := session.conn.Write(r.Serialize()); err != nil {
		log.Error().Err(err).Str("owner", owner).Msg("unable to deliver report")
	}
}

func (s *Server) reportError(owner string, reportErr error) {
	errStr := reportErr.Error()
	s.send(owner, Report{MessageType: ErrorReport, ErrStrLen: uint32(len(errStr)), Err: errStr})
}

func (s *Server) registerOwner(owner, address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if _, ok := s.sessionsByOwner[owner]; ok {
		return
	}
	// The connection for address was already recorded by handleConnection.
	if conn, ok := s.connByAddress[address]; ok {
		s.sessionsByOwner[owner] = clientSession{conn: conn}
	}
}

func (s *Server) trackConnection(address string, conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.connByAddress[address] = conn
}

func (s *Server) untrackConnection(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.connByAddress, address)
}

func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("error closing connection")
		}
	}()

	address := conn.RemoteAddr().String()
	s.trackConnection(address, conn)
	defer s.untrackConnection(address)

	buffer := make([]byte, maxRecvSize)
	for {
		select {
		case <-t.Dying():
			return nil
		default:
			if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
				return nil
			}
			n, err := conn.Read(buffer)
			if err != nil {
				return nil
			}
			message, err := ParseMessage(buffer[:n])
			if err != nil {
				log.Error().Err(err).Str("address", address).Msg("error parsing message")
				continue
			}
			s.messages <- clientMessage{clientAddress: address, owner: ownerOf(message), message: message}
		}
	}
}

func ownerOf(m Message) string {
	if n, ok := m.(NewOrderMessage); ok {
		return n.Username
	}
	return ""
}
