package artnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"artnetnode/internal/logger"
	"golang.org/x/net/ipv4"
)

var (
	ErrAlreadyRunning = errors.New("node already running")
	ErrNotRunning     = errors.New("node not running")
)

// State of the Node lifecycle.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// maxDatagram fits any Art-Net frame.
const maxDatagram = 2048

// NodeConfig describes the local endpoint and what the node accepts.
type NodeConfig struct {
	Host        string        // local bind address, empty for all interfaces
	Port        int           // local port, 0 picks an ephemeral one
	Universes   []uint16      // allow-list, nil accepts every universe
	ReusePort   bool          // share the port with other receivers
	ReadBuffer  int           // socket receive buffer, 0 keeps the OS default
	ReadTimeout time.Duration // re-arm interval of the blocking read, 0 blocks until data or close
	Sources     []*net.IPNet  // accepted senders, empty accepts all
}

// DefaultNodeConfig listens on every interface on the Art-Net port.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{Port: DefaultPort, ReadTimeout: time.Second}
}

// Node receives Art-Net frames and applies ArtDmx data to its universes.
type Node struct {
	log      *logger.Log
	cfg      NodeConfig
	registry *Registry
	stats    counters

	mu       sync.Mutex // guards the lifecycle
	state    State
	stopping bool // a Stop is waiting for the loop, further Stops fail
	run      *run
}

// packetReader is the part of *ipv4.PacketConn the receive loop uses.
type packetReader interface {
	ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// run is one Running period: the socket and the receive loop that owns it.
type run struct {
	conn packetReader
	addr net.Addr
	done chan struct{}
	err  error // set by the loop before done is closed
}

// NewNode returns a stopped node.
func NewNode(log logger.Logger, cfg NodeConfig) *Node {
	return &Node{
		log:      log.With(logger.Fields{"module": "art-net"}),
		cfg:      cfg,
		registry: NewRegistry(cfg.Universes),
	}
}

// Universes returns the registry the node writes to.
func (n *Node) Universes() *Registry { return n.registry }

// Stats returns a snapshot of the receive counters.
func (n *Node) Stats() Stats { return n.stats.snapshot() }

// State returns the current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// LocalAddr returns the bound address while running, nil otherwise.
func (n *Node) LocalAddr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Running {
		return nil
	}
	return n.run.addr
}

// Done is closed when the current receive loop exits, either through Stop
// or a fatal socket error. It is closed already if the node never ran.
func (n *Node) Done() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.run == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return n.run.done
}

// Err returns the fatal error that ended the last receive loop, or nil when
// the loop is still running or was stopped deliberately.
func (n *Node) Err() error {
	n.mu.Lock()
	r := n.run
	n.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Start opens the socket and launches the receive loop. A node whose loop
// ended on a fatal error (see Done and Err) is still Running: Start returns
// ErrAlreadyRunning until Stop releases the socket.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == Running {
		return ErrAlreadyRunning
	}

	udp, err := n.listen()
	if err != nil {
		return err
	}

	conn := ipv4.NewPacketConn(udp)
	if err := conn.SetControlMessage(ipv4.FlagDst, true); err != nil {
		n.log.Warnf("destination addresses unavailable: %v", err)
	}

	n.launch(conn, udp.LocalAddr())
	n.log.Infof("listening on %s", udp.LocalAddr())
	return nil
}

// launch starts the receive loop on conn. The caller holds n.mu.
func (n *Node) launch(conn packetReader, addr net.Addr) {
	r := &run{conn: conn, addr: addr, done: make(chan struct{})}
	n.run = r
	n.state = Running
	go n.receive(r)
}

// Stop closes the socket and waits for the receive loop to exit. No universe
// is modified after Stop returns. The lifecycle lock is released while
// waiting, so observers running on the loop may call State or LocalAddr.
func (n *Node) Stop() error {
	n.mu.Lock()
	if n.state != Running || n.stopping {
		n.mu.Unlock()
		return ErrNotRunning
	}
	n.stopping = true
	r := n.run
	err := r.conn.Close()
	n.mu.Unlock()

	<-r.done

	n.mu.Lock()
	n.state = Stopped
	n.stopping = false
	n.mu.Unlock()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close socket: %w", err)
	}
	n.log.Info("stopped")
	return nil
}

func (n *Node) listen() (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: control(n.cfg.ReusePort)}
	address := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	pc, err := lc.ListenPacket(context.Background(), "udp4", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	udp := pc.(*net.UDPConn)

	if n.cfg.ReadBuffer > 0 {
		if err := udp.SetReadBuffer(n.cfg.ReadBuffer); err != nil {
			n.log.Warnf("failed to set receive buffer to %d: %v", n.cfg.ReadBuffer, err)
		}
	}
	return udp, nil
}

// receive is the only writer of universe state while the node runs.
func (n *Node) receive(r *run) {
	defer close(r.done)

	buf := make([]byte, maxDatagram)
	for {
		if n.cfg.ReadTimeout > 0 {
			if err := r.conn.SetReadDeadline(time.Now().Add(n.cfg.ReadTimeout)); errors.Is(err, net.ErrClosed) {
				return
			}
		}

		size, cm, src, err := r.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				n.log.Debug("socket closed, receive loop exits")
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			r.err = err
			n.log.Errorf("receive failed: %v", err)
			return
		}

		n.handle(buf[:size], cm, src)
	}
}

func (n *Node) handle(b []byte, cm *ipv4.ControlMessage, src net.Addr) {
	n.stats.received.Add(1)

	if len(n.cfg.Sources) > 0 && !containsIP(n.cfg.Sources, src) {
		n.stats.ignored.Add(1)
		n.log.Debugf("datagram from %s filtered", src)
		return
	}

	f, err := Decode(b)
	switch {
	case errors.Is(err, ErrUnhandledOpCode):
		n.stats.ignored.Add(1)
		n.log.Tracef("%v from %s", err, src)
		return
	case err != nil:
		n.stats.dropped.Add(1)
		n.log.Debugf("dropped %d bytes from %s: %v", len(b), src, err)
		return
	}

	u, ok := n.registry.Get(f.Universe)
	if !ok {
		n.stats.ignored.Add(1)
		n.log.Tracef("universe %s not allowed", addressString(f.Universe))
		return
	}

	u.ApplyBuffer(f.Data, 0, len(f.Data))
	n.stats.applied.Add(1)

	if cm != nil {
		n.log.Tracef("ArtDmx %s seq %d, %d slots from %s to %s", addressString(f.Universe), f.Sequence, len(f.Data), src, cm.Dst)
	}
}

// ReportStats logs the counters every interval until ctx is done.
func (n *Node) ReportStats(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := n.Stats()
			n.log.With(logger.Fields{
				"received":  s.Received,
				"applied":   s.Applied,
				"dropped":   s.Dropped,
				"ignored":   s.Ignored,
				"universes": n.registry.Len(),
			}).Info("receive stats")
		}
	}
}
