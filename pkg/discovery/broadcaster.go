package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/messages"
	"github.com/aym-n/SneakByte/pkg/registry"
)

// ChangeHandler is called with a fresh registry snapshot whenever a new bot
// is discovered or stale bots are swept.
type ChangeHandler func(bots []registry.BotRecord)

// Broadcaster keeps the bot registry fresh via the UDP announce/response
// cycle. It periodically emits the announce datagram to the subnet broadcast
// address and ages out registry entries that have stopped answering.
type Broadcaster struct {
	registry         *registry.BotRegistry
	port             int
	announceMessage  string
	announceInterval time.Duration
	onChange         ChangeHandler

	lock   sync.Mutex
	paused bool
	conn   *net.UDPConn
}

type NewBroadcasterOptions struct {
	Registry         *registry.BotRegistry
	Port             int
	AnnounceMessage  string
	AnnounceInterval time.Duration
	OnChange         ChangeHandler
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(opts NewBroadcasterOptions) *Broadcaster {
	return &Broadcaster{
		registry:         opts.Registry,
		port:             opts.Port,
		announceMessage:  opts.AnnounceMessage,
		announceInterval: opts.AnnounceInterval,
		onChange:         opts.OnChange,
	}
}

// Start binds the discovery socket and runs the announce and receive loops
// until the context is cancelled.
func (b *Broadcaster) Start(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return fmt.Errorf("failed to bind discovery socket: %v", err)
	}
	b.conn = conn

	log.Info("Discovery socket bound on %s", conn.LocalAddr().String())

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go b.receiveLoop(ctx)
	go b.announceLoop(ctx)

	return nil
}

// Pause stops the announce timer and the aging sweep. The registry is kept
// as-is and responses are still recorded.
func (b *Broadcaster) Pause() {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.paused {
		b.paused = true
		log.Info("Discovery paused")
	}
}

// Resume restarts announcing and sweeping. The next announce goes out within
// one announce interval.
func (b *Broadcaster) Resume() {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.paused {
		b.paused = false
		log.Info("Discovery resumed")
	}
}

func (b *Broadcaster) isPaused() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.paused
}

func (b *Broadcaster) announceLoop(ctx context.Context) {
	ticker := time.NewTicker(b.announceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if b.isPaused() {
				continue
			}
			if err := b.sendAnnounce(); err != nil {
				// The next tick retries unconditionally.
				log.Error("Failed to send discovery announce: %v", err)
			}
			if removed := b.registry.SweepExpired(time.Now()); len(removed) > 0 {
				for _, id := range removed {
					log.Info("Removed inactive bot %s from registry", id)
				}
				b.notifyChange()
			}
		}
	}
}

func (b *Broadcaster) sendAnnounce() error {
	addr := &net.UDPAddr{IP: net.IPv4bcast, Port: b.port}
	if _, err := b.conn.WriteToUDP([]byte(b.announceMessage), addr); err != nil {
		return fmt.Errorf("failed to write announce datagram: %v", err)
	}
	log.Debug("Sent discovery broadcast to %s", addr.String())
	return nil
}

func (b *Broadcaster) receiveLoop(ctx context.Context) {
	buf := make([]byte, messages.UDPMessageBufferSize)
	for {
		n, addr, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			log.Error("Failed to read discovery response: %v", err)
			continue
		}
		b.handleResponse(buf[:n], addr, time.Now())
	}
}

// handleResponse records a discovery response. Malformed payloads are logged
// and dropped. The datagram's source IP is authoritative over anything the
// bot reports about itself.
func (b *Broadcaster) handleResponse(data []byte, addr *net.UDPAddr, now time.Time) {
	response := &messages.DiscoveryResponse{}
	if err := json.Unmarshal(data, response); err != nil {
		log.Warn("Invalid discovery response from %s: %v", addr.String(), err)
		return
	}
	if response.ID == "" {
		log.Warn("Discovery response from %s has no id, ignoring", addr.String())
		return
	}

	isNew := b.registry.Upsert(response.ID, response.Name, response.URL, addr.IP.String(), now)
	if isNew {
		log.Info("Discovered bot %s (%s) at %s", response.Name, response.ID, addr.IP.String())
		b.notifyChange()
	}
}

func (b *Broadcaster) notifyChange() {
	if b.onChange != nil {
		b.onChange(b.registry.Snapshot())
	}
}
