// Command gateway runs the optional TCP front door (internal/net) over a
// World. It is ambient surface, not part of the deterministic
// simulation core.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	netgw "github.com/lobsim/femto/internal/net"
	"github.com/lobsim/femto/internal/sim"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	world := sim.NewWorld([]sim.Asset{
		{Name: "BTC-USD", LotSize: 0.0001, TickSize: 0.01, Delay: sim.Delay{Send: 1_000_000, Receive: 1_000_000}},
	})
	srv := netgw.New("0.0.0.0", 9001, world)

	go srv.Run(ctx)
	go tick(ctx, world)

	<-ctx.Done()
}

// tick advances the world's virtual clock on a real-time cadence so the
// gateway keeps delivering delayed fills to connected clients. The core
// itself has no notion of wall-clock time; this loop is the host's
// choice of how to pump it.
func tick(ctx context.Context, world *sim.World) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := world.GotoTime(nil); err != nil {
				log.Error().Err(err).Msg("goto_time")
			}
		}
	}
}
