// Command backtest is a minimal example driver: it builds a single-asset
// World, feeds a scripted sequence of orders through it, and logs every
// fill the strategy receives. It stands in for the external strategy
// collaborator the simulation core itself leaves unspecified.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lobsim/femto/internal/common"
	"github.com/lobsim/femto/internal/sim"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	world := sim.NewWorld([]sim.Asset{
		{Name: "BTC-USD", LotSize: 0.0001, TickSize: 0.01, Delay: sim.Delay{Send: 5_000_000, Receive: 5_000_000}},
	})

	world.SetStrategy(func(batch []sim.Event) {
		for _, e := range batch {
			switch p := e.Payload.(type) {
			case sim.FillPayload:
				log.Info().
					Uint64("orderID", p.Order.ID).
					Str("side", p.Order.Side.String()).
					Float64("qty", p.Order.CurrentFillQty).
					Float64("price", p.Order.CurrentFillPrice).
					Bool("maker", p.Order.CurrentIsMaker).
					Msg("fill")
			case sim.AckPayload:
				log.Info().Uint64("orderID", p.Order.ID).Msg("resting")
			case sim.RejectPayload:
				log.Warn().Err(p.Err).Msg("rejected")
			}
		}
	})

	asset := 0
	mustSubmit(world, asset, &common.Order{Side: common.Sell, Type: common.Limit, TIF: common.GTC, Price: 65_000, Qty: 0.5})
	mustSubmit(world, asset, &common.Order{Side: common.Sell, Type: common.Limit, TIF: common.GTC, Price: 65_050, Qty: 1.0})
	mustSubmit(world, asset, &common.Order{Side: common.Buy, Type: common.Limit, TIF: common.IOC, Price: 65_050, Qty: 1.2})

	for world.ExEPLen() > 0 || world.LocalEPLen() > 0 {
		if err := world.GotoTime(nil); err != nil {
			log.Fatal().Err(err).Msg("goto_time")
		}
	}
}

func mustSubmit(world *sim.World, asset int, o *common.Order) {
	if err := world.NewOrder(asset, o); err != nil {
		log.Fatal().Err(err).Msg("new_order")
	}
}
