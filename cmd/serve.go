package main

import (
	"context"

	"github.com/palgatox64/sonusitory/internal/server"
	"github.com/palgatox64/sonusitory/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the job simulator until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	dev := r.config.Dev
	if cmd.IsSet("host") {
		dev.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		dev.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("fail-after") {
		dev.FailAfter = int(cmd.Int("fail-after"))
	}

	logger := shared.WithLogger(r.logger, "component", "simulator")
	sim := server.NewSimulator(server.SimulatorOpts{FailAfter: dev.FailAfter, Logger: logger})
	srv := server.New(dev.Addr(), server.NewSimulatorRouter(sim, logger), logger)

	r.writePlain("Simulator listening on http://%s\n", dev.Addr())
	return srv.ListenAndServe(ctx)
}
