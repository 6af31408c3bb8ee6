// Package logging builds the zap logger shared by the server and the CLI.
//
// Production mode writes JSON; development mode writes colored console
// output. Components take a child via Named: host, worker, pool, ws, http,
// grpc, registry, painter, html and trace.
//
// Children share one atomic level. The server exposes it at /log/level so
// an operator can switch to debug without a restart.
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	defer logger.Sync()
//	logger.Named("pool").Info("host booted", zap.Int("size", 4))
package logging
