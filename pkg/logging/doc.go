// Package logging provides goblin's structured logging facade over log/slog.
//
// Every subsystem logs through a package-level logger configured once at
// startup via Init or InitForCLI:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//	logging.Info("Router", "resolved %s to backend %s", toolName, serverName)
//	logging.Error("Pool", err, "reconnect failed for %s", serverName)
//
// Log lines carry a "subsystem" attribute identifying the component that
// produced them (e.g. "ConfigReconciler", "Pool:s1", "Registry", "Router",
// "GatewayServer", "SessionManager"), and an "error" attribute when Error is
// used. Audit records use a distinct [AUDIT] prefix for filtering.
package logging
