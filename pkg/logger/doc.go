// Package logger builds *slog.Logger instances for guardkit.
//
// New takes functional options for format, level, static attributes and
// context extractors. WithEnvironment and FromConfig pick sane defaults per
// deployment environment (text and debug in development, JSON and info
// elsewhere). Attribute helpers such as Guard, Driver, UserID and TokenID keep
// key names consistent between the guards, the token services and the event
// log sink.
//
// Plaintext secrets must never be logged. opaque.Secret implements
// slog.LogValuer and renders as "[redacted]" if one slips through.
//
// # Usage
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//
//	log := logger.New(logger.FromConfig(cfg)...)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "user logged in",
//		logger.Guard("web"),
//		logger.UserID(user.ID),
//	)
package logger
