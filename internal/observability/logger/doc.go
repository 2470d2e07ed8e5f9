// Package logger provee el logger Zap del guard con scoping por contexto.
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: cada request lleva su propio logger con request_id,
//     method y path (ver middlewares.WithLogging); el authorizer agrega kid,
//     subject y principal_id sobre ese mismo logger.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//
// Inicialización (una vez en cmd):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// En el core:
//
//	log := logger.From(ctx)
//	log.Warn("principal token update failed", logger.PrincipalID(id), logger.Err(err))
//
// Nunca loguear el token crudo.
package logger
