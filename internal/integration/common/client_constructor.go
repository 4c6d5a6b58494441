package common

import (
	"github.com/futig/rag-backend/internal/config"
	pkgHTTP "github.com/futig/rag-backend/pkg/http"
	"go.uber.org/zap"
)

// NewBaseConnector builds the shared outbound HTTP connector for provider integrations.
// Base URLs and API keys are not bound here: they come from runtime settings per call.
func NewBaseConnector(cfg config.HTTPClientConfig, logger *zap.Logger) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger: logger,
	}

	return pkgHTTP.NewConnector(
		connCfg,
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
	)
}
