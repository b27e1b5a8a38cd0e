package lookup

import (
	"fmt"
	"strings"

	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

// New creates the citation index selected by cfg.Provider
func New(cfg model.IndexConfig, logger *zap.Logger) (Index, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "static":
		if cfg.StaticPath == "" {
			return NewStaticIndex(), nil
		}
		return LoadStaticIndex(cfg.StaticPath)

	case "http":
		return NewHTTPIndex(cfg, logger)

	default:
		return nil, fmt.Errorf("unknown index provider: %s (supported: static, http)", cfg.Provider)
	}
}
