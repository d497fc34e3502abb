package credentials

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Provider is one place a credential can be looked up.
type Provider interface {
	Name() Source
	// Lookup returns ErrNotFound when the source holds nothing usable.
	Lookup(ctx context.Context) (*Credential, error)
}

// Resolver tries providers in order and returns the first usable credential.
type Resolver struct {
	providers []Provider
	logger    *zap.Logger
}

func NewResolver(logger *zap.Logger, providers ...Provider) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{providers: providers, logger: logger}
}

// DefaultResolver wires the manual, browser and Claude Code sources in
// priority order.
func DefaultResolver(configDir string, logger *zap.Logger) (*Resolver, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	return NewResolver(logger,
		NewManualStore(configDir),
		NewBrowserSource(home, logger),
		NewClaudeCodeSource(home),
	), nil
}

func (r *Resolver) Resolve(ctx context.Context) (*Credential, error) {
	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cred, err := p.Lookup(ctx)
		switch {
		case err == nil && cred != nil && cred.Token != "":
			cred.Source = p.Name()
			if cred.SubscriptionType == "" {
				cred.SubscriptionType = "unknown"
			}
			r.logger.Debug("credential resolved",
				zap.String("source", string(cred.Source)),
				zap.String("kind", string(cred.Kind)),
			)
			return cred, nil
		case err == nil || errors.Is(err, ErrNotFound):
			r.logger.Debug("credential source empty", zap.String("source", string(p.Name())))
		default:
			r.logger.Debug("credential source failed",
				zap.String("source", string(p.Name())),
				zap.Error(err),
			)
		}
	}
	return nil, ErrNoCredentials
}

// Has reports whether any source currently yields a credential.
func (r *Resolver) Has(ctx context.Context) bool {
	_, err := r.Resolve(ctx)
	return err == nil
}
