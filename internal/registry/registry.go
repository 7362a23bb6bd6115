// Package registry holds the per-network sessions for the process
// lifetime. Sessions are established once at startup and are read-only
// afterwards, so concurrent strike attempts share them without further
// synchronization.
package registry

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/config"
	"github.com/aristath/harrier/internal/domain"
)

// DialFunc establishes a chain client for one network. Injected so tests
// can stand up fake networks without an RPC endpoint.
type DialFunc func(ctx context.Context, cfg config.NetworkConfig) (domain.ChainClient, error)

// Session is an established connection to one network, plus its static
// configuration.
type Session struct {
	Config config.NetworkConfig
	Chain  domain.ChainClient
}

// CanStrike reports whether the session carries a signing identity.
// Read-only sessions are excluded from strike attempts.
func (s *Session) CanStrike() bool {
	return s.Chain.CanSign()
}

// Registry maps network names to their established sessions.
type Registry struct {
	sessions map[string]*Session
	order    []string // configured order, for deterministic iteration
	log      zerolog.Logger
}

// New attempts to establish a session for every configured network.
// A network that fails to initialize is logged and marked unavailable;
// the failure never propagates to the other networks.
func New(ctx context.Context, networks []config.NetworkConfig, dial DialFunc, log zerolog.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session, len(networks)),
		log:      log.With().Str("component", "registry").Logger(),
	}

	for _, netCfg := range networks {
		chain, err := dial(ctx, netCfg)
		if err != nil {
			r.log.Error().
				Err(err).
				Str("network", netCfg.Name).
				Msg("Failed to establish network session, marking inert")
			continue
		}

		r.sessions[netCfg.Name] = &Session{Config: netCfg, Chain: chain}
		r.order = append(r.order, netCfg.Name)

		r.log.Info().
			Str("network", netCfg.Name).
			Int64("chain_id", netCfg.ChainID).
			Bool("signing", chain.CanSign()).
			Msg("Network session established")
	}

	return r
}

// Get returns the session for a network name, or false if the network
// never initialized.
func (r *Registry) Get(name string) (*Session, bool) {
	s, ok := r.sessions[name]
	return s, ok
}

// Live returns all established sessions in configuration order.
func (r *Registry) Live() []*Session {
	out := make([]*Session, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sessions[name])
	}
	return out
}
