package registry

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/harrier/internal/config"
	"github.com/aristath/harrier/internal/domain"
)

type fakeChain struct {
	signing bool
}

func (f *fakeChain) GetBalance(ctx context.Context) (*big.Int, error)         { return big.NewInt(0), nil }
func (f *fakeChain) GetFeeData(ctx context.Context) (*domain.FeeData, error)  { return nil, nil }
func (f *fakeChain) Simulate(ctx context.Context, _ domain.StrikeRequest) error { return nil }
func (f *fakeChain) Submit(ctx context.Context, _ domain.StrikeRequest) (string, error) {
	return "", nil
}
func (f *fakeChain) AwaitConfirmation(ctx context.Context, _ string, _ uint64) (bool, error) {
	return false, nil
}
func (f *fakeChain) CanSign() bool { return f.signing }

func testNetworks() []config.NetworkConfig {
	return []config.NetworkConfig{
		{Name: "alpha", ChainID: 1, RPCURL: "http://alpha"},
		{Name: "beta", ChainID: 2, RPCURL: "http://beta"},
	}
}

func TestNewIsolatesFailedNetworks(t *testing.T) {
	dial := func(_ context.Context, cfg config.NetworkConfig) (domain.ChainClient, error) {
		if cfg.Name == "alpha" {
			return nil, errors.New("connection refused")
		}
		return &fakeChain{signing: true}, nil
	}

	r := New(context.Background(), testNetworks(), dial, zerolog.Nop())

	_, ok := r.Get("alpha")
	assert.False(t, ok, "failed network must be marked unavailable")

	s, ok := r.Get("beta")
	require.True(t, ok, "surviving network must initialize")
	assert.Equal(t, "beta", s.Config.Name)
	assert.Len(t, r.Live(), 1)
}

func TestLivePreservesConfigurationOrder(t *testing.T) {
	dial := func(_ context.Context, _ config.NetworkConfig) (domain.ChainClient, error) {
		return &fakeChain{}, nil
	}

	r := New(context.Background(), testNetworks(), dial, zerolog.Nop())

	live := r.Live()
	require.Len(t, live, 2)
	assert.Equal(t, "alpha", live[0].Config.Name)
	assert.Equal(t, "beta", live[1].Config.Name)
}

func TestCanStrikeFollowsSigningState(t *testing.T) {
	dial := func(_ context.Context, cfg config.NetworkConfig) (domain.ChainClient, error) {
		return &fakeChain{signing: cfg.Name == "alpha"}, nil
	}

	r := New(context.Background(), testNetworks(), dial, zerolog.Nop())

	alpha, _ := r.Get("alpha")
	beta, _ := r.Get("beta")
	assert.True(t, alpha.CanStrike())
	assert.False(t, beta.CanStrike(), "read-only session must be excluded from strikes")
}
