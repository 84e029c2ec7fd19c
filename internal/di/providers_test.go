package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "github.com/gurubamal/iimcat-sub002/internal/repository"
	"github.com/gurubamal/iimcat-sub002/internal/service/cache"
	"github.com/gurubamal/iimcat-sub002/internal/services/analytics"
	"github.com/gurubamal/iimcat-sub002/internal/services/rebound"
	"github.com/gurubamal/iimcat-sub002/pkg/config"
)

func TestInitializeAppWithoutBackends(t *testing.T) {
	cfg := config.Default()
	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	assert.NotNil(t, app)
}

func TestDisabledBackendsProvideNil(t *testing.T) {
	cfg := config.Default()

	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)

	consumer, err := ProvideKafkaConsumer(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, consumer)

	assert.Nil(t, ProvideMarketStore(nil, nil))
	assert.Nil(t, ProvideOutcomeStore(nil))
	assert.Nil(t, ProvideDecisionSink(cfg, nil, nil))
	assert.Nil(t, ProvideQuoteStream(cfg, nil))
	assert.Nil(t, ProvideBridgeBase(cfg))
	assert.Nil(t, ProvideCatalystProvider(nil))
	assert.Nil(t, ProvideRequestsHandler(cfg, nil, nil, nil))
	assert.Nil(t, ProvideScheduler(cfg, nil, nil))
	assert.IsType(t, &cache.TTLCache{}, ProvideSnapshotCache(nil))
}

func TestProvideDecisionSinkWithStore(t *testing.T) {
	sink := ProvideDecisionSink(config.Default(), nil, &internalrepo.CHDecisionStore{})
	require.NotNil(t, sink)
	assert.Len(t, sink.(internalrepo.MultiSink), 1)
}

func TestProvideSupervisor(t *testing.T) {
	cfg := config.Default()
	base := analytics.NewHTTPServiceBase("test", "http://bridge.local")

	tests := []struct {
		mode string
		base *analytics.HTTPServiceBase
		want interface{}
	}{
		{"none", base, nil},
		{"rules", nil, &rebound.RuleSupervisor{}},
		{"ai", base, &analytics.HTTPSupervisor{}},
		{"ai", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg.Collaborators.Supervisor = tt.mode
			got := ProvideSupervisor(cfg, tt.base)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.IsType(t, tt.want, got)
		})
	}
}
