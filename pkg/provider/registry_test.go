package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msabramo/langchaingang/pkg/types"
)

// fakeModel is a minimal ChatModel for registry tests.
type fakeModel struct {
	name string
}

func (m *fakeModel) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	return &types.ChatResponse{Content: "ok"}, nil
}
func (m *fakeModel) Name() string  { return m.name }
func (m *fakeModel) Model() string { return "" }

func producerFor(name string) Producer {
	return func() (Info, error) {
		return Info{
			Name: name,
			New: func(cfg Config) (types.ChatModel, error) {
				return &fakeModel{name: name}, nil
			},
		}, nil
	}
}

func TestRegistry_UnregisteredName(t *testing.T) {
	reg := New()

	supported, err := reg.IsSupported("nope")
	require.NoError(t, err)
	assert.False(t, supported)

	_, err = reg.Constructor("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "nope")
}

func TestRegistry_ListsResolvedNames(t *testing.T) {
	reg := New(producerFor("a"), producerFor("b"))

	names, err := reg.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestRegistry_SkipsUnavailableProducers(t *testing.T) {
	unavailable := func() (Info, error) {
		return Info{}, fmt.Errorf("x: %w", ErrUnavailable)
	}
	reg := New(unavailable, producerFor("y"))

	names, err := reg.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, names)

	supported, err := reg.IsSupported("x")
	require.NoError(t, err)
	assert.False(t, supported)
}

func TestRegistry_DuplicateNameLastWins(t *testing.T) {
	firstCalled := false
	first := func() (Info, error) {
		return Info{
			Name: "dup",
			New: func(cfg Config) (types.ChatModel, error) {
				firstCalled = true
				return &fakeModel{name: "first"}, nil
			},
		}, nil
	}
	second := func() (Info, error) {
		return Info{
			Name: "dup",
			New: func(cfg Config) (types.ChatModel, error) {
				return &fakeModel{name: "second"}, nil
			},
		}, nil
	}
	reg := New(first, second)

	ctor, err := reg.Constructor("dup")
	require.NoError(t, err)

	model, err := ctor(nil)
	require.NoError(t, err)
	assert.Equal(t, "second", model.Name())
	assert.False(t, firstCalled)

	names, err := reg.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"dup"}, names)
}

func TestRegistry_ProducersEvaluatedOnce(t *testing.T) {
	calls := 0
	counted := func() (Info, error) {
		calls++
		return producerFor("counted")()
	}
	reg := New(counted)

	for i := 0; i < 5; i++ {
		_, err := reg.List()
		require.NoError(t, err)
		_, err = reg.IsSupported("counted")
		require.NoError(t, err)
		_, err = reg.Constructor("counted")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, calls)
}

func TestRegistry_EmptyDerivationIsCached(t *testing.T) {
	calls := 0
	unavailable := func() (Info, error) {
		calls++
		return Info{}, ErrUnavailable
	}
	reg := New(unavailable)

	for i := 0; i < 3; i++ {
		names, err := reg.List()
		require.NoError(t, err)
		assert.Empty(t, names)
	}

	// A derivation that legitimately yields zero providers must not be
	// re-run on every query.
	assert.Equal(t, 1, calls)
}

func TestRegistry_UnexpectedProducerFailure(t *testing.T) {
	boom := errors.New("integration bug")
	calls := 0
	failing := func() (Info, error) {
		calls++
		return Info{}, boom
	}
	reg := New(producerFor("fine"), failing)

	_, err := reg.List()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// Derivation did not complete; the next query re-attempts and fails
	// the same way.
	_, err = reg.IsSupported("fine")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRegistry_RegisterReturnsProducer(t *testing.T) {
	reg := New()
	p := producerFor("late")

	returned := reg.Register(p)
	require.NotNil(t, returned)

	// The returned producer is usable as-is.
	info, err := returned()
	require.NoError(t, err)
	assert.Equal(t, "late", info.Name)

	names, err := reg.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, names)
}

func TestRegistry_RegisterDoesNotEvaluate(t *testing.T) {
	reg := New()
	calls := 0
	reg.Register(func() (Info, error) {
		calls++
		return producerFor("lazy")()
	})

	assert.Equal(t, 0, calls)

	_, err := reg.List()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRegistry_RegisterAfterDerivationHasNoEffect(t *testing.T) {
	reg := New(producerFor("early"))

	names, err := reg.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, names)

	reg.Register(producerFor("late"))

	names, err = reg.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, names)
}

func TestRegistry_ConcurrentFirstQuery(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	counted := func() (Info, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return producerFor("counted")()
	}
	reg := New(counted)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names, err := reg.List()
			assert.NoError(t, err)
			assert.Equal(t, []string{"counted"}, names)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}
