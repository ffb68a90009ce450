package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory(t *testing.T, opts ...Option) *Factory {
	t.Helper()

	factory, err := NewFactory(&PgConfig{Host: "db.example.com", Port: "5432", DBName: "acb", User: "acb"}, opts...)
	require.NoError(t, err)
	return factory
}

func TestNewFactory_NilConfig(t *testing.T) {
	factory, err := NewFactory(nil)
	assert.Nil(t, factory)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNewFactory_CopiesConfig(t *testing.T) {
	cfg := &PgConfig{DBName: "acb"}
	factory, err := NewFactory(cfg)
	require.NoError(t, err)

	cfg.DBName = "other"
	assert.Equal(t, "acb", factory.Config().DBName)
}

func TestFactory_ConnectIsIdempotent(t *testing.T) {
	opener := useMockOpener(t, nil)
	factory := newTestFactory(t)

	first, err := factory.Connect(context.Background())
	require.NoError(t, err)
	second, err := factory.Connect(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, opener.calls)
	assert.True(t, factory.Connected())
}

func TestFactory_ReconnectAfterDisconnect(t *testing.T) {
	opener := useMockOpener(t, nil)
	factory := newTestFactory(t)

	first, err := factory.Connect(context.Background())
	require.NoError(t, err)

	opener.mocks[0].ExpectClose()
	require.NoError(t, factory.Disconnect())
	assert.False(t, factory.Connected())

	second, err := factory.Connect(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, opener.calls)
	assert.NoError(t, opener.mocks[0].ExpectationsWereMet())
}

func TestFactory_DisconnectWithoutConnection(t *testing.T) {
	factory := newTestFactory(t)

	assert.NotPanics(t, func() {
		assert.NoError(t, factory.Disconnect())
		assert.NoError(t, factory.Disconnect())
	})
	assert.False(t, factory.Connected())
}

func TestFactory_DisconnectFailureClearsHandle(t *testing.T) {
	opener := useMockOpener(t, nil)
	factory := newTestFactory(t)

	_, err := factory.Connect(context.Background())
	require.NoError(t, err)

	closeErr := errors.New("broken pipe")
	opener.mocks[0].ExpectClose().WillReturnError(closeErr)

	err = factory.Disconnect()
	assert.ErrorIs(t, err, ErrDisconnect)
	assert.ErrorIs(t, err, closeErr)
	assert.False(t, factory.Connected())
	assert.NoError(t, factory.Disconnect())
}

func TestFactory_ConnectFailureIsNotCached(t *testing.T) {
	opener := useMockOpener(t, errors.New("password authentication failed"))
	factory := newTestFactory(t)

	db, err := factory.Connect(context.Background())
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, factory.Connected())

	opener.err = nil
	db, err = factory.Connect(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, 2, opener.calls)
}

func TestFactory_ConcurrentConnectOpensOnce(t *testing.T) {
	opener := useMockOpener(t, nil)
	factory := newTestFactory(t)

	const callers = 16
	var wg sync.WaitGroup
	handles := make([]interface{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := factory.Connect(context.Background())
			assert.NoError(t, err)
			handles[i] = db
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, opener.calls)
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestNewFactoryFromFile_Missing(t *testing.T) {
	factory, err := NewFactoryFromFile("does-not-exist/" + DefaultConfigResource)
	assert.Nil(t, factory)
	assert.ErrorIs(t, err, ErrConfiguration)
}
