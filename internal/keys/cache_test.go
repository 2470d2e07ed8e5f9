package keys_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/jwksguard/internal/cache"
	"github.com/dropDatabas3/jwksguard/internal/jwks"
	"github.com/dropDatabas3/jwksguard/internal/jwks/jwkstest"
	"github.com/dropDatabas3/jwksguard/internal/keys"
)

type fakeFetcher struct {
	set   *jwks.KeySet
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*jwks.KeySet, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

type failingStore struct {
	findErr   error
	createErr error
	recs      []jwks.Key
}

func (s *failingStore) Find(context.Context, string) ([]jwks.Key, error) { return s.recs, s.findErr }
func (s *failingStore) Create(_ context.Context, k jwks.Key) (jwks.Key, error) {
	return k, s.createErr
}

func memStore() *keys.CacheStore { return keys.NewCacheStore(cache.NewMemory(""), 0) }

func TestResolve_MissFetchesAndPersists(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	f := &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{s.Key}}}
	store := memStore()
	c := keys.New(store, f)

	res, err := c.Resolve(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, keys.SourceRemote, res.Source)
	assert.NoError(t, res.StoreErr)
	assert.NoError(t, res.PersistErr)

	want, err := jwks.ToPEM(s.Key)
	require.NoError(t, err)
	assert.Equal(t, want, res.Key)
	assert.EqualValues(t, 1, f.calls.Load())

	recs, err := store.Find(context.Background(), "k1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, s.Key, recs[0])
}

func TestResolve_HitDoesNotFetch(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	f := &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{s.Key}}}
	c := keys.New(memStore(), f)

	_, err := c.Resolve(context.Background(), "k1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := c.Resolve(context.Background(), "k1")
		require.NoError(t, err)
		assert.Equal(t, keys.SourceStore, res.Source)
	}
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestResolve_BadStoredRecordFallsThrough(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	f := &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{s.Key}}}
	store := &failingStore{recs: []jwks.Key{{KID: "k1"}}}
	c := keys.New(store, f)

	res, err := c.Resolve(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, keys.SourceRemote, res.Source)
	assert.ErrorIs(t, res.StoreErr, jwks.ErrKeyFormat)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestResolve_StoreErrorFallsThrough(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	f := &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{s.Key}}}
	boom := errors.New("store down")
	c := keys.New(&failingStore{findErr: boom}, f)

	res, err := c.Resolve(context.Background(), "k1")
	require.NoError(t, err)
	assert.ErrorIs(t, res.StoreErr, boom)
	assert.Equal(t, keys.SourceRemote, res.Source)
}

func TestResolve_FetchFailure(t *testing.T) {
	boom := errors.New("connection refused")
	c := keys.New(memStore(), &fakeFetcher{err: boom})

	_, err := c.Resolve(context.Background(), "k1")
	require.Error(t, err)
	assert.ErrorIs(t, err, keys.ErrKeyRetrieval)
	assert.ErrorIs(t, err, boom)

	var kerr *keys.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, "k1", kerr.KID)
}

func TestResolve_KidNotPublished(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	c := keys.New(memStore(), &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{s.Key}}})

	_, err := c.Resolve(context.Background(), "k2")
	assert.ErrorIs(t, err, keys.ErrKeyNotFound)
	assert.NotErrorIs(t, err, keys.ErrKeyRetrieval)
}

func TestResolve_RemoteRecordWithoutX5c(t *testing.T) {
	store := memStore()
	c := keys.New(store, &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{{KID: "k1", Kty: "RSA"}}}})

	_, err := c.Resolve(context.Background(), "k1")
	assert.ErrorIs(t, err, keys.ErrKeyFormat)

	recs, err := store.Find(context.Background(), "k1")
	require.NoError(t, err)
	assert.Empty(t, recs, "unusable records are not persisted")
}

func TestResolve_PersistFailureIsSwallowed(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	boom := errors.New("read only")
	c := keys.New(&failingStore{createErr: boom}, &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{s.Key}}})

	res, err := c.Resolve(context.Background(), "k1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Key)
	assert.ErrorIs(t, res.PersistErr, boom)
}

func TestResolve_ConcurrentMissesShareOneFetch(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	f := &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{s.Key}}, delay: 50 * time.Millisecond}
	c := keys.New(&failingStore{}, f)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Resolve(context.Background(), "k1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Less(t, f.calls.Load(), int64(8))
}

func TestResolve_CallerCancellation(t *testing.T) {
	s := jwkstest.NewRSA(t, "k1")
	f := &fakeFetcher{set: &jwks.KeySet{Keys: []jwks.Key{s.Key}}, delay: 200 * time.Millisecond}
	c := keys.New(&failingStore{}, f)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Resolve(ctx, "k1")
	assert.ErrorIs(t, err, keys.ErrKeyRetrieval)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolve_AgainstJWKSServer(t *testing.T) {
	s := jwkstest.NewEC(t, "ec1")
	srv := jwkstest.NewServer(t, s.Key)
	c := keys.New(memStore(), jwks.NewClient(srv.URL))

	res, err := c.Resolve(context.Background(), "ec1")
	require.NoError(t, err)
	assert.Equal(t, keys.SourceRemote, res.Source)

	res, err = c.Resolve(context.Background(), "ec1")
	require.NoError(t, err)
	assert.Equal(t, keys.SourceStore, res.Source)
	assert.EqualValues(t, 1, srv.Hits())
}
