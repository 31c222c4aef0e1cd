package remote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

type fakeReader struct {
	docs   map[string]map[string]interface{}
	err    error
	closed bool
}

func (f *fakeReader) Document(_ context.Context, collection, name string) (map[string]interface{}, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	doc, ok := f.docs[collection+"/"+name]
	return doc, ok, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestFetchCollectionReturnsDocument(t *testing.T) {
	reader := &fakeReader{docs: map[string]map[string]interface{}{
		"sekolah/profil": {"nama": "SMK Negeri 1"},
	}}
	client := newClient("sekolah", time.Second, func(context.Context) (documentReader, error) { return reader, nil }, nil)

	doc, err := client.FetchCollection(context.Background(), "profil")
	require.NoError(t, err)
	assert.Equal(t, "SMK Negeri 1", doc["nama"])

	missing, err := client.FetchCollection(context.Background(), "guru")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFetchCollectionConnectsOnceUnderConcurrency(t *testing.T) {
	var connects int32
	reader := &fakeReader{docs: map[string]map[string]interface{}{}}
	client := newClient("sekolah", time.Second, func(context.Context) (documentReader, error) {
		atomic.AddInt32(&connects, 1)
		time.Sleep(10 * time.Millisecond)
		return reader, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.FetchCollection(context.Background(), "guru")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&connects))
}

func TestFetchCollectionRetriesConnectAfterFailure(t *testing.T) {
	attempts := 0
	reader := &fakeReader{docs: map[string]map[string]interface{}{}}
	client := newClient("sekolah", time.Second, func(context.Context) (documentReader, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("auth failed")
		}
		return reader, nil
	}, nil)

	_, err := client.FetchCollection(context.Background(), "guru")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrRemoteUnavailable)

	_, err = client.FetchCollection(context.Background(), "guru")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestFetchCollectionWrapsReadErrors(t *testing.T) {
	reader := &fakeReader{err: errors.New("deadline exceeded")}
	client := newClient("sekolah", time.Second, func(context.Context) (documentReader, error) { return reader, nil }, nil)

	_, err := client.FetchCollection(context.Background(), "guru")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRemoteUnavailable.Code, appErr.Code)
	assert.Equal(t, 503, appErr.Status)
}

func TestCloseReleasesReader(t *testing.T) {
	reader := &fakeReader{}
	client := newClient("sekolah", time.Second, func(context.Context) (documentReader, error) { return reader, nil }, nil)
	require.NoError(t, client.Close())

	_, _ = client.FetchCollection(context.Background(), "guru")
	require.NoError(t, client.Close())
	assert.True(t, reader.closed)
}
