package refnum

import (
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return New(logger)
}

func TestCreateResolveClose(t *testing.T) {
	// GOAL: Verify allocation starts at 1, lookups return the stored object and close invalidates
	//
	// TEST SCENARIO: create A → 1, create B → 2, close 1 → resolve(1) not found, resolve(2) is B

	r := newTestRegistry()
	a := ServiceRef{}
	b := CharacteristicRef{}

	refA := r.Create(a)
	refB := r.Create(b)
	assert.Equal(t, Refnum(1), refA)
	assert.Equal(t, Refnum(2), refB)
	assert.Equal(t, 2, r.Len())

	got, ok := r.Resolve(refA)
	require.True(t, ok)
	assert.Equal(t, a, got)

	r.Close(refA)
	_, ok = r.Resolve(refA)
	assert.False(t, ok)

	got, ok = r.Resolve(refB)
	require.True(t, ok)
	assert.Equal(t, b, got)
	assert.Equal(t, 1, r.Len())
}

func TestRefnumsAreNeverReused(t *testing.T) {
	r := newTestRegistry()

	seen := make(map[Refnum]bool)
	last := Invalid
	for i := 0; i < 100; i++ {
		ref := r.Create(DeviceRef{})
		assert.True(t, ref > last, "refnum %d must be greater than %d", ref, last)
		assert.False(t, seen[ref])
		seen[ref] = true
		last = ref
		if i%2 == 0 {
			r.Close(ref)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	ref := r.Create(DeviceRef{})

	r.Close(ref)
	r.Close(ref)
	r.Close(Refnum(12345))
	r.Close(Invalid)

	assert.Equal(t, 0, r.Len())
}

func TestResolveInvalid(t *testing.T) {
	r := newTestRegistry()
	_, ok := r.Resolve(Invalid)
	assert.False(t, ok)
	_, ok = r.Resolve(Refnum(7))
	assert.False(t, ok)
}

func TestConcurrentCreate(t *testing.T) {
	r := newTestRegistry()

	const workers, perWorker = 8, 100
	var (
		mu   sync.Mutex
		refs = make(map[Refnum]bool)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ref := r.Create(NotificationRef{})
				mu.Lock()
				refs[ref] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, refs, workers*perWorker)
	assert.Equal(t, workers*perWorker, r.Len())
}

func TestTypedResolvers(t *testing.T) {
	r := newTestRegistry()
	devRef := r.Create(DeviceRef{})
	serverRef := r.Create(GATTServerRef{})
	svcRef := r.Create(ServiceRef{})
	charRef := r.Create(CharacteristicRef{})
	bufRef := r.Create(NotificationRef{})

	_, err := r.ResolveDevice("gattServerConnect", devRef)
	assert.NoError(t, err)
	_, err = r.ResolveGATTServer("getPrimaryService", serverRef)
	assert.NoError(t, err)
	_, err = r.ResolveService("getCharacteristic", svcRef)
	assert.NoError(t, err)
	_, err = r.ResolveCharacteristic("readValue", charRef)
	assert.NoError(t, err)
	_, err = r.ResolveNotification("readCharacteristicNotification", bufRef)
	assert.NoError(t, err)
}

func TestTypedResolverMismatch(t *testing.T) {
	// GOAL: Verify a refnum of the wrong kind yields a descriptive *KindError
	//
	// TEST SCENARIO: service refnum passed to readValue → KindError naming op, wanted and actual kind

	r := newTestRegistry()
	svcRef := r.Create(ServiceRef{})

	_, err := r.ResolveCharacteristic("readValue", svcRef)
	require.Error(t, err)

	var kindErr *KindError
	require.True(t, errors.As(err, &kindErr))
	assert.Equal(t, "readValue", kindErr.Op)
	assert.Equal(t, KindCharacteristic, kindErr.Want)
	assert.Equal(t, svcRef, kindErr.Refnum)
	assert.Equal(t, "Expected readValue to be invoked with a characteristicRefnum, instead got: refnum 1 (service)", err.Error())

	_, err = r.ResolveDevice("gattServerConnect", Refnum(99))
	require.True(t, errors.As(err, &kindErr))
	assert.Contains(t, err.Error(), "refnum 99 (not found)")

	r.Close(svcRef)
	_, err = r.ResolveService("getCharacteristic", svcRef)
	assert.Error(t, err)
}
