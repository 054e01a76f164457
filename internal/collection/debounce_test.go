package collection_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/collection"
)

func TestBurstPropagatesOnlyLastValue(t *testing.T) {
	d := collection.NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	for _, v := range []string{"a", "an", "ana"} {
		d.Set(v)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case got := <-d.C():
		require.Equal(t, "ana", got)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("debounced value never propagated")
	}

	// Nothing further is pending.
	select {
	case extra := <-d.C():
		t.Fatalf("unexpected second propagation %q", extra)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestEachQuietPeriodPropagates(t *testing.T) {
	d := collection.NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Set("first")
	require.Equal(t, "first", <-d.C())

	d.Set("second")
	require.Equal(t, "second", <-d.C())
}

func TestZeroDelayPropagatesImmediately(t *testing.T) {
	d := collection.NewDebouncer(0)
	d.Set("now")
	select {
	case got := <-d.C():
		require.Equal(t, "now", got)
	default:
		t.Fatal("zero-delay debouncer should emit synchronously")
	}
}

func TestStopCancelsPending(t *testing.T) {
	d := collection.NewDebouncer(20 * time.Millisecond)
	d.Set("doomed")
	d.Stop()

	select {
	case got := <-d.C():
		t.Fatalf("value %q propagated after Stop", got)
	case <-time.After(60 * time.Millisecond):
	}
}
