package loadertest

import (
	"testing"
	"time"

	"github.com/vnykmshr/imgflow/internal/testutil"
	"github.com/vnykmshr/imgflow/pkg/loader"
)

func TestAfterFiresForEveryReceiver(t *testing.T) {
	ch := After(5 * time.Millisecond)

	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	for i := 0; i < 3; i++ {
		select {
		case <-ch:
		case <-time.After(testutil.TestTimeout):
			t.Fatal("After never fired")
		}
	}
}

func TestThenAfterDelaysDelivery(t *testing.T) {
	p := NewProvider().Script("IMG", Partial(4).Then(After(20*time.Millisecond)), Final(8))

	deliveries := make(chan loader.Delivery, 2)
	start := time.Now()
	p.Submit("IMG", loader.Params{}, func(d loader.Delivery) { deliveries <- d })
	p.Wait()

	first := <-deliveries
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("partial delivered after %v, want at least 20ms", elapsed)
	}
	testutil.AssertEqual(t, first.Degraded, true)
	second := <-deliveries
	testutil.AssertEqual(t, second.Degraded, false)
	testutil.AssertEqual(t, second.Image.Bounds().Dx(), 8)
}
