package pwdriver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbydaniel/a11yverify/internal/driver/drivertest"
)

func TestContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser tests in short mode")
	}
	drivertest.RunContract(t, New())
}

func TestTimeoutMS(t *testing.T) {
	t.Parallel()

	assert.Nil(t, timeoutMS(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ms := timeoutMS(ctx)
	require.NotNil(t, ms)
	assert.InDelta(t, 10000, *ms, 1000)

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	ms = timeoutMS(expired)
	require.NotNil(t, ms)
	assert.Equal(t, float64(1), *ms)
}

func TestName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "playwright", New().Name())
}
