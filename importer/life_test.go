package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loamdb/loam/errors"
	"go.uber.org/zap"
)

func TestLifeReleasesInReverseOrder(t *testing.T) {
	l := newLife(zap.NewNop().Sugar())

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		l.Defer(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	l.Shutdown()
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestLifeShutdownRunsExactlyOnce(t *testing.T) {
	l := newLife(zap.NewNop().Sugar())

	calls := 0
	l.Defer("resource", func() error {
		calls++
		return nil
	})

	l.Shutdown()
	l.Shutdown()
	l.Shutdown()
	assert.Equal(t, 1, calls)
}

func TestLifeFailedReleaseDoesNotStopOthers(t *testing.T) {
	l := newLife(zap.NewNop().Sugar())

	var released []string
	l.Defer("inner", func() error {
		released = append(released, "inner")
		return nil
	})
	l.Defer("broken", func() error {
		return errors.New("release failed")
	})
	l.Defer("outer", func() error {
		released = append(released, "outer")
		return nil
	})

	l.Shutdown()
	assert.Equal(t, []string{"outer", "inner"}, released)
}
