package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManagerConn struct {
	state string
	err   error
}

func (f *fakeManagerConn) GetManagerProperty(string) (string, error) {
	return f.state, f.err
}
func (f *fakeManagerConn) Close() {}

func TestSystemdManagerState(t *testing.T) {
	tests := []struct {
		name  string
		state string
		want  float64
	}{
		{"running", `"running"`, 1},
		{"degraded", `"degraded"`, 0},
		{"unquoted running", "running", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, reg := newTestEnv(t)
			c := NewSystemd(env)
			c.newConn = func(context.Context) (managerConn, error) {
				return &fakeManagerConn{state: tt.state}, nil
			}

			require.NoError(t, c.collectManagerState(context.Background()))
			got := metricValue(t, reg, "node_systemd_system_running", nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSystemdManagerStateConnError(t *testing.T) {
	env, _ := newTestEnv(t)
	c := NewSystemd(env)
	c.newConn = func(context.Context) (managerConn, error) {
		return nil, errors.New("no bus")
	}

	assert.Error(t, c.collectManagerState(context.Background()))
}
