package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "native minimal",
			cfg:  ClientConfig{Host: "ch", Port: 9000, Database: "volsurf", User: "default"},
			want: "clickhouse://default:@ch:9000/volsurf",
		},
		{
			name: "http with settings",
			cfg: ClientConfig{
				Host: "ch", Port: 8123, Database: "volsurf", User: "u", Password: "p@ss",
				UseHTTP: true, DialTimeout: 5 * time.Second, MaxExecTime: 90 * time.Second,
				AsyncInsert: true, WaitForAsync: true,
			},
			want: "http://u:p%40ss@ch:8123/volsurf?async_insert=1&dial_timeout=5s&max_execution_time=90&wait_for_async_insert=1",
		},
		{
			name: "wait without async is ignored",
			cfg:  ClientConfig{Host: "ch", Port: 9000, Database: "d", User: "u", WaitForAsync: true},
			want: "clickhouse://u:@ch:9000/d",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildDSN(tc.cfg))
		})
	}
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
