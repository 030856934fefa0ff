package server

import (
	"time"

	"github.com/igs-sky/1A2B-Game/internal/database"
)

type Config struct {
	// Switch the logger to development output
	Debug bool `envconfig:"ONETWOB_DEBUG" default:"false"`

	// TCP listen address for game clients
	Addr string `envconfig:"ONETWOB_ADDR" default:":12345"`

	// pprof port, empty disables the profile server
	ProfPort string `envconfig:"ONETWOB_PROF_PORT" default:""`

	// Number of player→session pointers cached in memory
	CacheSize int `envconfig:"ONETWOB_CACHE_SIZE" default:"1024"`

	// How long a new connection may take to answer CHECK_ID
	HandshakeTimeout time.Duration `envconfig:"ONETWOB_HANDSHAKE_TIMEOUT" default:"10s"`

	// Interval between HEARTBEAT probes per connection
	HeartbeatInterval time.Duration `envconfig:"ONETWOB_HEARTBEAT_INTERVAL" default:"5s"`

	// How long to wait for a HEARTBEAT_ACK before declaring the
	// connection dead
	HeartbeatTimeout time.Duration `envconfig:"ONETWOB_HEARTBEAT_TIMEOUT" default:"3s"`

	// Grace period for a disconnected player to reconnect mid-prompt
	// before the opponent is awarded the win
	ReconnectWait time.Duration `envconfig:"ONETWOB_RECONNECT_WAIT" default:"30s"`

	// Rounds before an undecided game ends in a draw
	MaxRounds int `envconfig:"ONETWOB_MAX_ROUNDS" default:"10"`

	Db database.Config
}
