package ratelimit

import "time"

// Policy names, also used as metric labels and key prefixes.
const (
	PolicyRead   = "read"
	PolicyCreate = "create"
	PolicyUpdate = "update"
	PolicyDelete = "delete"
	PolicyLogin  = "login"
)

// Policies holds the limit for every endpoint class.
type Policies struct {
	Read   Config
	Create Config
	Update Config
	Delete Config
	Login  Config
}

// DefaultPolicies: list endpoints 100/min, writes 10-30/min.
func DefaultPolicies() Policies {
	return Policies{
		Read:   Config{Window: time.Minute, MaxRequests: 100},
		Create: Config{Window: time.Minute, MaxRequests: 20},
		Update: Config{Window: time.Minute, MaxRequests: 30},
		Delete: Config{Window: time.Minute, MaxRequests: 10},
		Login:  Config{Window: time.Minute, MaxRequests: 10},
	}
}
